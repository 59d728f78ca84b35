package apiauth

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/tucanopay/tucano/internal/counters"
	"github.com/tucanopay/tucano/internal/merchants"
	"github.com/tucanopay/tucano/internal/secrets"
	"github.com/tucanopay/tucano/internal/signature"
)

// FailureRecorder is notified of authentication failures so repeated abuse
// from one address can trigger an adaptive block.
type FailureRecorder interface {
	RecordFailedAttempt(ctx context.Context, ip string)
}

// Rejection describes why a request was refused.
type Rejection struct {
	Status int
	Code   string
	Detail string
}

// Authenticator verifies signed merchant requests.
type Authenticator struct {
	keys     merchants.Store
	nonces   counters.Store
	cipher   *secrets.Cipher
	failures FailureRecorder
	log      *slog.Logger

	maxSkew  time.Duration
	nonceTTL time.Duration

	now func() time.Time
}

// New builds an Authenticator. failures may be nil.
func New(keys merchants.Store, nonces counters.Store, cipher *secrets.Cipher, failures FailureRecorder, log *slog.Logger) *Authenticator {
	return &Authenticator{
		keys:     keys,
		nonces:   nonces,
		cipher:   cipher,
		failures: failures,
		log:      log,
		maxSkew:  DefaultMaxSkew,
		nonceTTL: DefaultNonceTTL,
		now:      time.Now,
	}
}

// WithSkew overrides the accepted clock skew.
func (a *Authenticator) WithSkew(d time.Duration) *Authenticator {
	a.maxSkew = d
	return a
}

// WithNonceTTL overrides how long consumed nonces are remembered. The TTL
// must stay comfortably above twice the skew window or replays of old
// requests become possible after the nonce expires.
func (a *Authenticator) WithNonceTTL(d time.Duration) *Authenticator {
	a.nonceTTL = d
	return a
}

// Request is the subset of an HTTP request the authenticator needs.
type Request struct {
	APIKey    string
	Timestamp string
	Nonce     string
	Signature string
	Method    string
	Path      string
	Body      []byte
	ClientIP  string
}

// Authenticate runs the full check chain. On success it returns the caller
// identity; otherwise a Rejection with a stable code.
func (a *Authenticator) Authenticate(ctx context.Context, req Request) (Identity, *Rejection) {
	if req.APIKey == "" || req.Timestamp == "" || req.Nonce == "" || req.Signature == "" {
		return Identity{}, a.reject(ctx, req, 401, CodeMissingHeaders, "missing authentication headers")
	}

	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidTimestamp, "timestamp is not a unix epoch integer")
	}
	if skew := a.now().Unix() - ts; skew > int64(a.maxSkew.Seconds()) || -skew > int64(a.maxSkew.Seconds()) {
		return Identity{}, a.reject(ctx, req, 401, CodeTimestampSkew, "timestamp outside accepted window")
	}

	key, err := a.keys.GetAPIKeyByKeyID(ctx, req.APIKey)
	if err != nil {
		if err != merchants.ErrNotFound {
			a.log.Error("api key lookup failed", "error", err)
		}
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidAPIKey, "unknown api key")
	}
	if !key.Active || key.Expired(a.now()) {
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidAPIKey, "api key inactive or expired")
	}

	merchant, err := a.keys.GetMerchant(ctx, key.MerchantID)
	if err != nil {
		a.log.Error("merchant lookup failed", "merchant_id", key.MerchantID, "error", err)
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidAPIKey, "unknown api key")
	}
	if !merchant.Active {
		return Identity{}, a.reject(ctx, req, 403, CodeMerchantInactive, "merchant is inactive")
	}

	nonceKey := "nonce:" + merchant.ID + ":" + req.Nonce
	seen, err := a.nonces.Exists(ctx, nonceKey)
	if err != nil {
		a.log.Error("nonce lookup failed", "error", err)
		return Identity{}, &Rejection{Status: 503, Code: "NONCE_STORE_UNAVAILABLE", Detail: "try again"}
	}
	if seen {
		return Identity{}, a.reject(ctx, req, 401, CodeNonceReused, "nonce already consumed")
	}

	secret, err := a.cipher.Decrypt(key.SecretEnc)
	if err != nil {
		a.log.Error("api secret decrypt failed", "key_id", key.KeyID, "error", err)
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidAPIKey, "unknown api key")
	}

	msg := signature.CanonicalRequest(ts, req.Nonce, req.Method, req.Path, req.Body)
	if !signature.Verify(secret, msg, req.Signature) {
		return Identity{}, a.reject(ctx, req, 401, CodeInvalidSignature, "signature mismatch")
	}

	// Persist the nonce only now: a failed signature must not consume it.
	ok, err := a.nonces.SetNX(ctx, nonceKey, a.nonceTTL)
	if err != nil {
		a.log.Error("nonce persist failed", "error", err)
		return Identity{}, &Rejection{Status: 503, Code: "NONCE_STORE_UNAVAILABLE", Detail: "try again"}
	}
	if !ok {
		// Lost a race against a concurrent replay of the same request.
		return Identity{}, a.reject(ctx, req, 401, CodeNonceReused, "nonce already consumed")
	}

	if err := a.keys.TouchAPIKey(ctx, key.ID, a.now()); err != nil {
		a.log.Warn("api key touch failed", "key_id", key.KeyID, "error", err)
	}

	return Identity{MerchantID: merchant.ID, KeyID: key.KeyID}, nil
}

func (a *Authenticator) reject(ctx context.Context, req Request, status int, code, detail string) *Rejection {
	authRejections.WithLabelValues(code).Inc()
	if a.failures != nil && req.ClientIP != "" {
		a.failures.RecordFailedAttempt(ctx, req.ClientIP)
	}
	a.log.Info("request rejected",
		"code", code,
		"api_key", req.APIKey,
		"ip", req.ClientIP,
		"path", req.Path,
	)
	return &Rejection{Status: status, Code: code, Detail: detail}
}

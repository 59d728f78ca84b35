package pspwebhooks

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/counters"
	"github.com/tucanopay/tucano/internal/providers"
)

// Rejection codes for inbound provider webhooks.
const (
	CodeUnknownProvider  = "UNKNOWN_PROVIDER"
	CodeMissingHeaders   = "MISSING_HEADERS"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeTimestampSkew    = "TIMESTAMP_SKEW"
	CodeNonceReused      = "NONCE_REUSED"
	CodeInvalidSignature = "INVALID_SIGNATURE"
)

// DefaultSkew bounds how old a provider webhook timestamp may be.
const DefaultSkew = 60 * time.Second

// Rejection describes a refused webhook.
type Rejection struct {
	Status int
	Code   string
}

// Validator authenticates inbound provider webhooks.
type Validator struct {
	registry *providers.Registry
	nonces   counters.Store
	auditor  audit.Logger
	log      *slog.Logger

	maxSkew  time.Duration
	nonceTTL time.Duration

	now func() time.Time
}

// NewValidator builds a webhook validator.
func NewValidator(registry *providers.Registry, nonces counters.Store, auditor audit.Logger, log *slog.Logger) *Validator {
	return &Validator{
		registry: registry,
		nonces:   nonces,
		auditor:  auditor,
		log:      log,
		maxSkew:  DefaultSkew,
		nonceTTL: 24 * time.Hour,
		now:      time.Now,
	}
}

// Inbound is the raw material of one webhook request.
type Inbound struct {
	Provider  string
	Signature string
	Timestamp string
	Nonce     string
	Payload   []byte
	RemoteIP  string
}

// Validate runs the check chain and returns the resolved provider on
// success. Rejections are audited with a per-reason action so abuse
// against the webhook surface is visible.
func (v *Validator) Validate(ctx context.Context, in Inbound) (providers.Provider, *Rejection) {
	if in.Provider == "" || in.Signature == "" || in.Timestamp == "" || in.Nonce == "" {
		return nil, v.reject(ctx, in, 400, CodeMissingHeaders, "webhook.rejected.missing_headers")
	}

	provider, err := v.registry.Get(in.Provider)
	if err != nil {
		return nil, v.reject(ctx, in, 400, CodeUnknownProvider, "webhook.rejected.unknown_provider")
	}

	ts, err := strconv.ParseInt(in.Timestamp, 10, 64)
	if err != nil {
		return nil, v.reject(ctx, in, 401, CodeInvalidTimestamp, "webhook.rejected.timestamp_skew")
	}
	if skew := v.now().Unix() - ts; skew > int64(v.maxSkew.Seconds()) || -skew > int64(v.maxSkew.Seconds()) {
		return nil, v.reject(ctx, in, 401, CodeTimestampSkew, "webhook.rejected.timestamp_skew")
	}

	nonceKey := "nonce:provider:" + in.Provider + ":" + in.Nonce
	seen, err := v.nonces.Exists(ctx, nonceKey)
	if err != nil {
		v.log.Error("webhook nonce lookup failed", "provider", in.Provider, "error", err)
		return nil, &Rejection{Status: 503, Code: "NONCE_STORE_UNAVAILABLE"}
	}
	if seen {
		return nil, v.reject(ctx, in, 401, CodeNonceReused, "webhook.rejected.nonce_reused")
	}

	if !provider.ValidateWebhookSignature(in.Signature, in.Payload, ts) {
		return nil, v.reject(ctx, in, 401, CodeInvalidSignature, "webhook.rejected.invalid_signature")
	}

	ok, err := v.nonces.SetNX(ctx, nonceKey, v.nonceTTL)
	if err != nil {
		v.log.Error("webhook nonce persist failed", "provider", in.Provider, "error", err)
		return nil, &Rejection{Status: 503, Code: "NONCE_STORE_UNAVAILABLE"}
	}
	if !ok {
		return nil, v.reject(ctx, in, 401, CodeNonceReused, "webhook.rejected.nonce_reused")
	}

	return provider, nil
}

func (v *Validator) reject(ctx context.Context, in Inbound, status int, code, action string) *Rejection {
	webhookRejections.WithLabelValues(in.Provider, code).Inc()
	v.log.Info("provider webhook rejected", "provider", in.Provider, "code", code, "ip", in.RemoteIP)
	audit.Record(ctx, v.auditor, &audit.Entry{
		ActorType: "provider",
		ActorID:   in.Provider,
		Action:    action,
		Resource:  "psp_webhook",
		Change:    `{"reason":"` + code + `"}`,
		IPAddress: in.RemoteIP,
	})
	return &Rejection{Status: status, Code: code}
}

// Package apiauth authenticates inbound merchant API requests.
//
// Requests carry four headers: X-Api-Key, X-Timestamp (unix seconds),
// X-Nonce, and X-Signature (base64 HMAC-SHA256 of the canonical message
// timestamp "." nonce "." method "." path "." sha256hex(body)).
//
// Check order is fixed: header presence, timestamp skew, key and merchant
// state, nonce replay, signature. The nonce is persisted only after the
// signature verifies, so an attacker cannot burn a merchant's nonces with
// garbage signatures. Concurrent replays of the same valid request race on
// the nonce write; the loser of that race is rejected, and a forged second
// valid signature is infeasible without the secret.
package apiauth

import (
	"time"
)

// Header names for signed API requests.
const (
	HeaderAPIKey    = "X-Api-Key"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
)

// Stable rejection codes.
const (
	CodeMissingHeaders   = "MISSING_HEADERS"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeTimestampSkew    = "TIMESTAMP_SKEW"
	CodeInvalidAPIKey    = "INVALID_API_KEY"
	CodeMerchantInactive = "MERCHANT_INACTIVE"
	CodeNonceReused      = "NONCE_REUSED"
	CodeInvalidSignature = "INVALID_SIGNATURE"
)

// Defaults.
const (
	DefaultMaxSkew  = 60 * time.Second
	DefaultNonceTTL = 24 * time.Hour
)

// Identity is the authenticated caller threaded to downstream handlers.
type Identity struct {
	MerchantID string
	KeyID      string
}

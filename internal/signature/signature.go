// Package signature implements the shared-secret request signing scheme.
//
// Every signed surface of the platform uses the same primitive: an
// HMAC-SHA256 over a dot-joined canonical message, base64-encoded. The
// canonical message formats are:
//
//	API requests:        timestamp "." nonce "." method "." path "." sha256hex(body)
//	webhook deliveries:  timestamp "." nonce "." payload
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptySecret  = errors.New("signature: secret must not be empty")
	ErrEmptyMessage = errors.New("signature: message must not be empty")
)

// Sign computes the base64-encoded HMAC-SHA256 of message under secret.
func Sign(secret, message string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if message == "" {
		return "", ErrEmptyMessage
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether sig is a valid signature of message under secret.
// Comparison is constant-time. Empty inputs never verify.
func Verify(secret, message, sig string) bool {
	if secret == "" || message == "" || sig == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hmac.Equal(decoded, mac.Sum(nil))
}

// CanonicalRequest builds the signing message for an inbound API request.
// The body hash is the lowercase hex SHA-256 of the raw body; an absent
// body hashes as the empty string.
func CanonicalRequest(timestamp int64, nonce, method, path string, body []byte) string {
	sum := sha256.Sum256(body)
	return strings.Join([]string{
		strconv.FormatInt(timestamp, 10),
		nonce,
		method,
		path,
		hex.EncodeToString(sum[:]),
	}, ".")
}

// CanonicalDelivery builds the signing message for an outbound webhook
// delivery: the payload is signed byte-for-byte, not re-serialized.
func CanonicalDelivery(timestamp int64, nonce string, payload []byte) string {
	return fmt.Sprintf("%d.%s.%s", timestamp, nonce, payload)
}

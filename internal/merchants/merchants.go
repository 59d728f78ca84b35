// Package merchants holds merchant accounts, their API signing keys, and
// their webhook endpoints.
//
// Signing secrets are stored encrypted (see internal/secrets); the raw
// secret is shown once at creation time and decrypted on use.
package merchants

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("merchants: not found")
	ErrNoActiveEndpoint = errors.New("merchants: no active webhook endpoint")
)

// Merchant is a platform customer originating payments.
type Merchant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"` // CNPJ
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKey authenticates merchant API requests. KeyID is the public
// identifier sent in X-Api-Key; SecretEnc is the encrypted HMAC secret.
type APIKey struct {
	ID         string     `json:"id"`
	MerchantID string     `json:"merchantId"`
	KeyID      string     `json:"keyId"`
	SecretEnc  string     `json:"-"`
	Active     bool       `json:"active"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Expired reports whether the key has passed its expiry.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Endpoint is a merchant webhook destination. SecretEnc is the encrypted
// secret used to sign deliveries to this endpoint.
type Endpoint struct {
	ID            string     `json:"id"`
	MerchantID    string     `json:"merchantId"`
	URL           string     `json:"url"`
	SecretEnc     string     `json:"-"`
	Active        bool       `json:"active"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Store persists merchants, API keys, and webhook endpoints.
type Store interface {
	CreateMerchant(ctx context.Context, m *Merchant) error
	GetMerchant(ctx context.Context, id string) (*Merchant, error)

	CreateAPIKey(ctx context.Context, k *APIKey) error
	GetAPIKeyByKeyID(ctx context.Context, keyID string) (*APIKey, error)
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error

	CreateEndpoint(ctx context.Context, e *Endpoint) error
	GetActiveEndpoint(ctx context.Context, merchantID string) (*Endpoint, error)
	ListEndpoints(ctx context.Context, merchantID string) ([]*Endpoint, error)
	UpdateEndpoint(ctx context.Context, e *Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error
}

// Package pspwebhooks receives and processes payment-status webhooks sent
// by the providers.
//
// Every inbound webhook goes through two stages: validation (provider
// lookup, timestamp skew, nonce replay, provider signature) and
// processing (persist the raw event, match it to a payment, apply the
// status transition, queue the merchant notification). The raw event is
// stored before any matching so nothing is lost when a provider sends a
// transaction we do not know about.
package pspwebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("pspwebhooks: not found")

// Header names on inbound provider webhooks.
const (
	HeaderProvider  = "X-Provider"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
)

// Received is a stored inbound webhook.
type Received struct {
	ID                string          `json:"id"`
	Provider          string          `json:"provider"`
	EventType         string          `json:"eventType"`
	ProviderPaymentID string          `json:"providerPaymentId"`
	Payload           json.RawMessage `json:"payload"`
	Processed         bool            `json:"processed"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
	ReceivedAt        time.Time       `json:"receivedAt"`
}

// Store persists received webhooks.
type Store interface {
	Create(ctx context.Context, r *Received) error
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	Get(ctx context.Context, id string) (*Received, error)
	ListByProvider(ctx context.Context, provider string, limit int) ([]*Received, error)
}

// Notifier queues an outbound merchant notification for a payment whose
// status changed. Implemented by the webhooks delivery service.
type Notifier interface {
	NotifyPaymentUpdate(ctx context.Context, merchantID, paymentID, event string, payload []byte) error
}

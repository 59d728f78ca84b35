// Package webhooks delivers signed event notifications to merchant
// endpoints.
//
// Deliveries are persisted before the first attempt and retried on a
// bounded backoff ladder. A delivery that exhausts its attempts, or whose
// merchant has no active endpoint, is parked as permanently failed and
// surfaced for manual retry.
package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("webhooks: not found")

// Status of a delivery.
type Status string

const (
	StatusPending           Status = "pending"
	StatusFailed            Status = "failed"
	StatusSuccess           Status = "success"
	StatusPermanentlyFailed Status = "permanently_failed"
)

// MaxAttempts is the delivery attempt ceiling.
const MaxAttempts = 10

// retryLadder is the wait before each retry, indexed by the number of
// attempts already made. After the last rung the delivery is parked.
var retryLadder = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	1 * time.Hour,
	2 * time.Hour,
	4 * time.Hour,
	8 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// Delay returns how long to wait after the given attempt number (1-based)
// before retrying. Attempts past the ladder reuse the last rung.
func Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retryLadder) {
		attempt = len(retryLadder)
	}
	return retryLadder[attempt-1]
}

// Delivery is one notification owed to a merchant endpoint.
type Delivery struct {
	ID          string          `json:"id"`
	MerchantID  string          `json:"merchantId"`
	PaymentID   string          `json:"paymentId,omitempty"`
	EventType   string          `json:"eventType"`
	Payload     json.RawMessage `json:"payload"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"lastError,omitempty"`
	NextRetryAt *time.Time      `json:"nextRetryAt,omitempty"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Store persists deliveries.
type Store interface {
	Create(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id string) (*Delivery, error)
	Update(ctx context.Context, d *Delivery) error

	// ListDue returns deliveries ready for an attempt: pending or failed,
	// under the attempt ceiling, with no retry scheduled in the future.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)

	ListByMerchant(ctx context.Context, merchantID string, limit int) ([]*Delivery, error)
}

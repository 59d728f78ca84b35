package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/merchants"
)

// Service owns the delivery lifecycle: enqueue, attempt, park, retry.
type Service struct {
	store     Store
	merchants merchants.Store
	sender    *Sender
	auditor   audit.Logger
	log       *slog.Logger

	// asyncFirstAttempt controls whether Enqueue fires an immediate
	// attempt in a goroutine. Disabled in tests for determinism.
	asyncFirstAttempt bool

	now func() time.Time
}

// NewService builds a delivery service.
func NewService(store Store, mer merchants.Store, sender *Sender, auditor audit.Logger, log *slog.Logger) *Service {
	return &Service{
		store:             store,
		merchants:         mer,
		sender:            sender,
		auditor:           auditor,
		log:               log,
		asyncFirstAttempt: true,
		now:               time.Now,
	}
}

// DisableAsyncAttempts makes Enqueue rely solely on the worker for the
// first attempt. Used in tests.
func (s *Service) DisableAsyncAttempts() *Service {
	s.asyncFirstAttempt = false
	return s
}

// NotifyPaymentUpdate enqueues a payment status delivery. Implements the
// notifier contract used by webhook processing.
func (s *Service) NotifyPaymentUpdate(ctx context.Context, merchantID, paymentID, event string, payload []byte) error {
	_, err := s.Enqueue(ctx, merchantID, paymentID, event, payload)
	return err
}

// Enqueue persists a new delivery and, when enabled, fires the first
// attempt immediately. The row is written before the attempt so a crash
// between the two leaves a due pending delivery for the worker to pick up.
func (s *Service) Enqueue(ctx context.Context, merchantID, paymentID, eventType string, payload []byte) (*Delivery, error) {
	d := &Delivery{
		ID:         idgen.WithPrefix("del_"),
		MerchantID: merchantID,
		PaymentID:  paymentID,
		EventType:  eventType,
		Payload:    json.RawMessage(payload),
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("webhooks: enqueue: %w", err)
	}
	deliveriesEnqueued.Inc()

	if s.asyncFirstAttempt {
		go func() {
			if err := s.Attempt(context.Background(), d.ID); err != nil {
				s.log.Warn("first delivery attempt errored", "delivery_id", d.ID, "error", err)
			}
		}()
	}
	return d, nil
}

// Attempt runs one delivery attempt and records the outcome. Terminal and
// not-yet-due deliveries are skipped without error so callers can race
// with the worker harmlessly.
func (s *Service) Attempt(ctx context.Context, id string) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != StatusPending && d.Status != StatusFailed {
		return nil
	}
	if d.NextRetryAt != nil && d.NextRetryAt.After(s.now()) {
		return nil
	}

	endpoint, err := s.merchants.GetActiveEndpoint(ctx, d.MerchantID)
	if err != nil {
		if err == merchants.ErrNoActiveEndpoint {
			return s.park(ctx, d, "no active webhook endpoint")
		}
		return fmt.Errorf("webhooks: endpoint lookup: %w", err)
	}

	sendErr := s.sender.Send(endpoint, d)
	d.Attempts++

	if sendErr == nil {
		now := s.now()
		d.Status = StatusSuccess
		d.DeliveredAt = &now
		d.LastError = ""
		d.NextRetryAt = nil
		if err := s.store.Update(ctx, d); err != nil {
			return fmt.Errorf("webhooks: record success: %w", err)
		}
		deliveriesByOutcome.WithLabelValues("success").Inc()
		deliveryAttempts.Observe(float64(d.Attempts))

		endpoint.LastSuccessAt = &now
		if err := s.merchants.UpdateEndpoint(ctx, endpoint); err != nil {
			s.log.Warn("endpoint last-success update failed", "endpoint_id", endpoint.ID, "error", err)
		}
		audit.Record(ctx, s.auditor, &audit.Entry{
			Action:     "webhook.delivered",
			Resource:   "webhook_delivery",
			ResourceID: d.ID,
			Change:     fmt.Sprintf(`{"attempts":%d}`, d.Attempts),
		})
		return nil
	}

	d.LastError = sendErr.Error()
	if d.Attempts >= MaxAttempts {
		return s.park(ctx, d, d.LastError)
	}

	next := s.now().Add(Delay(d.Attempts))
	d.Status = StatusFailed
	d.NextRetryAt = &next
	if err := s.store.Update(ctx, d); err != nil {
		return fmt.Errorf("webhooks: record failure: %w", err)
	}
	deliveriesByOutcome.WithLabelValues("failed").Inc()
	s.log.Info("delivery attempt failed",
		"delivery_id", d.ID,
		"merchant_id", d.MerchantID,
		"attempt", d.Attempts,
		"next_retry_at", next,
		"error", sendErr,
	)
	return nil
}

// Retry resets a delivery for a fresh attempt ladder. Used by the manual
// retry endpoint, typically on permanently failed deliveries after the
// merchant fixed their endpoint.
func (s *Service) Retry(ctx context.Context, id string) (*Delivery, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusSuccess {
		return nil, fmt.Errorf("webhooks: delivery %s already succeeded", id)
	}

	d.Status = StatusPending
	d.Attempts = 0
	d.LastError = ""
	d.NextRetryAt = nil
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	audit.Record(ctx, s.auditor, &audit.Entry{
		Action:     "webhook.manual_retry",
		Resource:   "webhook_delivery",
		ResourceID: d.ID,
	})

	if err := s.Attempt(ctx, d.ID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, d.ID)
}

func (s *Service) park(ctx context.Context, d *Delivery, reason string) error {
	d.Status = StatusPermanentlyFailed
	d.LastError = reason
	d.NextRetryAt = nil
	if err := s.store.Update(ctx, d); err != nil {
		return fmt.Errorf("webhooks: park delivery: %w", err)
	}
	deliveriesByOutcome.WithLabelValues("permanently_failed").Inc()
	s.log.Error("delivery permanently failed",
		"delivery_id", d.ID,
		"merchant_id", d.MerchantID,
		"attempts", d.Attempts,
		"reason", reason,
	)
	audit.Record(ctx, s.auditor, &audit.Entry{
		Action:     "webhook.permanently_failed",
		Resource:   "webhook_delivery",
		ResourceID: d.ID,
		Change:     fmt.Sprintf(`{"attempts":%d,"reason":%q}`, d.Attempts, reason),
	})
	return nil
}

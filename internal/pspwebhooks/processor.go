package pspwebhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/payments"
)

// Processor applies validated provider webhooks to payments.
type Processor struct {
	store    Store
	payments payments.Store
	notifier Notifier
	auditor  audit.Logger
	log      *slog.Logger

	now func() time.Time
}

// NewProcessor builds a webhook processor. notifier may be nil, in which
// case status changes are applied without merchant notification.
func NewProcessor(store Store, pay payments.Store, notifier Notifier, auditor audit.Logger, log *slog.Logger) *Processor {
	return &Processor{
		store:    store,
		payments: pay,
		notifier: notifier,
		auditor:  auditor,
		log:      log,
		now:      time.Now,
	}
}

// webhookEvent covers the payload shapes the providers send. PixNow and
// BoletoHub use {"event", "transaction":{...}}; Stripe uses
// {"type", "data":{"object":{...}}}.
type webhookEvent struct {
	Event       string `json:"event"`
	Type        string `json:"type"`
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"transaction"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

func (e *webhookEvent) eventType() string {
	if e.Event != "" {
		return e.Event
	}
	return e.Type
}

func (e *webhookEvent) paymentID() string {
	switch {
	case e.Transaction.ID != "":
		return e.Transaction.ID
	case e.Data.Object.ID != "":
		return e.Data.Object.ID
	default:
		return e.Data.ID
	}
}

func (e *webhookEvent) status() string {
	switch {
	case e.Transaction.Status != "":
		return e.Transaction.Status
	case e.Data.Object.Status != "":
		return e.Data.Object.Status
	default:
		return e.Data.Status
	}
}

// Process stores the raw webhook then applies it. The webhook is always
// persisted, even when it matches no payment or carries a status we do
// not understand; reprocessing stays possible and the provider gets a 2xx
// so it stops retrying.
func (p *Processor) Process(ctx context.Context, providerName string, payload []byte) (*Received, error) {
	// A payload that fails to parse is still persisted: the signature was
	// valid, so losing it would hide a provider-side format change.
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		p.log.Warn("webhook payload is not valid json", "provider", providerName, "error", err)
	}

	rec := &Received{
		ID:                idgen.WithPrefix("wh_"),
		Provider:          providerName,
		EventType:         event.eventType(),
		ProviderPaymentID: event.paymentID(),
		Payload:           json.RawMessage(payload),
		ReceivedAt:        p.now(),
	}
	if err := p.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("pspwebhooks: store webhook: %w", err)
	}
	webhooksReceived.WithLabelValues(providerName).Inc()

	if rec.ProviderPaymentID == "" {
		p.log.Warn("webhook carries no transaction id", "provider", providerName, "event", rec.EventType)
		return rec, p.markProcessed(ctx, rec)
	}

	payment, err := p.payments.GetByProviderPaymentID(ctx, providerName, rec.ProviderPaymentID)
	if err != nil {
		if err == payments.ErrNotFound {
			p.log.Warn("webhook matches no payment",
				"provider", providerName,
				"provider_payment_id", rec.ProviderPaymentID,
			)
			webhooksUnmatched.WithLabelValues(providerName).Inc()
			return rec, p.markProcessed(ctx, rec)
		}
		return rec, fmt.Errorf("pspwebhooks: payment lookup: %w", err)
	}

	status, ok := payments.StatusFromProvider(event.status())
	if !ok {
		p.log.Warn("webhook carries unknown status",
			"provider", providerName,
			"provider_status", event.status(),
			"payment_id", payment.ID,
		)
		return rec, p.markProcessed(ctx, rec)
	}

	if payment.Status == status {
		// Providers redeliver; an already-applied transition is a no-op.
		return rec, p.markProcessed(ctx, rec)
	}

	if err := p.payments.UpdateStatus(ctx, payment.ID, status, p.now()); err != nil {
		return rec, fmt.Errorf("pspwebhooks: update payment: %w", err)
	}
	statusTransitions.WithLabelValues(providerName, string(status)).Inc()

	audit.Record(ctx, p.auditor, &audit.Entry{
		ActorType:  "provider",
		ActorID:    providerName,
		Action:     "payment.status_changed",
		Resource:   "payment",
		ResourceID: payment.ID,
		Change:     fmt.Sprintf(`{"from":%q,"to":%q}`, payment.Status, status),
	})

	if p.notifier != nil {
		merchantEvent := eventForStatus(status)
		body, err := json.Marshal(map[string]any{
			"event":     merchantEvent,
			"paymentId": payment.ID,
			"status":    status,
			"provider":  providerName,
		})
		if err == nil {
			if err := p.notifier.NotifyPaymentUpdate(ctx, payment.MerchantID, payment.ID, merchantEvent, body); err != nil {
				p.log.Error("merchant notification enqueue failed", "payment_id", payment.ID, "error", err)
			}
		}
	}

	return rec, p.markProcessed(ctx, rec)
}

// eventForStatus names the merchant-facing event for a status transition.
// Statuses merchants act on get their own event type; anything else goes
// out as a generic update.
func eventForStatus(status payments.Status) string {
	switch status {
	case payments.StatusPaid, payments.StatusRefunded, payments.StatusFailed, payments.StatusExpired:
		return "payment." + string(status)
	default:
		return "payment.updated"
	}
}

func (p *Processor) markProcessed(ctx context.Context, rec *Received) error {
	at := p.now()
	if err := p.store.MarkProcessed(ctx, rec.ID, at); err != nil {
		return fmt.Errorf("pspwebhooks: mark processed: %w", err)
	}
	rec.Processed = true
	rec.ProcessedAt = &at
	return nil
}

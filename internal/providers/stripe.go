package providers

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeProvider integrates Stripe card payments.
//
// Webhook signatures reuse Stripe's own scheme: the X-Signature header
// carries the v1 HMAC and X-Timestamp the signed timestamp, which we
// reassemble into the Stripe-Signature format the official SDK verifies.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds the Stripe integration from API and webhook
// signing secrets.
func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) ValidateWebhookSignature(signature string, payload []byte, timestamp int64) bool {
	header := fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
	_, err := webhook.ConstructEventWithOptions(payload, header, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	return err == nil
}

func (p *StripeProvider) GetTransactionReport(ctx context.Context, date time.Time) ([]ReportEntry, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	params := &stripe.ChargeListParams{
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: dayStart.Unix(),
			LesserThan:         dayEnd.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	var entries []ReportEntry
	iter := p.api.Charges.List(params)
	for iter.Next() {
		c := iter.Charge()
		entries = append(entries, ReportEntry{
			ProviderPaymentID: c.ID,
			Status:            string(c.Status),
			AmountCents:       c.Amount,
			Date:              time.Unix(c.Created, 0).UTC(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list charges: %w", err)
	}
	return entries, nil
}

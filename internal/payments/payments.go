// Package payments holds the Payment model and the provider-status
// equivalence table shared by webhook processing and reconciliation.
package payments

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("payments: not found")

// Status is the internal payment state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusPaid       Status = "paid"
	StatusRefunded   Status = "refunded"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// Method is the payment rail.
type Method string

const (
	MethodCard   Method = "card"
	MethodPix    Method = "pix"
	MethodBoleto Method = "boleto"
)

// Payment is a payment routed to a PSP. This package owns PSP-driven
// status transitions; creation and capture belong to the orchestration
// layer.
type Payment struct {
	ID                string     `json:"id"`
	MerchantID        string     `json:"merchantId"`
	Provider          string     `json:"provider"`
	ProviderPaymentID string     `json:"providerPaymentId,omitempty"`
	Method            Method     `json:"method"`
	Status            Status     `json:"status"`
	AmountCents       int64      `json:"amountCents"`
	CPF               string     `json:"cpf,omitempty"`
	CardBIN           string     `json:"cardBin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
}

// providerStatuses maps PSP status vocabulary onto internal statuses.
// Kept as data so onboarding a PSP is a table change, not new branching.
var providerStatuses = map[string]Status{
	// paid
	"paid":      StatusPaid,
	"captured":  StatusPaid,
	"approved":  StatusPaid,
	"succeeded": StatusPaid,
	"concluida": StatusPaid,
	"liquidado": StatusPaid,
	// authorized
	"authorized": StatusAuthorized,
	"autorizada": StatusAuthorized,
	// refunded
	"refunded":   StatusRefunded,
	"devolvida":  StatusRefunded,
	"estornado":  StatusRefunded,
	"chargeback": StatusRefunded,
	// failed
	"failed":   StatusFailed,
	"denied":   StatusFailed,
	"recusada": StatusFailed,
	// expired
	"expired":  StatusExpired,
	"expirada": StatusExpired,
	"vencido":  StatusExpired,
	// cancelled
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"cancelada": StatusCancelled,
	// pending
	"pending":          StatusPending,
	"processing":       StatusPending,
	"waiting_payment":  StatusPending,
	"aguardando":       StatusPending,
	"registrado":       StatusPending,
	"requires_capture": StatusPending,
	"requires_action":  StatusPending,
}

// StatusFromProvider maps a PSP status string onto an internal status.
// The second return is false for unknown vocabulary.
func StatusFromProvider(providerStatus string) (Status, bool) {
	s, ok := providerStatuses[strings.ToLower(strings.TrimSpace(providerStatus))]
	return s, ok
}

// Store persists payments. This subsystem only reads payments and applies
// PSP-driven status transitions.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*Payment, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
	// ListByDateRange returns the provider's payments created inside
	// [from, to) that carry a provider payment id.
	ListByDateRange(ctx context.Context, provider string, from, to time.Time) ([]*Payment, error)
}

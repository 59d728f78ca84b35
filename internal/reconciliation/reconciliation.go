// Package reconciliation compares stored payments against the providers'
// daily settlement reports.
//
// A run never mutates payments: it produces a report of mismatches for
// operators to act on. Missing transactions, diverging statuses, and
// diverging amounts are each classified so the follow-up is obvious.
package reconciliation

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("reconciliation: not found")

// Mismatch classifications.
const (
	MismatchMissingInProvider = "missing_in_provider"
	MismatchStatus            = "status_mismatch"
	MismatchAmount            = "amount_mismatch"
	MismatchStatusAndAmount   = "status_and_amount_mismatch"
)

// Mismatch is one payment that disagrees with the provider's report.
type Mismatch struct {
	PaymentID         string `json:"paymentId"`
	ProviderPaymentID string `json:"providerPaymentId"`
	Provider          string `json:"provider"`
	Type              string `json:"type"`
	LocalStatus       string `json:"localStatus"`
	ProviderStatus    string `json:"providerStatus,omitempty"`
	LocalAmountCents  int64  `json:"localAmountCents"`
	ProviderAmount    int64  `json:"providerAmountCents,omitempty"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Total       int        `json:"total"`
	Matched     int        `json:"matched"`
	Mismatched  int        `json:"mismatched"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// Store persists reconciliation reports.
type Store interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	ListRecent(ctx context.Context, limit int) ([]*Report, error)
}

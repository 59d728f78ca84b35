package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/payments"
	"github.com/tucanopay/tucano/internal/providers"
)

type reportingProvider struct {
	name    string
	entries []providers.ReportEntry
	err     error
}

func (p *reportingProvider) Name() string { return p.name }
func (p *reportingProvider) ValidateWebhookSignature(string, []byte, int64) bool {
	return false
}
func (p *reportingProvider) GetTransactionReport(context.Context, time.Time) ([]providers.ReportEntry, error) {
	return p.entries, p.err
}

var testDay = time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

func seedPayment(t *testing.T, store payments.Store, id, providerPaymentID string, status payments.Status, amount int64) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &payments.Payment{
		ID:                id,
		MerchantID:        "mer_1",
		Provider:          "pixnow",
		ProviderPaymentID: providerPaymentID,
		Status:            status,
		AmountCents:       amount,
		CreatedAt:         testDay.Add(10 * time.Hour),
	}))
}

func newService(t *testing.T, provider providers.Provider) (*Service, payments.Store, *MemoryStore, *audit.MemoryLogger) {
	t.Helper()
	reg := providers.NewRegistry()
	reg.Register(provider)
	pay := payments.NewMemoryStore()
	store := NewMemoryStore()
	auditor := audit.NewMemoryLogger()
	return NewService(reg, pay, store, auditor, slog.Default()), pay, store, auditor
}

func TestRunAllMatched(t *testing.T) {
	provider := &reportingProvider{name: "pixnow", entries: []providers.ReportEntry{
		{ProviderPaymentID: "E1", Status: "concluida", AmountCents: 1000},
	}}
	svc, pay, store, _ := newService(t, provider)
	seedPayment(t, pay, "pay_1", "E1", payments.StatusPaid, 1000)

	report, err := svc.Run(context.Background(), testDay)
	require.NoError(t, err)
	require.Equal(t, 1, report.Total)
	require.Equal(t, 1, report.Matched)
	require.Equal(t, 0, report.Mismatched)
	require.Empty(t, report.Mismatches)

	persisted, err := store.Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, report.Total, persisted.Total)
}

func TestRunClassifiesMismatches(t *testing.T) {
	provider := &reportingProvider{name: "pixnow", entries: []providers.ReportEntry{
		{ProviderPaymentID: "E1", Status: "concluida", AmountCents: 1000}, // status differs
		{ProviderPaymentID: "E2", Status: "concluida", AmountCents: 999},  // amount differs
		{ProviderPaymentID: "E3", Status: "devolvida", AmountCents: 42},   // both differ
		{ProviderPaymentID: "E4", Status: "concluida", AmountCents: 5000}, // agrees
	}}
	svc, pay, _, auditor := newService(t, provider)
	seedPayment(t, pay, "pay_1", "E1", payments.StatusPending, 1000)
	seedPayment(t, pay, "pay_2", "E2", payments.StatusPaid, 1000)
	seedPayment(t, pay, "pay_3", "E3", payments.StatusPaid, 1000)
	seedPayment(t, pay, "pay_4", "E4", payments.StatusPaid, 5000)
	seedPayment(t, pay, "pay_5", "E9", payments.StatusPaid, 700) // not in report

	report, err := svc.Run(context.Background(), testDay)
	require.NoError(t, err)
	require.Equal(t, 5, report.Total)
	require.Equal(t, 1, report.Matched)
	require.Equal(t, 4, report.Mismatched)

	byPayment := make(map[string]string)
	for _, m := range report.Mismatches {
		byPayment[m.PaymentID] = m.Type
	}
	require.Equal(t, MismatchStatus, byPayment["pay_1"])
	require.Equal(t, MismatchAmount, byPayment["pay_2"])
	require.Equal(t, MismatchStatusAndAmount, byPayment["pay_3"])
	require.Equal(t, MismatchMissingInProvider, byPayment["pay_5"])

	require.Len(t, auditor.ByAction("reconciliation.mismatch"), 4)
	require.Len(t, auditor.ByAction("reconciliation.completed"), 1)
}

func TestRunIgnoresPaymentsWithoutProviderID(t *testing.T) {
	provider := &reportingProvider{name: "pixnow"}
	svc, pay, _, auditor := newService(t, provider)

	// Creation failed before the PSP assigned an id; there is nothing to
	// reconcile, so the payment must not show up as missing_in_provider.
	seedPayment(t, pay, "pay_1", "", payments.StatusFailed, 1000)

	report, err := svc.Run(context.Background(), testDay)
	require.NoError(t, err)
	require.Equal(t, 0, report.Total)
	require.Equal(t, 0, report.Mismatched)
	require.Empty(t, report.Mismatches)
	require.Empty(t, auditor.ByAction("reconciliation.mismatch"))
}

func TestRunNeverMutatesPayments(t *testing.T) {
	provider := &reportingProvider{name: "pixnow", entries: []providers.ReportEntry{
		{ProviderPaymentID: "E1", Status: "concluida", AmountCents: 1000},
	}}
	svc, pay, _, _ := newService(t, provider)
	seedPayment(t, pay, "pay_1", "E1", payments.StatusPending, 1000)

	_, err := svc.Run(context.Background(), testDay)
	require.NoError(t, err)

	p, err := pay.Get(context.Background(), "pay_1")
	require.NoError(t, err)
	require.Equal(t, payments.StatusPending, p.Status)
}

func TestRunSkipsFailingProvider(t *testing.T) {
	broken := &reportingProvider{name: "boletohub", err: errors.New("report api down")}
	healthy := &reportingProvider{name: "pixnow", entries: []providers.ReportEntry{
		{ProviderPaymentID: "E1", Status: "concluida", AmountCents: 1000},
	}}

	reg := providers.NewRegistry()
	reg.Register(broken)
	reg.Register(healthy)
	pay := payments.NewMemoryStore()
	auditor := audit.NewMemoryLogger()
	svc := NewService(reg, pay, NewMemoryStore(), auditor, slog.Default())
	seedPayment(t, pay, "pay_1", "E1", payments.StatusPaid, 1000)

	report, err := svc.Run(context.Background(), testDay)
	require.NoError(t, err)
	require.Equal(t, 1, report.Total)
	require.Equal(t, 1, report.Matched)
	require.Len(t, auditor.ByAction("reconciliation_error"), 1)
}

package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/payments"
	"github.com/tucanopay/tucano/internal/providers"
)

// Service runs reconciliation against all registered providers.
type Service struct {
	registry *providers.Registry
	payments payments.Store
	store    Store
	auditor  audit.Logger
	log      *slog.Logger

	now func() time.Time
}

// NewService builds a reconciliation service. store may be nil if reports
// are not persisted.
func NewService(registry *providers.Registry, pay payments.Store, store Store, auditor audit.Logger, log *slog.Logger) *Service {
	return &Service{
		registry: registry,
		payments: pay,
		store:    store,
		auditor:  auditor,
		log:      log,
		now:      time.Now,
	}
}

// Run reconciles the given calendar day (UTC) against every provider and
// returns the combined report. A provider whose report cannot be fetched
// is skipped, audited, and does not fail the run.
func (s *Service) Run(ctx context.Context, date time.Time) (*Report, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	report := &Report{
		ID:          idgen.WithPrefix("rec_"),
		Date:        day,
		GeneratedAt: s.now(),
		Mismatches:  []Mismatch{},
	}

	for _, provider := range s.registry.All() {
		if err := s.reconcileProvider(ctx, provider, day, report); err != nil {
			s.log.Error("provider reconciliation failed",
				"provider", provider.Name(),
				"date", day.Format("2006-01-02"),
				"error", err,
			)
			runErrors.WithLabelValues(provider.Name()).Inc()
			audit.Record(ctx, s.auditor, &audit.Entry{
				ActorType: "system",
				Action:    "reconciliation_error",
				Resource:  "reconciliation_report",
				Change:    fmt.Sprintf(`{"provider":%q,"error":%q}`, provider.Name(), err.Error()),
			})
		}
	}

	report.Matched = report.Total - report.Mismatched

	if s.store != nil {
		if err := s.store.Create(ctx, report); err != nil {
			return report, fmt.Errorf("reconciliation: persist report: %w", err)
		}
	}

	mismatchGauge.Set(float64(report.Mismatched))
	audit.Record(ctx, s.auditor, &audit.Entry{
		ActorType:  "system",
		Action:     "reconciliation.completed",
		Resource:   "reconciliation_report",
		ResourceID: report.ID,
		Change: fmt.Sprintf(`{"date":%q,"total":%d,"matched":%d,"mismatched":%d}`,
			day.Format("2006-01-02"), report.Total, report.Matched, report.Mismatched),
	})
	s.log.Info("reconciliation run finished",
		"report_id", report.ID,
		"date", day.Format("2006-01-02"),
		"total", report.Total,
		"mismatched", report.Mismatched,
	)
	return report, nil
}

func (s *Service) reconcileProvider(ctx context.Context, provider providers.Provider, day time.Time, report *Report) error {
	entries, err := provider.GetTransactionReport(ctx, day)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	byID := make(map[string]providers.ReportEntry, len(entries))
	for _, e := range entries {
		byID[e.ProviderPaymentID] = e
	}

	local, err := s.payments.ListByDateRange(ctx, provider.Name(), day, day.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}

	for _, p := range local {
		report.Total++
		m := s.compare(p, byID)
		if m == nil {
			continue
		}
		report.Mismatched++
		report.Mismatches = append(report.Mismatches, *m)
		mismatchesTotal.WithLabelValues(provider.Name(), m.Type).Inc()
		audit.Record(ctx, s.auditor, &audit.Entry{
			ActorType:  "system",
			Action:     "reconciliation.mismatch",
			Resource:   "payment",
			ResourceID: p.ID,
			Change: fmt.Sprintf(`{"type":%q,"local_status":%q,"provider_status":%q}`,
				m.Type, m.LocalStatus, m.ProviderStatus),
		})
	}
	return nil
}

// compare classifies one payment against the provider's report. A nil
// result means the two sides agree.
func (s *Service) compare(p *payments.Payment, byID map[string]providers.ReportEntry) *Mismatch {
	entry, found := byID[p.ProviderPaymentID]
	if !found {
		return &Mismatch{
			PaymentID:         p.ID,
			ProviderPaymentID: p.ProviderPaymentID,
			Provider:          p.Provider,
			Type:              MismatchMissingInProvider,
			LocalStatus:       string(p.Status),
			LocalAmountCents:  p.AmountCents,
		}
	}

	statusDiffers := true
	if normalized, ok := payments.StatusFromProvider(entry.Status); ok && normalized == p.Status {
		statusDiffers = false
	}
	amountDiffers := entry.AmountCents != p.AmountCents

	if !statusDiffers && !amountDiffers {
		return nil
	}

	mismatchType := MismatchStatus
	switch {
	case statusDiffers && amountDiffers:
		mismatchType = MismatchStatusAndAmount
	case amountDiffers:
		mismatchType = MismatchAmount
	}

	return &Mismatch{
		PaymentID:         p.ID,
		ProviderPaymentID: p.ProviderPaymentID,
		Provider:          p.Provider,
		Type:              mismatchType,
		LocalStatus:       string(p.Status),
		ProviderStatus:    entry.Status,
		LocalAmountCents:  p.AmountCents,
		ProviderAmount:    entry.AmountCents,
	}
}

// Package providers abstracts the payment service providers (PSPs) the
// platform integrates with.
//
// Each provider knows how to validate the signature of its own inbound
// webhooks and how to fetch a settlement report for a calendar day. New
// integrations implement Provider and register under a stable name.
package providers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrUnknownProvider = errors.New("providers: unknown provider")

// ReportEntry is one transaction in a provider's daily settlement report,
// normalized to the fields reconciliation compares.
type ReportEntry struct {
	ProviderPaymentID string
	Status            string
	AmountCents       int64
	Date              time.Time
}

// Provider is one PSP integration.
type Provider interface {
	// Name is the stable identifier used in the X-Provider header and
	// on stored payments.
	Name() string

	// ValidateWebhookSignature checks an inbound webhook signature
	// against the provider's scheme. timestamp is the value of the
	// X-Timestamp header, already parsed.
	ValidateWebhookSignature(signature string, payload []byte, timestamp int64) bool

	// GetTransactionReport fetches the provider's transactions for the
	// given calendar day (UTC).
	GetTransactionReport(ctx context.Context, date time.Time) ([]ReportEntry, error)
}

// Registry holds the configured providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Registering the same name twice replaces the
// earlier entry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// All returns every registered provider, ordered by name for stable
// iteration in reconciliation runs.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Worker drains due deliveries on a fixed interval. The enqueue path
// already fires a first attempt; the worker exists for retries and for
// deliveries whose first attempt never ran.
type Worker struct {
	service  *Service
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewWorker creates a delivery worker.
func NewWorker(service *Service, store Store, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Worker{
		service:  service,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the worker loop is actively running.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Start begins the delivery loop. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.safeSweep(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *Worker) Stop() {
	select {
	case w.stop <- struct{}{}:
	default:
	}
}

func (w *Worker) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic in delivery worker", "panic", fmt.Sprint(r))
		}
	}()
	w.Sweep(ctx)
}

// Sweep attempts every due delivery once. One delivery's failure never
// blocks the rest of the batch.
func (w *Worker) Sweep(ctx context.Context) {
	const batchSize = 100

	due, err := w.store.ListDue(ctx, time.Now(), batchSize)
	if err != nil {
		w.logger.Warn("failed to list due deliveries", "error", err)
		return
	}

	for _, d := range due {
		if ctx.Err() != nil {
			return
		}
		if err := w.service.Attempt(ctx, d.ID); err != nil {
			w.logger.Warn("delivery attempt errored", "delivery_id", d.ID, "error", err)
		}
	}
	if len(due) > 0 {
		w.logger.Debug("delivery sweep finished", "batch", len(due))
	}
}

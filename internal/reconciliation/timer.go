package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Timer runs reconciliation for the previous day once a day at a fixed
// UTC hour.
type Timer struct {
	service *Service
	hourUTC int
	logger  *slog.Logger
	stop    chan struct{}
	running atomic.Bool
	lastRun time.Time
}

// NewTimer creates a reconciliation timer firing at hourUTC.
func NewTimer(service *Service, hourUTC int, logger *slog.Logger) *Timer {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 4
	}
	return &Timer{
		service: service,
		hourUTC: hourUTC,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Running reports whether the timer loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the daily loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if now.Hour() != t.hourUTC {
				continue
			}
			if t.lastRun.Year() == now.Year() && t.lastRun.YearDay() == now.YearDay() {
				continue
			}
			t.lastRun = now
			t.safeRun(ctx, now.AddDate(0, 0, -1))
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeRun(ctx context.Context, date time.Time) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in reconciliation timer", "panic", fmt.Sprint(r))
		}
	}()

	if _, err := t.service.Run(ctx, date); err != nil {
		t.logger.Warn("reconciliation run failed", "error", err)
	}
}

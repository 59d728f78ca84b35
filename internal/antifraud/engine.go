package antifraud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/counters"
)

// Engine evaluates payment attempts against the rule chain.
type Engine struct {
	store     counters.Store
	blacklist BlacklistStore
	auditor   audit.Logger
	logger    *slog.Logger

	velocityLimit   int64
	velocityWindow  time.Duration
	failureWindow   time.Duration
	failuresToBlock int64
	blockDuration   time.Duration
}

// NewEngine creates an antifraud engine with default thresholds.
func NewEngine(store counters.Store, blacklist BlacklistStore, auditor audit.Logger, logger *slog.Logger) *Engine {
	return &Engine{
		store:           store,
		blacklist:       blacklist,
		auditor:         auditor,
		logger:          logger,
		velocityLimit:   DefaultVelocityLimit,
		velocityWindow:  DefaultVelocityWindow,
		failureWindow:   DefaultFailureWindow,
		failuresToBlock: DefaultFailuresToBlock,
		blockDuration:   DefaultBlockDuration,
	}
}

// WithVelocityLimit overrides the per-IP requests-per-window limit.
func (e *Engine) WithVelocityLimit(limit int64) *Engine {
	e.velocityLimit = limit
	return e
}

// WithBlockThresholds overrides the adaptive block ladder.
func (e *Engine) WithBlockThresholds(failures int64, window, blockFor time.Duration) *Engine {
	e.failuresToBlock = failures
	e.failureWindow = window
	e.blockDuration = blockFor
	return e
}

// CheckPayment evaluates a payment attempt. Rules run in order and
// short-circuit on the first rejection. cpf and bin may be empty (PIX
// attempts carry no BIN; card attempts may omit CPF).
func (e *Engine) CheckPayment(ctx context.Context, ip, cpf, bin string, amountCents int64) Decision {
	blocked, err := e.store.Exists(ctx, blockKey(ip))
	if err != nil {
		return e.reject(ctx, ip, RuleAdaptiveIPBlock, "block store unavailable: "+err.Error(), amountCents)
	}
	if blocked {
		return e.reject(ctx, ip, RuleAdaptiveIPBlock, "ip temporarily blocked", amountCents)
	}

	count, err := e.store.RecordInWindow(ctx, velocityKey(ip), e.velocityWindow)
	if err != nil {
		return e.reject(ctx, ip, RuleIPVelocity, "velocity store unavailable: "+err.Error(), amountCents)
	}
	if count > e.velocityLimit {
		return e.reject(ctx, ip, RuleIPVelocity,
			fmt.Sprintf("%d requests in %s exceeds limit %d", count, e.velocityWindow, e.velocityLimit), amountCents)
	}

	if cpf != "" {
		listed, err := e.blacklist.IsCPFBlacklisted(ctx, cpf)
		if err != nil {
			return e.reject(ctx, ip, RuleCPFBlacklist, "blacklist unavailable: "+err.Error(), amountCents)
		}
		if listed {
			return e.reject(ctx, ip, RuleCPFBlacklist, "cpf is blacklisted", amountCents)
		}
	}

	if bin != "" {
		listed, err := e.blacklist.IsBINBlacklisted(ctx, bin)
		if err != nil {
			return e.reject(ctx, ip, RuleBINBlacklist, "blacklist unavailable: "+err.Error(), amountCents)
		}
		if listed {
			return e.reject(ctx, ip, RuleBINBlacklist, "card bin is blacklisted", amountCents)
		}
	}

	checksTotal.WithLabelValues("allowed").Inc()
	return Decision{Allowed: true}
}

// RecordFailedAttempt counts a failed attempt for ip. Reaching the failure
// threshold inside the window activates a temporary block.
func (e *Engine) RecordFailedAttempt(ctx context.Context, ip string) {
	count, err := e.store.RecordInWindow(ctx, failureKey(ip), e.failureWindow)
	if err != nil {
		e.logger.Warn("antifraud: failed to record attempt", "ip", ip, "error", err)
		return
	}
	if count < e.failuresToBlock {
		return
	}

	set, err := e.store.SetNX(ctx, blockKey(ip), e.blockDuration)
	if err != nil {
		e.logger.Warn("antifraud: failed to set ip block", "ip", ip, "error", err)
		return
	}
	if !set {
		return // already blocked
	}

	blocksActivated.Inc()
	e.logger.Warn("antifraud: ip blocked", "ip", ip, "failures", count, "duration", e.blockDuration)

	change, _ := json.Marshal(map[string]interface{}{
		"failures":   count,
		"window":     e.failureWindow.String(),
		"blockedFor": e.blockDuration.String(),
	})
	if err := audit.Record(ctx, e.auditor, &audit.Entry{
		Action:     "antifraud.ip_block_activated",
		Resource:   "ip",
		ResourceID: ip,
		Change:     string(change),
	}); err != nil {
		e.logger.Error("antifraud: audit write failed", "error", err)
	}
}

// IsIPBlocked reports whether ip currently has an active adaptive block.
func (e *Engine) IsIPBlocked(ctx context.Context, ip string) bool {
	blocked, err := e.store.Exists(ctx, blockKey(ip))
	if err != nil {
		e.logger.Warn("antifraud: block lookup failed", "ip", ip, "error", err)
		return false
	}
	return blocked
}

func (e *Engine) reject(ctx context.Context, ip string, rule Rule, reason string, amountCents int64) Decision {
	rejectionsTotal.WithLabelValues(string(rule)).Inc()
	checksTotal.WithLabelValues("rejected").Inc()

	change, _ := json.Marshal(map[string]interface{}{
		"rule":        string(rule),
		"reason":      reason,
		"amountCents": amountCents,
	})
	if err := audit.Record(ctx, e.auditor, &audit.Entry{
		Action:     "antifraud.rejected",
		Resource:   "payment_attempt",
		ResourceID: ip,
		Change:     string(change),
	}); err != nil {
		e.logger.Error("antifraud: audit write failed", "error", err)
	}

	return Decision{Allowed: false, Rule: rule, Reason: reason}
}

func blockKey(ip string) string    { return "af:block:" + ip }
func velocityKey(ip string) string { return "af:vel:" + ip }
func failureKey(ip string) string  { return "af:fail:" + ip }

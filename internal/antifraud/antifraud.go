// Package antifraud decides whether a payment attempt may proceed.
//
// Rules run in a fixed order and short-circuit: adaptive IP block, IP
// velocity, CPF blacklist, BIN blacklist. The engine fails closed — a
// store failure rejects the attempt — and every rejection and block
// activation is audited.
package antifraud

import (
	"context"
	"time"
)

// Rule identifies which check rejected an attempt.
type Rule string

const (
	RuleAdaptiveIPBlock Rule = "AdaptiveIpBlock"
	RuleIPVelocity      Rule = "IpVelocity"
	RuleCPFBlacklist    Rule = "CpfBlacklist"
	RuleBINBlacklist    Rule = "BinBlacklist"
)

// Decision is the outcome of an antifraud evaluation.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Rule    Rule   `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// BlacklistStore persists static CPF and card-BIN blacklists.
type BlacklistStore interface {
	IsCPFBlacklisted(ctx context.Context, cpf string) (bool, error)
	IsBINBlacklisted(ctx context.Context, bin string) (bool, error)
	AddCPF(ctx context.Context, cpf, reason string) error
	AddBIN(ctx context.Context, bin, reason string) error
	RemoveCPF(ctx context.Context, cpf string) error
	RemoveBIN(ctx context.Context, bin string) error
}

// Defaults for the adaptive block ladder.
const (
	DefaultVelocityLimit   = 10
	DefaultVelocityWindow  = time.Minute
	DefaultFailureWindow   = 10 * time.Minute
	DefaultFailuresToBlock = 3
	DefaultBlockDuration   = time.Hour
)

// Package audit records every security-relevant decision the platform makes.
//
// Antifraud rejections, webhook validation failures, delivery outcomes, and
// reconciliation findings all flow through the Logger. Entries are
// append-only and queried by resource for compliance review.
package audit

import (
	"context"
	"time"
)

type contextKey string

const (
	ctxActorType contextKey = "audit_actor_type"
	ctxActorID   contextKey = "audit_actor_id"
	ctxIPAddress contextKey = "audit_ip"
	ctxRequestID contextKey = "audit_request_id"
)

// WithActor attaches actor info to the context for audit logging.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, ctxActorType, actorType)
	ctx = context.WithValue(ctx, ctxActorID, actorID)
	return ctx
}

// WithIP attaches the client IP for audit logging.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxIPAddress, ip)
}

// WithRequestID attaches a request ID for audit correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// ActorFromContext extracts actor info previously attached with the With*
// helpers. Actor type defaults to "system".
func ActorFromContext(ctx context.Context) (actorType, actorID, ip, requestID string) {
	actorType = "system"
	if v, ok := ctx.Value(ctxActorType).(string); ok {
		actorType = v
	}
	if v, ok := ctx.Value(ctxActorID).(string); ok {
		actorID = v
	}
	if v, ok := ctx.Value(ctxIPAddress).(string); ok {
		ip = v
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		requestID = v
	}
	return
}

// Entry is a single audit record.
type Entry struct {
	ID         int64     `json:"id"`
	ActorType  string    `json:"actorType"` // "merchant", "provider", "system"
	ActorID    string    `json:"actorId,omitempty"`
	Action     string    `json:"action"`   // e.g. "webhook.rejected.nonce_reused"
	Resource   string    `json:"resource"` // e.g. "payment", "webhook_delivery"
	ResourceID string    `json:"resourceId,omitempty"`
	Change     string    `json:"change,omitempty"` // JSON before/after or detail payload
	IPAddress  string    `json:"ipAddress,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Logger persists audit entries.
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, resource, resourceID string, from, to time.Time, action string, limit int) ([]*Entry, error)
}

// Record fills actor fields from context and logs the entry. It is the
// preferred way to emit audit events from services.
func Record(ctx context.Context, l Logger, entry *Entry) error {
	if l == nil {
		return nil
	}
	if entry.ActorType == "" {
		entry.ActorType, entry.ActorID, entry.IPAddress, entry.RequestID = ActorFromContext(ctx)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return l.Log(ctx, entry)
}

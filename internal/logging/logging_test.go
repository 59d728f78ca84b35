package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	logger := New("debug", "text")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_123")
	if got := RequestID(ctx); got != "req_123" {
		t.Errorf("Expected req_123, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("Expected empty request ID, got %q", got)
	}
}

func TestL_AnnotatesRequestID(t *testing.T) {
	base := New("info", "text")
	ctx := WithLogger(context.Background(), base)
	ctx = WithRequestID(ctx, "req_abc")
	if L(ctx) == nil {
		t.Fatal("Expected non-nil logger from L")
	}
}

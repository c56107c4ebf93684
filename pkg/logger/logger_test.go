package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFallsBackToInfo(t *testing.T) {
	l := New(Config{Level: "chatty", Encoding: "console"})
	if l.Core().Enabled(zap.DebugLevel) {
		t.Error("expected debug to be disabled for an unparsable level")
	}
	if !l.Core().Enabled(zap.InfoLevel) {
		t.Error("expected info to be enabled")
	}
}

func TestWithCorrelationID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	WithCorrelationID(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["correlation_id"]; got != "corr-1" {
		t.Errorf("expected correlation_id corr-1, got %v", got)
	}
}

func TestWithCorrelationIDMissing(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	WithCorrelationID(context.Background(), base).Info("hello")

	if _, ok := logs.All()[0].ContextMap()["correlation_id"]; ok {
		t.Error("did not expect a correlation_id field")
	}
	if CorrelationID(context.Background()) != "" {
		t.Error("expected empty correlation id")
	}
}

package slog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"llmgate/providers/observability"
)

func newTestObserver() (*Observer, *bytes.Buffer) {
	var output bytes.Buffer
	handler := slog.NewTextHandler(&output, &slog.HandlerOptions{
		Level:       LevelTrace,
		ReplaceAttr: ReplaceAttr,
	})
	return New(slog.New(handler)), &output
}

// TestObserver_LogLevels verifies each logger method writes a record with the
// message and attributes.
func TestObserver_LogLevels(t *testing.T) {
	observer, output := newTestObserver()
	ctx := context.Background()

	observer.Trace(ctx, "trace message", observability.String("k", "v"))
	observer.Info(ctx, "info message")
	observer.Error(ctx, "error message", observability.Error(errors.New("boom")))

	logged := output.String()
	for _, want := range []string{"trace message", "TRACE", "info message", "error message", "boom", "k=v"} {
		if !strings.Contains(logged, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, logged)
		}
	}
}

// TestObserver_SpanLifecycle verifies spans log start, events, and end with a
// duration, and that the span is reachable through the returned context.
func TestObserver_SpanLifecycle(t *testing.T) {
	observer, output := newTestObserver()

	ctx, span := observer.StartSpan(context.Background(), "gateway.turn",
		observability.String(observability.AttrLLMProvider, "claude"))

	if observability.SpanFromContext(ctx) != span {
		t.Error("expected the started span to be attached to the returned context")
	}

	span.AddEvent("llm.request.start")
	span.SetStatus(observability.StatusError, "classified failure")
	span.End()

	logged := output.String()
	for _, want := range []string{"span.start", "llm.request.start", "span.end", "duration", "classified failure"} {
		if !strings.Contains(logged, want) {
			t.Errorf("expected span output to contain %q, got:\n%s", want, logged)
		}
	}
}

// TestNew_NilLoggerFallsBack ensures a nil logger does not panic.
func TestNew_NilLoggerFallsBack(t *testing.T) {
	observer := New(nil)
	if observer == nil {
		t.Fatal("New(nil) returned nil")
	}
}

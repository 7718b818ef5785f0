package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	runKey ctxKey = iota
	callKey
)

// NewRunID generates an id for a run. Results are only cached within a run.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID tags ctx with the run a tool call belongs to
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey, runID)
}

// RunID returns the run id carried by ctx, or ""
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(runKey).(string)
	return runID
}

// WithCallID tags ctx with the step id of a call inside a batch
func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, callKey, callID)
}

// CallID returns the batch step id carried by ctx, or ""
func CallID(ctx context.Context) string {
	callID, _ := ctx.Value(callKey).(string)
	return callID
}

// LoggerFromContext returns base with the run and call ids of ctx, plus the
// trace and span ids when ctx carries a sampled span.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	lc := base.With()
	if runID := RunID(ctx); runID != "" {
		lc = lc.Str("run_id", runID)
	}
	if callID := CallID(ctx); callID != "" {
		lc = lc.Str("call_id", callID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String())
	}
	return lc.Logger()
}

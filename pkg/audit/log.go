package audit

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LogSink writes records as JSON lines and mirrors them as span events
// when the context carries a recording span.
type LogSink struct {
	logger zerolog.Logger
	mu     sync.Mutex
	file   *os.File
}

// NewLogSink creates a sink writing to w
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// OpenLogSink creates a sink appending to the file at path
func OpenLogSink(path string) (*LogSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audit log")
	}

	sink := NewLogSink(file)
	sink.file = file
	return sink, nil
}

// Create emits the record
func (s *LogSink) Create(ctx context.Context, record Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(record.Action, trace.WithAttributes(
			attribute.String("audit.id", record.ID),
			attribute.String("audit.resource_type", record.ResourceType),
			attribute.String("audit.resource_id", record.ResourceID),
			attribute.String("audit.org_id", record.OrgID),
		))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.logger.Log().
		Str("id", record.ID).
		Str("org_id", record.OrgID).
		Str("user_id", record.UserID).
		Str("action", record.Action).
		Str("resource_type", record.ResourceType).
		Str("resource_id", record.ResourceID).
		Time("created_at", record.CreatedAt)

	if span.SpanContext().IsValid() {
		entry.Str("trace_id", span.SpanContext().TraceID().String())
	}
	if record.Metadata != nil {
		entry.Interface("metadata", record.Metadata)
	}

	entry.Msg("")
	return nil
}

// Close closes the underlying file, if any
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

package realtycms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// logSinkError records a failed event delivery. The content change itself has
// already been stored, so the caller still succeeds.
func logSinkError(ctx context.Context, kind Kind, op string, err error) {
	if err != nil {
		slog.WarnContext(ctx, "Event sink failed", "kind", kind, "op", op, "err", err)
	}
}

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ContentCreated(ctx context.Context, kind Kind, id uuid.UUID, slug string) error {
	return nil
}

func (n *NoopEventSink) ContentUpdated(ctx context.Context, kind Kind, id uuid.UUID, op string) error {
	return nil
}

func (n *NoopEventSink) ContentDeleted(ctx context.Context, kind Kind, id uuid.UUID) error {
	return nil
}

// LoggingEventSink logs events but takes no other action
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ContentCreated(ctx context.Context, kind Kind, id uuid.UUID, slug string) error {
	l.logger.InfoContext(ctx, "Content created", "kind", kind, "id", id, "slug", slug)
	return nil
}

func (l *LoggingEventSink) ContentUpdated(ctx context.Context, kind Kind, id uuid.UUID, op string) error {
	l.logger.InfoContext(ctx, "Content updated", "kind", kind, "id", id, "op", op)
	return nil
}

func (l *LoggingEventSink) ContentDeleted(ctx context.Context, kind Kind, id uuid.UUID) error {
	l.logger.InfoContext(ctx, "Content deleted", "kind", kind, "id", id)
	return nil
}

// MultiEventSink fans events out to several sinks and returns the first error.
type MultiEventSink []EventSink

func (m MultiEventSink) ContentCreated(ctx context.Context, kind Kind, id uuid.UUID, slug string) error {
	var first error
	for _, s := range m {
		if err := s.ContentCreated(ctx, kind, id, slug); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) ContentUpdated(ctx context.Context, kind Kind, id uuid.UUID, op string) error {
	var first error
	for _, s := range m {
		if err := s.ContentUpdated(ctx, kind, id, op); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) ContentDeleted(ctx context.Context, kind Kind, id uuid.UUID) error {
	var first error
	for _, s := range m {
		if err := s.ContentDeleted(ctx, kind, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

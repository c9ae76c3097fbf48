package sync

import (
	"log/slog"
	"sync"
)

// SkipEvent is the observable diagnostic emitted when a change record is
// skipped. Skips are a forward-compatibility stance, not errors; the sink
// exists so tests and telemetry can see them.
type SkipEvent struct {
	RecordID   string
	RecordType string
	Reason     string
}

// EventSink receives skip diagnostics.
type EventSink interface {
	RecordSkipped(event SkipEvent)
}

// LoggerSink reports skips through slog at debug level.
type LoggerSink struct {
	Logger *slog.Logger
}

func (s LoggerSink) RecordSkipped(event SkipEvent) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug("sync record skipped",
		slog.String("record_id", event.RecordID),
		slog.String("record_type", event.RecordType),
		slog.String("reason", event.Reason),
	)
}

// CollectorSink accumulates skip events for assertions.
type CollectorSink struct {
	mu     sync.Mutex
	events []SkipEvent
}

func (s *CollectorSink) RecordSkipped(event SkipEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the collected skip events.
func (s *CollectorSink) Events() []SkipEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SkipEvent, len(s.events))
	copy(out, s.events)
	return out
}

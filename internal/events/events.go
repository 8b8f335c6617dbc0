// Package events defines the ordered log/progress event stream emitted by
// the enrichment pipeline and the Sink abstraction its observers implement.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a LogEvent for display and filtering.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityProgress Severity = "progress"
)

// LogEvent is one entry in the append-only event stream. Events are ordered
// by emission time and never mutated after being emitted.
type LogEvent struct {
	Message   string    `json:"message"`
	Type      Severity  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives pipeline events. Emit is fire-and-forget: implementations
// must not block the pipeline and must preserve emission order.
type Sink interface {
	Emit(message string, severity Severity)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(message string, severity Severity)

func (f SinkFunc) Emit(message string, severity Severity) {
	f(message, severity)
}

// Discard is a Sink that drops every event.
var Discard = SinkFunc(func(string, Severity) {})

// Collector is an in-memory Sink that records events in emission order.
// It is safe for one producer and concurrent readers.
type Collector struct {
	mu     sync.Mutex
	events []LogEvent
}

func (c *Collector) Emit(message string, severity Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, LogEvent{
		Message:   message,
		Type:      severity,
		Timestamp: time.Now().UTC(),
	})
}

// Events returns a copy of all events collected so far.
func (c *Collector) Events() []LogEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEvent, len(c.events))
	copy(out, c.events)
	return out
}

// SlogSink forwards events to a structured logger, mapping severities to
// slog levels.
type SlogSink struct {
	Logger *slog.Logger
}

func (s *SlogSink) Emit(message string, severity Severity) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch severity {
	case SeverityWarning:
		logger.Warn(message)
	case SeverityError:
		logger.Error(message)
	default:
		logger.Info(message, "kind", string(severity))
	}
}

// Package stream implements the push-only framed event channel between a
// running analysis and its observer. Frames are newline-delimited
// `data: <json>` records in the server-sent-events style: every pipeline
// event becomes one frame, and exactly one terminal record closes the
// stream.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/callsight-ai/callsight/internal/events"
	"github.com/callsight-ai/callsight/internal/stats"
)

// TerminalRecord is the single closing frame of a stream.
type TerminalRecord struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    *stats.Snapshot `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Writer frames events onto an io.Writer. It implements events.Sink, so it
// plugs straight into the orchestrator. Emit and Close must be called from
// a single goroutine; the pipeline's event stream is already ordered.
type Writer struct {
	w      io.Writer
	flush  func()
	closed bool
}

// NewWriter wraps w. If w is an http.Flusher (an http.ResponseWriter in
// streaming mode), each frame is flushed so observers see events live.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		sw.flush = f.Flush
	}
	return sw
}

// Emit implements events.Sink. Emission is fire-and-forget: a broken
// transport is logged, not surfaced to the pipeline.
func (sw *Writer) Emit(message string, severity events.Severity) {
	if sw.closed {
		return
	}
	ev := events.LogEvent{
		Message:   message,
		Type:      severity,
		Timestamp: time.Now().UTC(),
	}
	if err := sw.writeFrame(ev); err != nil {
		slog.Debug("dropping stream frame", "error", err)
	}
}

// Close writes the terminal record. Further Emit calls are ignored, and
// calling Close again is a no-op.
func (sw *Writer) Close(t TerminalRecord) error {
	if sw.closed {
		return nil
	}
	sw.closed = true
	return sw.writeFrame(t)
}

func (sw *Writer) writeFrame(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	sw.flush()
	return nil
}

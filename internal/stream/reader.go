package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/callsight-ai/callsight/internal/events"
)

var frameBoundary = []byte("\n\n")

// Frame is one decoded stream record: either a pipeline event or the
// terminal record, never both.
type Frame struct {
	Event    *events.LogEvent
	Terminal *TerminalRecord
}

// Reader decodes frames from the receiving end of a stream. It keeps a
// rolling buffer so a frame split across transport chunks is reassembled,
// skips frames that do not parse, and flushes whatever remains in the
// buffer when the channel closes, with or without a terminal record.
type Reader struct {
	src   io.Reader
	buf   bytes.Buffer
	chunk []byte
	eof   bool
}

// NewReader wraps src, typically a streaming HTTP response body.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, chunk: make([]byte, 4096)}
}

// Next returns the next decoded frame, or io.EOF once the stream is
// exhausted. Transport errors other than end-of-stream are returned as-is.
func (r *Reader) Next() (Frame, error) {
	for {
		if i := bytes.Index(r.buf.Bytes(), frameBoundary); i >= 0 {
			raw := make([]byte, i)
			copy(raw, r.buf.Bytes()[:i])
			r.buf.Next(i + len(frameBoundary))

			if f, ok := decodeFrame(raw); ok {
				return f, nil
			}
			continue
		}

		if r.eof {
			// Trailing-buffer flush: the stream may close without the
			// final boundary, or without a terminal record at all.
			rest := bytes.TrimSpace(r.buf.Bytes())
			r.buf.Reset()
			if len(rest) > 0 {
				if f, ok := decodeFrame(rest); ok {
					return f, nil
				}
			}
			return Frame{}, io.EOF
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf.Write(r.chunk[:n])
		}
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return Frame{}, fmt.Errorf("reading stream: %w", err)
		}
	}
}

// decodeFrame parses one raw frame. Unparseable frames are logged and
// dropped rather than failing the stream.
func decodeFrame(raw []byte) (Frame, bool) {
	payload := bytes.TrimSpace(raw)
	payload = bytes.TrimPrefix(payload, []byte("data:"))
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return Frame{}, false
	}

	// The terminal record is the only frame carrying a "success" key.
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		slog.Warn("discarding unparseable stream frame", "frame", string(excerptBytes(payload)))
		return Frame{}, false
	}

	if probe.Success != nil {
		var t TerminalRecord
		if err := json.Unmarshal(payload, &t); err != nil {
			slog.Warn("discarding malformed terminal record", "error", err)
			return Frame{}, false
		}
		return Frame{Terminal: &t}, true
	}

	var ev events.LogEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Message == "" {
		slog.Warn("discarding malformed event frame", "frame", string(excerptBytes(payload)))
		return Frame{}, false
	}
	return Frame{Event: &ev}, true
}

func excerptBytes(b []byte) []byte {
	if len(b) > 200 {
		return b[:200]
	}
	return b
}

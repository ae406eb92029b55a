package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DoneSentinel terminates every event stream written by the relay.
const DoneSentinel = "[DONE]"

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SSEWriter writes "data: <payload>\n\n" frames and flushes each one.
// Once a write fails every later Send is dropped and returns that error.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

// NewSSEWriter wraps w. It fails when w does not support flushing.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Open commits the SSE headers so the client can start listening before the
// first event exists.
func (s *SSEWriter) Open() {
	SetupSSEHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// Send marshals payload as JSON and writes it as one frame.
func (s *SSEWriter) Send(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	return s.SendRaw(string(data))
}

// SendRaw writes data verbatim as one frame.
func (s *SSEWriter) SendRaw(data string) error {
	if s.err != nil {
		return s.err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.err = err
		return err
	}
	s.flusher.Flush()
	return nil
}

// Done writes the terminal sentinel frame.
func (s *SSEWriter) Done() error {
	return s.SendRaw(DoneSentinel)
}

// Err returns the first write error, if any.
func (s *SSEWriter) Err() error {
	return s.err
}

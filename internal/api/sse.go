package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stream event types. Every answer-generation endpoint frames its response as
// a sequence of `data: <JSON>\n\n` lines; exactly one END (or terminal ERROR)
// closes the logical stream.
const (
	StreamSuccess = "SUCCESS"
	StreamError   = "ERROR"
	StreamWarning = "WARNING"
	StreamEnd     = "END"
)

// StreamEvent is the JSON payload of one SSE line.
type StreamEvent struct {
	Type    string      `json:"type"`
	Message interface{} `json:"message"`
}

// StreamWriter writes SSE-framed events. Once a terminal event (END or ERROR)
// has been written, further writes are silently dropped.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewStreamWriter sets SSE headers and flushes them immediately.
func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	return &StreamWriter{w: w, flusher: flusher}
}

// Closed reports whether a terminal event has been written.
func (s *StreamWriter) Closed() bool {
	return s.closed
}

// Send writes one SUCCESS event carrying a fragment of the answer.
func (s *StreamWriter) Send(message string) {
	s.write(StreamEvent{Type: StreamSuccess, Message: message})
}

// Warn writes one WARNING event; the stream stays open.
func (s *StreamWriter) Warn(message string) {
	s.write(StreamEvent{Type: StreamWarning, Message: message})
}

// End writes the single terminal END event and closes the logical stream.
func (s *StreamWriter) End() {
	s.write(StreamEvent{Type: StreamEnd, Message: "Streaming complete"})
	s.closed = true
}

// Fail writes the single terminal ERROR event and closes the logical stream.
func (s *StreamWriter) Fail(message string) {
	s.write(StreamEvent{Type: StreamError, Message: message})
	s.closed = true
}

func (s *StreamWriter) write(ev StreamEvent) {
	if s.closed {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

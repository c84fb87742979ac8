package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chat-session-relay/internal/domain/model"
)

// Encoder frames session events as `data: <json>\n\n` text lines. Consumers
// of the original assistant service parse exactly this shape, so the framing
// must not change.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder wraps a writer. When the writer also implements http.Flusher
// (an HTTP response), every event is flushed so deltas reach the consumer
// as they are produced.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

func (e *Encoder) Write(evt model.StreamEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

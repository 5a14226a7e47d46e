package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const doneSentinel = "[DONE]"

// SSEWriter frames events as server-sent events on an HTTP response.
type SSEWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewSSEWriter sets the event-stream headers on w. It fails when w cannot be
// flushed, since events would otherwise be buffered until the handler returns.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &SSEWriter{w: w, flusher: f}, nil
}

// Emit writes e and flushes it to the client.
func (s *SSEWriter) Emit(e Event) error {
	var payload string
	switch e.Kind {
	case KindData:
		b, err := json.Marshal(struct {
			Content string `json:"content"`
		}{e.Content})
		if err != nil {
			return err
		}
		payload = string(b)
	case KindDone:
		payload = doneSentinel
	case KindError:
		b, err := json.Marshal(struct {
			Error string `json:"error"`
			Code  string `json:"code,omitempty"`
		}{e.Message, e.Code})
		if err != nil {
			return err
		}
		payload = string(b)
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

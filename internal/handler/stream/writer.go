// Package stream writes incremental plain-text response bodies.
package stream

import (
	"fmt"
	"io"
	"net/http"
)

// ContentType of every streamed reply
const ContentType = "text/plain; charset=utf-8"

// Writer sends text fragments to the client as soon as they are produced.
// A write or flush error means the client is gone; the caller should stop
// producing fragments.
type Writer struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewWriter prepares w for a streamed body and commits the 200 status.
// Proxy buffering is disabled so fragments are not held back by nginx.
func NewWriter(w http.ResponseWriter) *Writer {
	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	sw := &Writer{w: w, rc: http.NewResponseController(w)}
	// Clients see the headers before the first token arrives
	_ = sw.rc.Flush()
	return sw
}

// WriteFragment writes one fragment and flushes it
func (s *Writer) WriteFragment(fragment string) error {
	if _, err := io.WriteString(s.w, fragment); err != nil {
		return fmt.Errorf("write fragment failed: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	return nil
}

// Package progress implements the docstore.ProgressTransport collaborator:
// a thin, mutex-serialized JSON-lines writer, gated by a capability flag
// the caller resolves once at startup.
package progress

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

// Writer implements docstore.ProgressTransport over an io.Writer, one
// JSON value per line. Concurrent WriteJSONMessage calls are serialized so
// lines from overlapping build invalidations never interleave.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
}

// New constructs a Writer. enabled mirrors the client's advertised
// progress-notification capability; when false, WriteJSONMessage is a
// no-op, so callers don't need to thread the capability check through
// every call site themselves.
func New(w io.Writer, enabled bool) *Writer {
	return &Writer{w: w, enabled: enabled}
}

// WriteJSONMessage implements docstore.ProgressTransport.
func (p *Writer) WriteJSONMessage(msg any) error {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = p.w.Write(data)
	return err
}

var _ docstore.ProgressTransport = (*Writer)(nil)

// Package diag implements the docstore.Diagnostics collaborator: it
// batches error bundles raised by the build runner and the C translator
// and publishes them as JSON-lines on stdout, the same wire shape
// internal/progress uses for progress notifications, so a client reads
// both from one stream.
package diag

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/logging"
)

const logComponent = "diag"

type buildDiagnostic struct {
	Tag     string `json:"tag"`
	Version uint64 `json:"version,omitempty"`
	Cwd     string `json:"cwd,omitempty"`
	Message string `json:"message"`
}

type documentDiagnostic struct {
	Kind    string `json:"kind"`
	URI     string `json:"uri"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type batch struct {
	Build     []buildDiagnostic     `json:"build,omitempty"`
	Documents []documentDiagnostic  `json:"documents,omitempty"`
}

// Publisher implements docstore.Diagnostics. Pushes accumulate under mu
// until Publish flushes and clears them, an accumulate-then-flush pattern
// for batched notifications.
type Publisher struct {
	mu   sync.Mutex
	w    io.Writer
	cur  batch
}

// New constructs a Publisher writing JSON-lines to w. A nil w defaults to
// os.Stdout.
func New(w io.Writer) *Publisher {
	if w == nil {
		w = os.Stdout
	}
	return &Publisher{w: w}
}

// PushErrorBundle implements docstore.Diagnostics.
func (p *Publisher) PushErrorBundle(tag string, version uint64, cwd string, bundle *docstore.ErrorBundle) {
	if bundle == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur.Build = append(p.cur.Build, buildDiagnostic{
		Tag: tag, Version: version, Cwd: cwd, Message: bundle.Message,
	})
}

// PushSingleDocument implements docstore.Diagnostics.
func (p *Publisher) PushSingleDocument(kind string, uri string, bundle *docstore.ErrorBundle) {
	if bundle == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur.Documents = append(p.cur.Documents, documentDiagnostic{
		Kind: kind, URI: uri, Tag: bundle.Tag, Message: bundle.Message,
	})
}

// Publish implements docstore.Diagnostics: writes the accumulated batch as
// a single JSON line and resets it. Diagnostics are published in batches,
// not per-bundle.
func (p *Publisher) Publish() {
	p.mu.Lock()
	b := p.cur
	p.cur = batch{}
	p.mu.Unlock()

	if len(b.Build) == 0 && len(b.Documents) == 0 {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		logging.Errorf(logComponent, "marshal diagnostics batch: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := p.w.Write(data); err != nil {
		logging.Errorf(logComponent, "write diagnostics batch: %v", err)
	}
}

var _ docstore.Diagnostics = (*Publisher)(nil)

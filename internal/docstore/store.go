package docstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/ident"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/uriutil"
	"github.com/standardbeagle/zlsd/internal/zerr"
)

const logComponent = "docstore"

// Collaborators bundles every external collaborator the core delegates to
// rather than implementing itself (grammar-specific scope/IR construction,
// import/cimport extraction, the build runner, diagnostics, progress).
// Any field left nil disables the feature that depends on it.
type Collaborators struct {
	ScopeBuilder ScopeBuilder
	IRSourceGen  IRGenerator
	IRDataGen    IRGenerator
	Imports      ImportCollector
	CImports     CImportCollector
	CConverter   CImportConverter
	Translator   CTranslator
	Diagnostics  Diagnostics
	Progress     ProgressTransport

	// RunnerFactory produces the external-process runner for a given
	// build-file URI; nil disables the build subsystem entirely.
	RunnerFactory func(buildFileURI string) Runner
}

// cimportResult is the cached outcome of translating one @cImport site's
// generated C source, keyed by its content hash.
type cimportResult struct {
	uri    string
	bundle *ErrorBundle
}

// Store is the top-level container: concurrent maps from URI to Handle
// and BuildFile, a hash-keyed cimport cache, and the document/build-file
// orchestration operations below.
type Store struct {
	cfg      *config.Config
	grammars *GrammarRegistry
	collab   Collaborators

	// mu guards the structure (insert/remove) of the three maps below, not
	// their contents. Handle and BuildFile internals have their own locks.
	mu sync.RWMutex

	handles      map[string]*Handle
	handleOrder  []string
	buildFiles   map[string]*BuildFile
	buildOrder   []string
	cimports     map[ident.Hash]cimportResult

	// loadGroup coalesces concurrent GetOrLoadHandle calls for the same
	// not-yet-cached URI into a single disk read and parse.
	loadGroup singleflight.Group

	buildsInProgress atomic.Int64
}

// New constructs an empty Store.
func New(cfg *config.Config, grammars *GrammarRegistry, collab Collaborators) *Store {
	return &Store{
		cfg:        cfg,
		grammars:   grammars,
		collab:     collab,
		handles:    make(map[string]*Handle),
		buildFiles: make(map[string]*BuildFile),
		cimports:   make(map[ident.Hash]cimportResult),
	}
}

// GetHandle returns the handle for uri without loading it from disk.
func (s *Store) GetHandle(uri string) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[uri]
	return h, ok
}

// GetBuildFile returns the build file for uri, if known.
func (s *Store) GetBuildFile(uri string) (*BuildFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buildFiles[uri]
	return b, ok
}

// OpenDocument marks uri open, parsing text eagerly and (if it is a build
// description) kicking off a build run. Not thread-safe with respect to
// concurrent opens of the same URI — callers serialize opens of a given
// document themselves.
func (s *Store) OpenDocument(uri string, text []byte) (*Handle, error) {
	h, err := NewHandle(uri, text, true, s.grammars)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, existed := s.handles[uri]; !existed {
		s.handleOrder = append(s.handleOrder, uri)
	}
	s.handles[uri] = h
	s.mu.Unlock()

	s.settleAssociatedBuildFile(h)
	s.extractImportsAndCImports(h)

	if uriutil.HasSuffix(uri, config.BuildFileSuffix) && !uriutil.Contains(uri, config.StdLibMarker) {
		bf, _ := s.getOrCreateBuildFile(uri)
		s.invalidateBuildFile(bf)
	}

	return h, nil
}

// GetOrLoadHandle returns the existing handle for uri, or reads the file
// from disk if absent (capped at config.MaxDocumentSize) and inserts a
// non-open handle for it.
func (s *Store) GetOrLoadHandle(uri string) (*Handle, error) {
	s.mu.RLock()
	h, ok := s.handles[uri]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := s.loadGroup.Do(uri, func() (any, error) {
		return s.loadHandleFromDisk(uri)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// loadHandleFromDisk reads uri's content from disk, parses it, and inserts
// the resulting handle if no other caller raced it in first. Only ever
// invoked once per URI at a time, via GetOrLoadHandle's singleflight
// group.
func (s *Store) loadHandleFromDisk(uri string) (*Handle, error) {
	s.mu.RLock()
	if h, ok := s.handles[uri]; ok {
		s.mu.RUnlock()
		return h, nil
	}
	s.mu.RUnlock()

	path, err := uriutil.ToPath(uri)
	if err != nil {
		logging.Errorf(logComponent, "invalid document uri %q: %v", uri, err)
		return nil, zerr.NewURIError(uri, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, zerr.NewFileError("stat", path, err)
	}
	if info.Size() > config.MaxDocumentSize {
		return nil, fmt.Errorf("docstore: %s exceeds max_document_size (%d > %d)", uri, info.Size(), config.MaxDocumentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.NewFileError("read", path, err)
	}

	h, err := NewHandle(uri, data, false, s.grammars)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, already := s.handles[uri]; already {
		s.mu.Unlock()
		return existing, nil
	}
	s.handleOrder = append(s.handleOrder, uri)
	s.handles[uri] = h
	s.mu.Unlock()

	s.settleAssociatedBuildFile(h)
	s.extractImportsAndCImports(h)

	return h, nil
}

// RefreshDocument replaces uri's source text in place, resetting its
// derivative status and re-extracting imports/cimports.
func (s *Store) RefreshDocument(uri string, newText []byte) error {
	h, ok := s.GetHandle(uri)
	if !ok {
		return fmt.Errorf("docstore: refresh of unknown document %s", uri)
	}
	if _, _, err := h.SetSource(newText); err != nil {
		return err
	}
	s.settleAssociatedBuildFile(h)
	s.extractImportsAndCImports(h)
	return nil
}

// RefreshDocumentFromFileSystem drops uri's cached handle so the next
// lookup reloads it from disk. A no-op if the document is open (an open
// editor's in-memory text is authoritative). Returns whether removal
// occurred.
func (s *Store) RefreshDocumentFromFileSystem(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[uri]
	if !ok || h.IsOpen() {
		return false
	}
	delete(s.handles, uri)
	s.handleOrder = removeString(s.handleOrder, uri)
	return true
}

// CloseDocument toggles open to false, then opportunistically runs GC
// under a non-blocking attempt at the store's exclusive lock.
func (s *Store) CloseDocument(uri string) {
	h, ok := s.GetHandle(uri)
	if !ok {
		return
	}
	h.SetOpen(false)

	if s.mu.TryLock() {
		s.runGCLocked()
		s.mu.Unlock()
	}
	// If contended, GC is deferred to the next successful attempt: the
	// next CloseDocument or an explicit RunGC call.
}

// RunGC forces an immediate GC pass under the store's exclusive lock, for
// callers (tests, an idle-timer) that want a guaranteed sweep rather than
// relying on CloseDocument's best-effort attempt.
func (s *Store) RunGC() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runGCLocked()
}

func (s *Store) extractImportsAndCImports(h *Handle) {
	tree := h.Tree()
	var rawImports []string
	if s.collab.Imports != nil {
		rawImports = s.collab.Imports.CollectImports(tree)
	}

	resolved := make([]string, 0, len(rawImports))
	for _, raw := range rawImports {
		if u, ok := s.ResolveImport(h, raw); ok {
			resolved = append(resolved, u)
		}
	}

	var cimports []CImportRef
	if s.collab.CImports != nil {
		for _, c := range s.collab.CImports.CollectCImports(tree) {
			text := c.RawText
			if s.collab.CConverter != nil {
				if converted, err := s.collab.CConverter.ConvertCImportText(c.RawText); err == nil {
					text = converted
				} else {
					logging.Debugf(logComponent, "cimport text conversion failed for %s node %d: %v", h.URI, c.NodeIndex, err)
				}
			}
			cimports = append(cimports, CImportRef{NodeIndex: c.NodeIndex, Text: text})
		}
	}

	h.SetImportsAndCImports(resolved, cimports)
}

func (s *Store) seedAncestorCandidates(h *Handle) {
	candidates, err := s.AncestorBuildFileCandidates(h.URI)
	if err != nil {
		// Ancestor-walk failures are tolerated silently: build-file
		// discovery is best-effort.
		logging.Debugf(logComponent, "ancestor walk for %s: %v", h.URI, err)
		return
	}
	h.SeedAssociatedBuildFileCandidates(candidates)
}

// settleAssociatedBuildFile seeds h's ancestor build-file candidates (a
// handle already resolved or unresolved keeps its association; one that
// settled to none is seeded again) and immediately drives the computing
// resolver against them, so AssociatedBuildFile reflects whatever answer
// the candidates' configs allow by the time imports are extracted against
// it; a candidate whose config is still pending leaves h unresolved until
// a later call.
func (s *Store) settleAssociatedBuildFile(h *Handle) {
	s.seedAncestorCandidates(h)
	s.ResolveHandleBuildFile(h)
}

// getOrCreateBuildFile returns the BuildFile for uri, creating it if absent.
// created reports whether this call is the one that created it, so callers
// can decide whether a fresh invalidation is warranted rather than
// re-triggering a run every time the same build file is looked up.
func (s *Store) getOrCreateBuildFile(uri string) (bf *BuildFile, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bf, ok := s.buildFiles[uri]; ok {
		return bf, false
	}
	bf = NewBuildFile(uri)
	s.buildFiles[uri] = bf
	s.buildOrder = append(s.buildOrder, uri)
	s.loadBuildAssociatedConfigLocked(bf)
	return bf, true
}

func (s *Store) invalidateBuildFile(bf *BuildFile) {
	if s.collab.RunnerFactory == nil {
		return
	}
	runner := s.collab.RunnerFactory(bf.URI)
	if runner == nil {
		return
	}

	notifyBegin := func() {
		if s.buildsInProgress.Add(1) == 1 {
			s.writeProgress(true, false)
		}
	}
	notifyEnd := func(success bool) {
		if s.buildsInProgress.Add(-1) == 0 {
			s.writeProgress(false, success)
		}
	}

	go bf.Invalidate(context.Background(), runner, notifyBegin, notifyEnd)
}

func (s *Store) writeProgress(begin bool, success bool) {
	if s.collab.Progress == nil {
		return
	}
	msg := map[string]any{"begin": begin}
	if !begin {
		msg["success"] = success
	}
	if err := s.collab.Progress.WriteJSONMessage(msg); err != nil {
		logging.Warnf(logComponent, "progress notification failed: %v", err)
	}
}

func removeString(ss []string, target string) []string {
	for i, s := range ss {
		if s == target {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}

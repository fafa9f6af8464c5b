// Package docstore implements the concurrent per-document artifact cache,
// the build-file subsystem, the reachability GC, and import resolution at
// the heart of a document store for a language server.
package docstore

import (
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/zlsd/internal/uriutil"
)

// Handle is the in-memory state of one source document.
type Handle struct {
	URI      string
	grammars *GrammarRegistry

	mu   sync.Mutex
	cond *sync.Cond

	status  atomic.Uint32
	version atomic.Uint64

	// Guarded by mu: SetSource and SetImportsAndCImports write them under
	// mu, and every accessor below reads them under mu.
	source     []byte
	tree       *ParsedTree
	importURIs []string
	cimports   []CImportRef

	// Derivative slots. Each is only valid to read once its `has` bit is
	// observed set; writes happen exclusively under mu inside
	// produceDerivative.
	scope    Scope
	irSource IR
	irData   IR

	// Associated build file state machine, guarded by mu.
	assoc buildAssoc
}

type buildAssocKind int

const (
	assocNone buildAssocKind = iota
	assocUnresolved
	assocResolved
)

// buildAssoc is the tagged union tracking a handle's associated-build-file
// resolution. potential and rejected always have equal "length" in the
// sense that rejected's low len(potential) bits are the only ones
// meaningful.
type buildAssoc struct {
	kind      buildAssocKind
	potential []string // candidate build-file URIs, outermost-ancestor-first
	rejected  uint64   // bit i set => potential[i] ruled out
	resolved  string
}

// NewHandle constructs a Handle for uri with the given source text,
// parsing it eagerly. open sets the initial open flag.
func NewHandle(uri string, source []byte, open bool, grammars *GrammarRegistry) (*Handle, error) {
	h := &Handle{URI: uri, grammars: grammars}
	h.cond = sync.NewCond(&h.mu)

	tree, err := grammars.Parse(extOf(uri), source)
	if err != nil {
		return nil, err
	}

	h.source = source
	h.tree = tree
	h.assoc = buildAssoc{kind: assocNone}
	setOpen(&h.status, open)
	return h, nil
}

func extOf(uri string) string {
	return uriutil.Ext(uri)
}

// IsOpen reports the handle's current open flag.
func (h *Handle) IsOpen() bool {
	return h.status.Load()&bitOpen != 0
}

// SetOpen atomically sets or clears the open flag, returning the prior
// value.
func (h *Handle) SetOpen(open bool) (prior bool) {
	return setOpen(&h.status, open)
}

// Version returns the handle's current edit counter.
func (h *Handle) Version() uint64 {
	return h.version.Load()
}

// Tree returns the handle's current parse tree. Safe to call without
// coordination: the tree pointer is only ever replaced under mu inside
// SetSource, and Go's memory model guarantees a reader that has
// synchronized with the handle (by way of any prior call that itself
// synchronized, e.g. via the store's RWMutex) observes the latest value
// after that point; callers requiring a snapshot across multiple reads
// should hold the handle via the store's normal access pattern, which
// never interleaves SetSource with concurrent reads of the same fields.
func (h *Handle) Tree() *ParsedTree {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tree
}

// Source returns the handle's current source buffer.
func (h *Handle) Source() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

// ImportURIs returns the handle's currently resolved dependency URIs, in
// source order.
func (h *Handle) ImportURIs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.importURIs))
	copy(out, h.importURIs)
	return out
}

// CImports returns the handle's current @cImport sites.
func (h *Handle) CImports() []CImportRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CImportRef, len(h.cimports))
	copy(out, h.cimports)
	return out
}

// SetImportsAndCImports replaces the handle's import/cimport lists,
// called by the store after (re)computing them against the current tree.
func (h *Handle) SetImportsAndCImports(imports []string, cimports []CImportRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.importURIs = imports
	h.cimports = cimports
}

// SetSource applies an edit: the new tree is parsed before the mutex is
// acquired (parsing only touches the new buffer), then
// the status word, tree, source, and import/cimport lists are swapped
// atomically under the mutex so concurrent readers observe either the
// fully-old or fully-new state, never a mix. Returns the previous tree and
// source; Store.RefreshDocument discards them and re-extracts imports
// against the new tree itself, so the handle needs no knowledge of import
// collection.
func (h *Handle) SetSource(newSource []byte) (prevTree *ParsedTree, prevSource []byte, err error) {
	newTree, err := h.grammars.Parse(extOf(h.URI), newSource)
	if err != nil {
		return nil, nil, err
	}

	h.mu.Lock()
	priorOpen := h.status.Load()&bitOpen != 0
	var newStatus statusBits
	if priorOpen {
		newStatus = bitOpen
	}
	h.status.Store(newStatus)

	prevTree = h.tree
	prevSource = h.source
	h.tree = newTree
	h.source = newSource
	h.importURIs = nil
	h.cimports = nil
	h.version.Add(1)
	h.cond.Broadcast()
	h.mu.Unlock()

	return prevTree, prevSource, nil
}

// ScopeStatus returns the current tri-state of the scope derivative
// without triggering production.
func (h *Handle) ScopeStatus() DerivativeStatus {
	return statusOf(h.status.Load(), scopeBits)
}

// IRSourceStatus returns the current tri-state of the source-dialect IR.
func (h *Handle) IRSourceStatus() DerivativeStatus {
	return statusOf(h.status.Load(), irSourceBits)
}

// IRDataStatus returns the current tri-state of the data-literal-dialect IR.
func (h *Handle) IRDataStatus() DerivativeStatus {
	return statusOf(h.status.Load(), irDataBits)
}

// GetScope implements the lazy, at-most-once production protocol for the
// scope derivative. build is invoked at most once per edit generation,
// even under concurrent callers.
func (h *Handle) GetScope(build func(tree *ParsedTree) (Scope, error)) (Scope, error) {
	v, err := h.produceDerivative(scopeBits,
		func() any { return h.scope },
		func(v any) { h.scope = v.(Scope) },
		func(tree *ParsedTree) (any, error) { return build(tree) },
	)
	if err != nil {
		return nil, err
	}
	return v.(Scope), nil
}

// GetIRSource implements the same protocol for the source-dialect IR.
func (h *Handle) GetIRSource(build func(tree *ParsedTree) (IR, error)) (IR, error) {
	v, err := h.produceDerivative(irSourceBits,
		func() any { return h.irSource },
		func(v any) { h.irSource = v.(IR) },
		func(tree *ParsedTree) (any, error) { return build(tree) },
	)
	if err != nil {
		return nil, err
	}
	return v.(IR), nil
}

// GetIRData implements the same protocol for the data-literal-dialect IR.
func (h *Handle) GetIRData(build func(tree *ParsedTree) (IR, error)) (IR, error) {
	v, err := h.produceDerivative(irDataBits,
		func() any { return h.irData },
		func(v any) { h.irData = v.(IR) },
		func(tree *ParsedTree) (any, error) { return build(tree) },
	)
	if err != nil {
		return nil, err
	}
	return v.(IR), nil
}

// produceDerivative is the generic engine behind GetScope/GetIRSource/
// GetIRData: fast-path unlocked read if published, otherwise claim
// production under the handle mutex (waiting on the condvar if another
// goroutine already claimed it), run the producer while still holding the
// mutex, publish, and broadcast.
func (h *Handle) produceDerivative(bits derivativeBits, get func() any, set func(any), produce func(tree *ParsedTree) (any, error)) (any, error) {
	if h.status.Load()&bits.has != 0 {
		return get(), nil
	}

	h.mu.Lock()
	for {
		st := h.status.Load()
		if st&bits.has != 0 {
			h.mu.Unlock()
			return get(), nil
		}
		if st&bits.lock == 0 {
			testAndSetBit(&h.status, bits.lock)
			break
		}
		h.cond.Wait()
	}

	tree := h.tree
	val, err := produce(tree)
	if err != nil {
		clearBits(&h.status, bits.lock)
		h.cond.Broadcast()
		h.mu.Unlock()
		return nil, err
	}

	set(val)
	clearSet := bits.lock
	if bits.outdated != 0 {
		clearSet |= bits.outdated
	}
	setBitsClearing(&h.status, clearSet, bits.has)
	h.cond.Broadcast()
	h.mu.Unlock()

	return val, nil
}

// DependencyAnswer is the tri-valued result of asking whether a handle's
// URI is a dependency of a candidate build file.
type DependencyAnswer int

const (
	DepUnknown DependencyAnswer = iota
	DepNo
	DepYes
)

// AssociatedBuildFile returns the handle's currently resolved build file,
// if any, without triggering resolution — the non-computing variant used
// by dependency-collection during GC to avoid reentrant locking.
func (h *Handle) AssociatedBuildFile() (uri string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.assoc.kind == assocResolved {
		return h.assoc.resolved, true
	}
	return "", false
}

// SeedAssociatedBuildFileCandidates records the ancestor-walk result
// (outermost ancestor first) the first time it is discovered for this
// handle. A handle that already has a resolved or unresolved association
// is left untouched; an empty candidate list transitions straight to
// `none`.
func (h *Handle) SeedAssociatedBuildFileCandidates(candidates []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.assoc.kind != assocNone {
		return
	}
	if len(candidates) == 0 {
		h.assoc = buildAssoc{kind: assocNone}
		return
	}
	h.assoc = buildAssoc{kind: assocUnresolved, potential: candidates, rejected: 0}
}

// ResolveAssociatedBuildFile runs the associated-build-file resolution
// algorithm. check answers "is this handle's URI a dependency of the
// named build file" and is itself backed by store-level work (loading
// handles from disk, reading a BuildFile's config) — so, to respect the
// lock order (Store RW-lock before Handle mutex), check is always called
// with h.mu released; only the bookkeeping that reads/writes h.assoc holds
// the mutex. A concurrent SetSource or second resolution call can race
// with an in-flight check call; the result is re-validated under the
// mutex before being applied, and a resolution already settled by a
// racing caller is preferred over this call's stale view.
func (h *Handle) ResolveAssociatedBuildFile(check func(buildFileURI string) DependencyAnswer) (uri string, ok bool) {
	h.mu.Lock()
	switch h.assoc.kind {
	case assocResolved:
		u := h.assoc.resolved
		h.mu.Unlock()
		return u, true
	case assocNone:
		h.mu.Unlock()
		return "", false
	}

	candidates := append([]string(nil), h.assoc.potential...)
	rejectedSnapshot := h.assoc.rejected
	h.mu.Unlock()

	if remaining := remainingCandidates(candidates, rejectedSnapshot); len(remaining) == 1 {
		return h.commitResolution(remaining[0])
	}

	anyUnknown := false
	var newlyRejected uint64
	for i, cand := range candidates {
		if rejectedSnapshot&(1<<uint(i)) != 0 {
			continue
		}
		switch check(cand) {
		case DepYes:
			return h.commitResolution(cand)
		case DepNo:
			newlyRejected |= 1 << uint(i)
		case DepUnknown:
			anyUnknown = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.assoc.kind {
	case assocResolved:
		return h.assoc.resolved, true
	case assocNone:
		return "", false
	}
	h.assoc.rejected |= newlyRejected
	if !anyUnknown && len(h.remainingAssocCandidatesLocked()) == 0 {
		h.assoc = buildAssoc{kind: assocNone}
	}
	return "", false
}

// commitResolution transitions the handle to resolved(uri), unless a
// racing caller already settled the association (resolved or none) first,
// in which case that outcome wins.
func (h *Handle) commitResolution(uri string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.assoc.kind {
	case assocResolved:
		return h.assoc.resolved, true
	case assocNone:
		return "", false
	}
	h.assoc = buildAssoc{kind: assocResolved, resolved: uri}
	return uri, true
}

func remainingCandidates(potential []string, rejected uint64) []string {
	var out []string
	for i, cand := range potential {
		if rejected&(1<<uint(i)) == 0 {
			out = append(out, cand)
		}
	}
	return out
}

func (h *Handle) remainingAssocCandidatesLocked() []string {
	var out []string
	for i, cand := range h.assoc.potential {
		if h.assoc.rejected&(1<<uint(i)) == 0 {
			out = append(out, cand)
		}
	}
	return out
}

// MarkIRsOutdated sets the outdated flag on both IR derivatives without
// clearing their `has` bits, used by callers that want to signal "this is
// stale, but still usable until recomputed" rather than forcing an
// invalidate-and-rebuild. Not reached by the edit path itself, which
// clears has_X entirely instead;
// this is exposed for build-config changes that affect IR semantics
// without touching the document's own source.
func (h *Handle) MarkIRsOutdated() {
	for {
		old := h.status.Load()
		if old&bitIRSourceHas == 0 && old&bitIRDataHas == 0 {
			return
		}
		neu := old
		if old&bitIRSourceHas != 0 {
			neu |= bitIRSourceOutdated
		}
		if old&bitIRDataHas != 0 {
			neu |= bitIRDataOutdated
		}
		if h.status.CompareAndSwap(old, neu) {
			return
		}
	}
}

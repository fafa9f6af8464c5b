package docstore

import "context"

// Dialect distinguishes the two parse-tree grammars a document may use:
// source or data-literal, determined by URI extension.
type Dialect int

const (
	DialectSource Dialect = iota
	DialectDataLiteral
)

// ParsedTree is the parse-tree artifact a Handle owns. Content is an
// opaque `any` so the concrete tree-sitter representation
// (internal/docstore/grammar.go) stays out of the Handle's public surface;
// external collaborators receiving a *ParsedTree type-assert as needed.
type ParsedTree struct {
	Dialect Dialect
	Tree    any
	Source  []byte
}

// Scope is the artifact produced by the scope builder collaborator. Left
// opaque since the store only needs to cache and hand it back, never
// inspect it.
type Scope any

// IR is the artifact produced by either IR generator collaborator.
type IR any

// ScopeBuilder is a pure function over a parse tree.
type ScopeBuilder interface {
	BuildScope(tree *ParsedTree) (Scope, error)
}

// IRGenerator is a pure function over a parse tree producing one of the
// two IR forms.
type IRGenerator interface {
	GenerateIR(tree *ParsedTree) (IR, error)
}

// ImportCollector extracts textual import references from a parsed tree,
// in source order.
type ImportCollector interface {
	CollectImports(tree *ParsedTree) []string
}

// CImportRef is one `@cImport` site discovered in a document: its AST node
// index paired with its (already-converted) C source text.
type CImportRef struct {
	NodeIndex int
	Text      string
}

// CImportCollector extracts `@cImport` node references from a parsed tree.
type CImportCollector interface {
	CollectCImports(tree *ParsedTree) []CImportConstruct
}

// CImportConstruct is a raw `@cImport` AST site before its embedded C
// source has been converted to plain text.
type CImportConstruct struct {
	NodeIndex int
	RawText   string
}

// CImportConverter turns a raw `@cImport` construct into C source text
// suitable for hashing and translation.
type CImportConverter interface {
	ConvertCImportText(raw string) (string, error)
}

// CTranslateResult is the outcome of translating a C source blob into a
// synthetic document: a tri-state of success(uri), failure(error_bundle),
// or null (both fields zero, meaning "try again later").
type CTranslateResult struct {
	URI    string
	Bundle *ErrorBundle
}

// CTranslator invokes the external C-to-Zig translator.
type CTranslator interface {
	Translate(ctx context.Context, cfg *TranslateConfig, source string) (*CTranslateResult, error)
}

// TranslateConfig carries the subset of a BuildFile's config needed to
// translate embedded C source (include dirs, macros) plus the URI of the
// build file it came from (empty when the handle has none).
type TranslateConfig struct {
	BuildFileURI string
	IncludeDirs  []string
	CMacros      []string
}

// ErrorBundle is an opaque diagnostic payload, constructed by the
// Diagnostics collaborator from a process's stderr or a translation
// failure.
type ErrorBundle struct {
	Tag     string
	Message string
}

// Diagnostics publishes error bundles and per-document diagnostics to the
// client.
type Diagnostics interface {
	PushErrorBundle(tag string, version uint64, cwd string, bundle *ErrorBundle)
	PushSingleDocument(kind string, uri string, bundle *ErrorBundle)
	Publish()
}

// ProgressTransport writes progress notifications to the client, gated by
// capability flags the caller already resolved.
type ProgressTransport interface {
	WriteJSONMessage(msg any) error
}

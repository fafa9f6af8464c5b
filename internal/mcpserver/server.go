// Package mcpserver exposes a docstore.Store over the Model Context
// Protocol: one mcp.NewServer + AddTool per operation, handlers of the
// standard func(ctx, *mcp.CallToolRequest) (*mcp.CallToolResult, error)
// shape, manual json.Unmarshal of req.Params.Arguments into a params
// struct rather than the SDK's own binding, to control unknown-field
// handling directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/version"
)

// Server wraps a docstore.Store with an MCP tool surface.
type Server struct {
	store  *docstore.Store
	server *mcp.Server
}

// New constructs a Server bound to store and registers every tool.
func New(store *docstore.Store) *Server {
	s := &Server{store: store}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "zlsd",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "open_document",
		Description: "Open a document in the store with its initial text, parsing it and extracting its imports and cImports.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":  {Type: "string", Description: "file:// URI of the document"},
				"text": {Type: "string", Description: "initial document text"},
			},
			Required: []string{"uri", "text"},
		},
	}, s.handleOpenDocument)

	s.server.AddTool(&mcp.Tool{
		Name:        "close_document",
		Description: "Close a document; the store may reclaim it and anything it alone kept reachable on the next garbage collection.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleCloseDocument)

	s.server.AddTool(&mcp.Tool{
		Name:        "refresh_document",
		Description: "Replace an open document's text, re-parsing it and discarding its cached scope and IR derivatives.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":  {Type: "string"},
				"text": {Type: "string"},
			},
			Required: []string{"uri", "text"},
		},
	}, s.handleRefreshDocument)

	s.server.AddTool(&mcp.Tool{
		Name:        "refresh_document_from_disk",
		Description: "Drop a closed document's cached handle so the next access reloads it from disk. No-op if the document is open.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleRefreshFromDisk)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_scope",
		Description: "Return the scope derivative for a document (built lazily and cached).",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleGetScope)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_ir_source",
		Description: "Return the source-dialect IR derivative for a document (built lazily and cached).",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleGetIRSource)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_ir_data",
		Description: "Return the data-literal-dialect IR derivative for a document (built lazily and cached).",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleGetIRData)

	s.server.AddTool(&mcp.Tool{
		Name:        "resolve_import",
		Description: "Resolve a raw import string (\"std\", \"builtin\", a package name, or a relative path) seen in a document to an absolute URI.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri": {Type: "string", Description: "the document the import appears in"},
				"raw": {Type: "string", Description: "the raw import string"},
			},
			Required: []string{"uri", "raw"},
		},
	}, s.handleResolveImport)

	s.server.AddTool(&mcp.Tool{
		Name:        "resolve_c_import",
		Description: "Resolve the @cImport site at the given node index to the URI of its translated Zig source, translating and caching it if necessary.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":        {Type: "string"},
				"node_index": {Type: "integer"},
			},
			Required: []string{"uri", "node_index"},
		},
	}, s.handleResolveCImport)

	s.server.AddTool(&mcp.Tool{
		Name:        "collect_dependencies",
		Description: "Return every URI a document transitively depends on via imports, cImports, and its associated build file's packages.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleCollectDependencies)

	s.server.AddTool(&mcp.Tool{
		Name:        "collect_include_dirs",
		Description: "Return the include directories from a document's associated build file's config.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleCollectIncludeDirs)

	s.server.AddTool(&mcp.Tool{
		Name:        "collect_c_macros",
		Description: "Return the C macros from a document's associated build file's config.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"uri": {Type: "string"}},
			Required:   []string{"uri"},
		},
	}, s.handleCollectCMacros)

	s.server.AddTool(&mcp.Tool{
		Name:        "version",
		Description: "Report zlsd's version.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleVersion)
}

type uriParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleOpenDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p struct {
		URI  string `json:"uri"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("open_document", fmt.Errorf("invalid parameters: %w", err))
	}
	h, err := s.store.OpenDocument(p.URI, []byte(p.Text))
	if err != nil {
		return errorResponse("open_document", err)
	}
	return jsonResponse(map[string]any{"uri": h.URI, "version": h.Version()})
}

func (s *Server) handleCloseDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("close_document", fmt.Errorf("invalid parameters: %w", err))
	}
	s.store.CloseDocument(p.URI)
	return jsonResponse(map[string]any{"uri": p.URI, "closed": true})
}

func (s *Server) handleRefreshDocument(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p struct {
		URI  string `json:"uri"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("refresh_document", fmt.Errorf("invalid parameters: %w", err))
	}
	if err := s.store.RefreshDocument(p.URI, []byte(p.Text)); err != nil {
		return errorResponse("refresh_document", err)
	}
	return jsonResponse(map[string]any{"uri": p.URI, "refreshed": true})
}

func (s *Server) handleRefreshFromDisk(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("refresh_document_from_disk", fmt.Errorf("invalid parameters: %w", err))
	}
	removed := s.store.RefreshDocumentFromFileSystem(p.URI)
	return jsonResponse(map[string]any{"uri": p.URI, "removed": removed})
}

func (s *Server) handleGetScope(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "get_scope")
	if err != nil {
		return errResp, nil
	}
	scope, err := s.store.Scope(h)
	if err != nil {
		return errorResponse("get_scope", err)
	}
	return jsonResponse(map[string]any{"uri": p.URI, "scope": scope})
}

func (s *Server) handleGetIRSource(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "get_ir_source")
	if err != nil {
		return errResp, nil
	}
	ir, err := s.store.IRSource(h)
	if err != nil {
		return errorResponse("get_ir_source", err)
	}
	return jsonResponse(map[string]any{"uri": p.URI, "ir": ir})
}

func (s *Server) handleGetIRData(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "get_ir_data")
	if err != nil {
		return errResp, nil
	}
	ir, err := s.store.IRData(h)
	if err != nil {
		return errorResponse("get_ir_data", err)
	}
	return jsonResponse(map[string]any{"uri": p.URI, "ir": ir})
}

func (s *Server) handleResolveImport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p struct {
		URI string `json:"uri"`
		Raw string `json:"raw"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("resolve_import", fmt.Errorf("invalid parameters: %w", err))
	}
	h, ok := s.store.GetHandle(p.URI)
	if !ok {
		return errorResponse("resolve_import", fmt.Errorf("document not open: %s", p.URI))
	}
	resolved, ok := s.store.ResolveImport(h, p.Raw)
	if ok {
		return jsonResponse(map[string]any{"uri": resolved, "resolved": ok})
	}
	if suggestion, found := s.store.SuggestPackageName(h, p.Raw); found {
		return jsonResponse(map[string]any{"uri": resolved, "resolved": ok, "suggestion": suggestion})
	}
	return jsonResponse(map[string]any{"uri": resolved, "resolved": ok})
}

func (s *Server) handleResolveCImport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p struct {
		URI       string `json:"uri"`
		NodeIndex int    `json:"node_index"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("resolve_c_import", fmt.Errorf("invalid parameters: %w", err))
	}
	h, ok := s.store.GetHandle(p.URI)
	if !ok {
		return errorResponse("resolve_c_import", fmt.Errorf("document not open: %s", p.URI))
	}
	uri, err := s.store.ResolveCImport(h, p.NodeIndex)
	if err != nil {
		return errorResponse("resolve_c_import", err)
	}
	return jsonResponse(map[string]any{"uri": uri})
}

func (s *Server) handleCollectDependencies(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "collect_dependencies")
	if err != nil {
		return errResp, nil
	}
	var out []string
	s.store.CollectDependencies(h, &out)
	return jsonResponse(map[string]any{"uri": p.URI, "dependencies": out})
}

func (s *Server) handleCollectIncludeDirs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "collect_include_dirs")
	if err != nil {
		return errResp, nil
	}
	var out []string
	complete := s.store.CollectIncludeDirs(h, &out)
	return jsonResponse(map[string]any{"uri": p.URI, "include_dirs": out, "complete": complete})
}

func (s *Server) handleCollectCMacros(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, p, errResp, err := s.requireHandle(req, "collect_c_macros")
	if err != nil {
		return errResp, nil
	}
	var out []string
	complete := s.store.CollectCMacros(h, &out)
	return jsonResponse(map[string]any{"uri": p.URI, "c_macros": out, "complete": complete})
}

func (s *Server) handleVersion(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResponse(map[string]any{"name": "zlsd", "version": version.FullInfo()})
}

// requireHandle unmarshals a bare {"uri": ...} param struct and looks the
// document up, returning a ready-to-send error response when either step
// fails so callers can `return errResp, nil` in one line.
func (s *Server) requireHandle(req *mcp.CallToolRequest, op string) (*docstore.Handle, uriParams, *mcp.CallToolResult, error) {
	var p uriParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		resp, _ := errorResponse(op, fmt.Errorf("invalid parameters: %w", err))
		return nil, p, resp, err
	}
	h, ok := s.store.GetHandle(p.URI)
	if !ok {
		resp, _ := errorResponse(op, fmt.Errorf("document not open: %s", p.URI))
		return nil, p, resp, fmt.Errorf("document not open")
	}
	return h, p, nil, nil
}

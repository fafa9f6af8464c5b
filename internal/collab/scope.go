package collab

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

// Declaration is one const/var/fn binding a Scope or source IR exposes.
type Declaration struct {
	Name      string
	Kind      string // "const", "var", or "fn"
	NodeIndex int
}

// DeclScope is the concrete type behind docstore.Scope for source-dialect
// documents: every const/var/fn binding the flat lexical scan finds, in
// source order. Nesting is not tracked: block-local and container-member
// declarations appear alongside top-level ones, and fn parameters are not
// recorded.
type DeclScope struct {
	Declarations []Declaration
}

// ScopeBuilder implements docstore.ScopeBuilder by scanning a parsed
// tree's leaves for the `const`/`var`/`fn` keyword tokens followed by an
// identifier, the same lexical recognition Importer and CImporter use for
// builtin calls. Data-literal documents (.zon) have no such bindings and
// always produce an empty scope.
type ScopeBuilder struct{}

// BuildScope implements docstore.ScopeBuilder.
func (ScopeBuilder) BuildScope(tree *docstore.ParsedTree) (docstore.Scope, error) {
	if tree.Dialect == docstore.DialectDataLiteral {
		return &DeclScope{}, nil
	}
	t, ok := tree.Tree.(*tree_sitter.Tree)
	if !ok || t == nil {
		return &DeclScope{}, nil
	}
	return &DeclScope{Declarations: collectDeclarations(flattenLeaves(t, tree.Source))}, nil
}

var _ docstore.ScopeBuilder = ScopeBuilder{}

func collectDeclarations(leaves []leafTok) []Declaration {
	var out []Declaration
	for i := 0; i < len(leaves); i++ {
		kind := leaves[i].text
		if kind != "const" && kind != "var" && kind != "fn" {
			continue
		}
		if i+1 >= len(leaves) {
			continue
		}
		name := leaves[i+1].text
		if !isIdentifierText(name) {
			continue
		}
		out = append(out, Declaration{Name: name, Kind: kind, NodeIndex: leaves[i].idx})
	}
	return out
}

package collab

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

// SourceIR is the concrete type behind docstore.IR for source-dialect
// documents: the declarations collectDeclarations finds (nested ones
// included, as in DeclScope) plus the raw import strings in source order, enough for a caller to answer "what does this file
// declare and what does it pull in" without re-walking the tree.
type SourceIR struct {
	Declarations []Declaration
	Imports      []string
}

// SourceIRGenerator implements docstore.IRGenerator for DialectSource
// trees.
type SourceIRGenerator struct{}

// GenerateIR implements docstore.IRGenerator.
func (SourceIRGenerator) GenerateIR(tree *docstore.ParsedTree) (docstore.IR, error) {
	t, ok := tree.Tree.(*tree_sitter.Tree)
	if !ok || t == nil {
		return &SourceIR{}, nil
	}
	leaves := flattenLeaves(t, tree.Source)

	ir := &SourceIR{Declarations: collectDeclarations(leaves)}
	for i := 0; i < len(leaves); i++ {
		if leaves[i].text != "@import" {
			continue
		}
		if arg, ok := firstStringArg(leaves, i+1); ok {
			ir.Imports = append(ir.Imports, unquote(arg))
		}
	}
	return ir, nil
}

var _ docstore.IRGenerator = SourceIRGenerator{}

// DataField is one `.name = value` entry of a data-literal (.zon)
// document's struct literals.
type DataField struct {
	Name      string
	NodeIndex int
}

// DataLiteralIR is the concrete type behind docstore.IR for
// DialectDataLiteral trees: the field names of every `.name =` assignment
// in the document, in source order; fields of nested literals appear
// alongside those of the outermost `.{ ... }` literal.
type DataLiteralIR struct {
	Fields []DataField
}

// DataIRGenerator implements docstore.IRGenerator for DialectDataLiteral
// trees (build.zig.zon and similar manifests).
type DataIRGenerator struct{}

// GenerateIR implements docstore.IRGenerator.
func (DataIRGenerator) GenerateIR(tree *docstore.ParsedTree) (docstore.IR, error) {
	t, ok := tree.Tree.(*tree_sitter.Tree)
	if !ok || t == nil {
		return &DataLiteralIR{}, nil
	}
	leaves := flattenLeaves(t, tree.Source)

	var fields []DataField
	for i := 0; i+2 < len(leaves); i++ {
		if leaves[i].text != "." {
			continue
		}
		name := leaves[i+1].text
		if !isIdentifierText(name) {
			continue
		}
		if leaves[i+2].text != "=" {
			continue
		}
		fields = append(fields, DataField{Name: name, NodeIndex: leaves[i].idx})
	}
	return &DataLiteralIR{Fields: fields}, nil
}

var _ docstore.IRGenerator = DataIRGenerator{}

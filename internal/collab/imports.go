package collab

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

// Importer implements docstore.ImportCollector by scanning a parsed Zig
// tree's leaves for `@import("...")` builtin calls, using leaf-oriented
// text extraction (node.StartByte()/EndByte()) rather than exact
// tree-sitter-zig node kind names, which this module has no grammar
// source to verify against.
type Importer struct{}

// CollectImports implements docstore.ImportCollector.
func (Importer) CollectImports(tree *docstore.ParsedTree) []string {
	t, ok := tree.Tree.(*tree_sitter.Tree)
	if !ok || t == nil {
		return nil
	}
	leaves := flattenLeaves(t, tree.Source)

	var out []string
	for i := 0; i < len(leaves); i++ {
		if leaves[i].text != "@import" {
			continue
		}
		if arg, ok := firstStringArg(leaves, i+1); ok {
			out = append(out, unquote(arg))
		}
	}
	return out
}

type leafTok struct {
	node *tree_sitter.Node
	text string
	idx  int
}

func flattenLeaves(t *tree_sitter.Tree, src []byte) []leafTok {
	root := t.RootNode()
	var out []leafTok
	idx := 0
	walkLeaves(&root, &idx, func(leaf *tree_sitter.Node, i int) {
		out = append(out, leafTok{node: leaf, text: text(leaf, src), idx: i})
	})
	return out
}

// firstStringArg finds the first string-literal leaf inside the balanced
// parenthesized argument list starting at leaves[from] (which must open
// with "("). Returns false if the call has no parenthesized arguments or
// no string literal appears before the matching close.
func firstStringArg(leaves []leafTok, from int) (string, bool) {
	if from >= len(leaves) || leaves[from].text != "(" {
		return "", false
	}
	depth := 0
	for i := from; i < len(leaves); i++ {
		switch leaves[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return "", false
			}
		default:
			if isStringLiteralText(leaves[i].text) {
				return leaves[i].text, true
			}
		}
	}
	return "", false
}

var _ docstore.ImportCollector = Importer{}

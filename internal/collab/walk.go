// Package collab implements the concrete external collaborators docstore
// wires against: a scope builder, the two IR generators, an import
// collector, and the cImport collector/converter pair. These walk the
// tree-sitter parse tree using a plain leaf-walk idiom (node.Kind(),
// node.ChildCount(), node.Child(i), node.StartByte()/node.EndByte() for
// text extraction), applied to the handful of lexical shapes a Zig
// document's import graph needs: @import(...) and @cImport(...) sites and
// const/var/fn declarations.
package collab

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// text extracts a node's source slice:
// string(content[node.StartByte():node.EndByte()]).
func text(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) || start > end {
		return ""
	}
	return string(src[start:end])
}

// children returns n's direct children as a slice, via a plain
// node.ChildCount() then node.Child(i) loop with no cross-call cache,
// since each collector walks a tree exactly once.
func children(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.ChildCount())
	out := make([]*tree_sitter.Node, count)
	for i := 0; i < count; i++ {
		out[i] = n.Child(uint(i))
	}
	return out
}

// walkLeaves visits every leaf (childless) node of the tree rooted at n in
// source order, depth-first, calling visit with the leaf and a running
// index. The index is the sole identity a cImport or import site needs
// (docstore only ever compares node indices it handed out itself back to
// itself; it never needs to reconstruct a real tree-sitter node id).
func walkLeaves(n *tree_sitter.Node, index *int, visit func(leaf *tree_sitter.Node, idx int)) {
	if n == nil {
		return
	}
	kids := children(n)
	if len(kids) == 0 {
		visit(n, *index)
		*index++
		return
	}
	for _, c := range kids {
		walkLeaves(c, index, visit)
	}
}

// isIdentifierText reports whether s looks like a Zig identifier token:
// the grammar's exact terminal kind name isn't something this module can
// verify without the grammar's node-types table, so identifiers are
// recognized lexically instead (first char a letter or underscore,
// remainder alphanumeric/underscore, and not a bare keyword).
func isIdentifierText(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return !zigKeywords[s]
}

var zigKeywords = map[string]bool{
	"const": true, "var": true, "fn": true, "pub": true, "return": true,
	"if": true, "else": true, "while": true, "for": true, "struct": true,
	"enum": true, "union": true, "error": true, "try": true, "catch": true,
	"defer": true, "errdefer": true, "switch": true, "break": true,
	"continue": true, "null": true, "undefined": true, "true": true,
	"false": true, "comptime": true, "export": true, "extern": true,
	"inline": true, "noinline": true, "packed": true, "align": true,
	"test": true, "usingnamespace": true, "threadlocal": true, "volatile": true,
	"anytype": true, "asm": true, "and": true, "or": true, "orelse": true,
}

// isStringLiteralText reports whether s is a Zig string literal token
// (double-quoted; Zig has no single-quoted strings). Used to pick the
// string argument out of an @import(...) or @cInclude(...) call.
func isStringLiteralText(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// unquote strips the surrounding double quotes from a Zig string literal.
// Zig string escapes are a strict subset of Go's, so this module does not
// attempt full escape processing: import paths and header names in
// practice never need anything beyond the raw quoted bytes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

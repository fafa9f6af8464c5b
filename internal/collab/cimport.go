package collab

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

// CImporter implements docstore.CImportCollector the same way Importer
// implements docstore.ImportCollector: a leaf scan for the `@cImport`
// builtin, capturing the balanced parenthesized block that follows as raw
// text for the converter stage.
type CImporter struct{}

// CollectCImports implements docstore.CImportCollector.
func (CImporter) CollectCImports(tree *docstore.ParsedTree) []docstore.CImportConstruct {
	t, ok := tree.Tree.(*tree_sitter.Tree)
	if !ok || t == nil {
		return nil
	}
	leaves := flattenLeaves(t, tree.Source)

	var out []docstore.CImportConstruct
	for i := 0; i < len(leaves); i++ {
		if leaves[i].text != "@cImport" {
			continue
		}
		openIdx := i + 1
		closeIdx, ok := matchingClose(leaves, openIdx)
		if !ok {
			continue
		}
		start := leaves[openIdx].node.StartByte()
		end := leaves[closeIdx].node.EndByte()
		if end < start || int(end) > len(tree.Source) {
			continue
		}
		out = append(out, docstore.CImportConstruct{
			NodeIndex: leaves[i].idx,
			RawText:   string(tree.Source[start:end]),
		})
	}
	return out
}

func matchingClose(leaves []leafTok, openIdx int) (int, bool) {
	if openIdx >= len(leaves) || leaves[openIdx].text != "(" {
		return 0, false
	}
	depth := 0
	for i := openIdx; i < len(leaves); i++ {
		switch leaves[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

var _ docstore.CImportCollector = CImporter{}

// CConverter implements docstore.CImportConverter by expanding a raw
// `@cImport(.{ @cInclude("x.h"); @cDefine("A", "1"); @cUndef("B"); })`
// block into the equivalent C preprocessor source, matching how zig's own
// compiler treats @cImport: it is never literal C text, only a sequence of
// @cInclude/@cDefine/@cUndef directives.
type CConverter struct{}

var (
	cIncludeRe = regexp.MustCompile(`@cInclude\(\s*"([^"]*)"\s*\)`)
	cDefineRe  = regexp.MustCompile(`@cDefine\(\s*"([^"]*)"\s*(?:,\s*"([^"]*)"\s*)?\)`)
	cUndefRe   = regexp.MustCompile(`@cUndef\(\s*"([^"]*)"\s*\)`)
)

// ConvertCImportText implements docstore.CImportConverter.
func (CConverter) ConvertCImportText(raw string) (string, error) {
	type directive struct {
		pos  int
		line string
	}
	var directives []directive

	for _, m := range cIncludeRe.FindAllStringSubmatchIndex(raw, -1) {
		header := raw[m[2]:m[3]]
		directives = append(directives, directive{pos: m[0], line: "#include <" + header + ">"})
	}
	for _, m := range cDefineRe.FindAllStringSubmatchIndex(raw, -1) {
		name := raw[m[2]:m[3]]
		value := "1"
		if m[4] != -1 {
			value = raw[m[4]:m[5]]
		}
		directives = append(directives, directive{pos: m[0], line: "#define " + name + " " + value})
	}
	for _, m := range cUndefRe.FindAllStringSubmatchIndex(raw, -1) {
		name := raw[m[2]:m[3]]
		directives = append(directives, directive{pos: m[0], line: "#undef " + name})
	}

	for i := 1; i < len(directives); i++ {
		for j := i; j > 0 && directives[j-1].pos > directives[j].pos; j-- {
			directives[j-1], directives[j] = directives[j], directives[j-1]
		}
	}

	var b strings.Builder
	for _, d := range directives {
		b.WriteString(d.line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

var _ docstore.CImportConverter = CConverter{}

package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zlsd/internal/docstore"
)

func parseZig(t *testing.T, src string) *docstore.ParsedTree {
	t.Helper()
	reg := docstore.NewGrammarRegistry()
	tree, err := reg.Parse(".zig", []byte(src))
	require.NoError(t, err)
	return tree
}

func TestImporter_CollectImports(t *testing.T) {
	tree := parseZig(t, `const std = @import("std");
const foo = @import("foo.zig");
`)
	got := Importer{}.CollectImports(tree)
	assert.Equal(t, []string{"std", "foo.zig"}, got)
}

func TestCImporter_CollectCImports(t *testing.T) {
	tree := parseZig(t, `const c = @cImport(.{
    @cInclude("stdio.h");
});
`)
	got := CImporter{}.CollectCImports(tree)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].RawText, "cInclude")
}

func TestCConverter_ConvertCImportText(t *testing.T) {
	raw := `(.{
    @cInclude("stdio.h");
    @cDefine("FOO", "1");
    @cUndef("BAR");
})`
	out, err := CConverter{}.ConvertCImportText(raw)
	require.NoError(t, err)
	assert.Contains(t, out, "#include <stdio.h>")
	assert.Contains(t, out, "#define FOO 1")
	assert.Contains(t, out, "#undef BAR")
}

func TestScopeBuilder_BuildScope_TopLevelDecls(t *testing.T) {
	tree := parseZig(t, `const a = 1;
var b = 2;
fn c() void {}
`)
	scope, err := ScopeBuilder{}.BuildScope(tree)
	require.NoError(t, err)

	decl := scope.(*DeclScope)
	names := make([]string, len(decl.Declarations))
	for i, d := range decl.Declarations {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestScopeBuilder_DataLiteral_AlwaysEmpty(t *testing.T) {
	tree := parseZig(t, `.{ .name = "foo" }`)
	tree.Dialect = docstore.DialectDataLiteral
	scope, err := ScopeBuilder{}.BuildScope(tree)
	require.NoError(t, err)
	assert.Empty(t, scope.(*DeclScope).Declarations)
}

func TestDataIRGenerator_GenerateIR_TopLevelFields(t *testing.T) {
	tree := parseZig(t, `.{
    .name = "foo",
    .version = "1.0.0",
}`)
	tree.Dialect = docstore.DialectDataLiteral

	ir, err := DataIRGenerator{}.GenerateIR(tree)
	require.NoError(t, err)

	data := ir.(*DataLiteralIR)
	names := make([]string, len(data.Fields))
	for i, f := range data.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"name", "version"}, names)
}

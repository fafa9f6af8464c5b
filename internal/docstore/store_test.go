package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/uriutil"
)

type fakeImportCollector struct {
	imports map[string][]string
}

func (f fakeImportCollector) CollectImports(tree *ParsedTree) []string {
	return f.imports[string(tree.Source)]
}

type noopCImportCollector struct{}

func (noopCImportCollector) CollectCImports(tree *ParsedTree) []CImportConstruct { return nil }

func newTestStore(t *testing.T, root string, imports map[string][]string) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Build.ZigLibDir = filepath.Join(root, "zig-lib")

	return New(cfg, NewGrammarRegistry(), Collaborators{
		Imports:  fakeImportCollector{imports: imports},
		CImports: noopCImportCollector{},
	})
}

func mustURI(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	u, err := uriutil.FromPath(abs)
	require.NoError(t, err)
	return u
}

func TestStore_ResolveImport_Std(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zig-lib", "std"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zig-lib", "std", "std.zig"), []byte(""), 0o644))

	s := newTestStore(t, dir, nil)
	docPath := filepath.Join(dir, "main.zig")
	require.NoError(t, os.WriteFile(docPath, []byte("const std = @import(\"std\");\n"), 0o644))
	docURI := mustURI(t, docPath)

	h, err := s.OpenDocument(docURI, []byte("const std = @import(\"std\");\n"))
	require.NoError(t, err)

	resolved, ok := s.ResolveImport(h, "std")
	require.True(t, ok)
	assert.Contains(t, resolved, "std/std.zig")
}

func TestStore_AncestorBuildFileCandidates_OutermostFirst(t *testing.T) {
	root := t.TempDir()
	outer := root
	inner := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(inner, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outer, "build.zig"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inner, "build.zig"), []byte(""), 0o644))

	s := newTestStore(t, root, nil)
	docURI := mustURI(t, filepath.Join(inner, "main.zig"))

	candidates, err := s.AncestorBuildFileCandidates(docURI)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	outerURI := mustURI(t, filepath.Join(outer, "build.zig"))
	innerURI := mustURI(t, filepath.Join(inner, "build.zig"))
	assert.Equal(t, outerURI, candidates[0], "outermost ancestor must come first")
	assert.Equal(t, innerURI, candidates[1])
}

// doneRunner signals a channel once Run completes, for tests that need to
// wait on a build triggered by a goroutine they don't control directly.
type doneRunner struct {
	cfg  *BuildConfig
	done chan struct{}
}

func (r *doneRunner) Run(ctx context.Context, uri string, associated *BuildAssociatedConfig) (*BuildConfig, error) {
	defer close(r.done)
	return r.cfg, nil
}

// TestStore_OpenDocument_AncestorBuildFileResolves covers the ancestor-walk
// path end to end: opening a document under a directory with its own
// build.zig must not just create a BuildFile entry for it but actually run
// it, and a sibling document opened once that config is cached must settle
// into a resolved association immediately rather than staying stuck
// unresolved.
func TestStore_OpenDocument_AncestorBuildFileResolves(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "build.zig"), []byte(""), 0o644))
	mainPath := filepath.Join(root, "main.zig")
	siblingPath := filepath.Join(root, "sibling.zig")
	require.NoError(t, os.WriteFile(mainPath, []byte(""), 0o644))
	require.NoError(t, os.WriteFile(siblingPath, []byte(""), 0o644))
	mainURI := mustURI(t, mainPath)
	siblingURI := mustURI(t, siblingPath)
	buildURI := mustURI(t, filepath.Join(root, "build.zig"))

	runner := &doneRunner{
		cfg: &BuildConfig{Packages: []PackageRef{
			{Name: "main", URI: mainURI},
			{Name: "sibling", URI: siblingURI},
		}},
		done: make(chan struct{}),
	}

	cfg := config.Default()
	cfg.Project.Root = root
	s := New(cfg, NewGrammarRegistry(), Collaborators{
		Imports:       fakeImportCollector{},
		CImports:      noopCImportCollector{},
		RunnerFactory: func(string) Runner { return runner },
	})

	_, err := s.OpenDocument(mainURI, []byte(""))
	require.NoError(t, err)

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ancestor-discovered build file was never invalidated")
	}

	bf, ok := s.GetBuildFile(buildURI)
	require.True(t, ok)
	gotCfg, _ := bf.Config()
	require.NotNil(t, gotCfg, "ancestor-discovered build file's config must be produced, not left nil forever")

	sibling, err := s.OpenDocument(siblingURI, []byte(""))
	require.NoError(t, err)
	resolved, ok := sibling.AssociatedBuildFile()
	assert.True(t, ok, "a sibling document opened after the ancestor's config is cached must resolve immediately")
	assert.Equal(t, buildURI, resolved)
}

func TestStore_CloseDocument_GCPrunesUnreachable(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a.zig")
	bPath := filepath.Join(root, "b.zig")
	require.NoError(t, os.WriteFile(aPath, []byte(""), 0o644))
	require.NoError(t, os.WriteFile(bPath, []byte(""), 0o644))

	aURI := mustURI(t, aPath)
	bURI := mustURI(t, bPath)

	s := newTestStore(t, root, map[string][]string{"": nil})
	_, err := s.OpenDocument(aURI, []byte(""))
	require.NoError(t, err)
	_, err = s.GetOrLoadHandle(bURI)
	require.NoError(t, err)

	_, ok := s.GetHandle(bURI)
	require.True(t, ok, "b should be cached after load, pending GC")

	s.CloseDocument(aURI)
	s.RunGC()

	_, ok = s.GetHandle(bURI)
	assert.False(t, ok, "b is unreachable from any open document and should be collected")
}

func TestStore_ResolveCImport_StickyFailure(t *testing.T) {
	root := t.TempDir()
	docPath := filepath.Join(root, "main.zig")
	require.NoError(t, os.WriteFile(docPath, []byte(""), 0o644))
	docURI := mustURI(t, docPath)

	s := newTestStore(t, root, nil)
	s.collab.Translator = &countingFailingTranslator{}

	h, err := s.OpenDocument(docURI, []byte(""))
	require.NoError(t, err)
	h.SetImportsAndCImports(nil, []CImportRef{{NodeIndex: 0, Text: "#include <stdio.h>\n"}})

	_, err1 := s.ResolveCImport(h, 0)
	require.NoError(t, err1)
	_, err2 := s.ResolveCImport(h, 0)
	require.NoError(t, err2)

	translator := s.collab.Translator.(*countingFailingTranslator)
	assert.Equal(t, 1, translator.calls, "second resolution must hit the sticky cache, not re-translate")
}

type countingFailingTranslator struct {
	calls int
}

func (c *countingFailingTranslator) Translate(ctx context.Context, cfg *TranslateConfig, source string) (*CTranslateResult, error) {
	c.calls++
	return &CTranslateResult{Bundle: &ErrorBundle{Tag: "x", Message: "translation failed"}}, nil
}

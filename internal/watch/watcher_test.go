package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/uriutil"
)

type noopImportCollector struct{}

func (noopImportCollector) CollectImports(tree *docstore.ParsedTree) []string { return nil }

type noopCImportCollector struct{}

func (noopCImportCollector) CollectCImports(tree *docstore.ParsedTree) []docstore.CImportConstruct {
	return nil
}

func newTestStore(t *testing.T, root string) *docstore.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Build.ZigLibDir = filepath.Join(root, "zig-lib")

	return docstore.New(cfg, docstore.NewGrammarRegistry(), docstore.Collaborators{
		Imports:  noopImportCollector{},
		CImports: noopCImportCollector{},
	})
}

func TestNew_DisabledReturnsNilWatcher(t *testing.T) {
	cfg := config.Default()
	cfg.Watch.Enabled = false

	w, err := New(cfg, newTestStore(t, t.TempDir()))
	require.NoError(t, err)
	require.Nil(t, w)
}

func TestNew_ZeroDebounceDefaultsTo150ms(t *testing.T) {
	cfg := config.Default()
	cfg.Watch.Enabled = true
	cfg.Watch.DebounceMs = 0

	w, err := New(cfg, newTestStore(t, t.TempDir()))
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.fsw.Close()

	require.Equal(t, 150*time.Millisecond, w.debounce)
}

func TestMatchesAny(t *testing.T) {
	cases := []struct {
		globs []string
		path  string
		want  bool
	}{
		{nil, "a/b/c.zig", false},
		{[]string{"zig-cache"}, "zig-cache", true},
		{[]string{"**/zig-cache/**"}, "proj/zig-cache/o", true},
		{[]string{"**/.git/**"}, "a/.git/config", true},
		{[]string{"*.tmp"}, "file.tmp", true},
		{[]string{"*.tmp"}, "sub/file.tmp", false},
		{[]string{"*.tmp"}, "file.zig", false},
	}
	for _, c := range cases {
		got := matchesAny(c.globs, c.path)
		require.Equal(t, c.want, got, "globs=%v path=%q", c.globs, c.path)
	}
}

func TestWatcher_Settle_DropsClosedHandleOnly(t *testing.T) {
	root := t.TempDir()
	store := newTestStore(t, root)

	path := filepath.Join(root, "a.zig")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1;\n"), 0o644))

	cfg := config.Default()
	cfg.Watch.Enabled = true
	cfg.Watch.DebounceMs = 20

	w, err := New(cfg, store)
	require.NoError(t, err)
	defer w.fsw.Close()

	uri, h, err := openTestDoc(store, path)
	require.NoError(t, err)
	require.NotNil(t, h)

	w.settle(path)
	_, stillCached := store.GetHandle(uri)
	require.True(t, stillCached, "open document must survive a watcher settle")

	store.CloseDocument(uri)
	_, err = store.GetOrLoadHandle(uri)
	require.NoError(t, err)
	_, stillCached = store.GetHandle(uri)
	require.True(t, stillCached, "closed document reloaded from disk stays cached until settle")
	w.settle(path)
	_, stillCached = store.GetHandle(uri)
	require.False(t, stillCached, "closed document should be dropped on settle")
}

func openTestDoc(store *docstore.Store, path string) (string, *docstore.Handle, error) {
	uri, err := uriutil.FromPath(path)
	if err != nil {
		return "", nil, err
	}
	h, err := store.OpenDocument(uri, []byte("const x = 1;\n"))
	return uri, h, err
}

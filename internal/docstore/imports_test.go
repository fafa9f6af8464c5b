package docstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SuggestPackageName_FindsCloseMatch(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///proj/build.zig"})
	_, ok := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer { return DepYes })
	require.True(t, ok)

	s := newTestStore(t, t.TempDir(), nil)
	bf, _ := s.getOrCreateBuildFile("file:///proj/build.zig")
	bf.Invalidate(context.Background(), &staticConfigRunner{
		cfg: &BuildConfig{Packages: []PackageRef{{Name: "networking", URI: "file:///proj/net.zig"}}},
	}, func() {}, func(bool) {})

	suggestion, found := s.SuggestPackageName(h, "netwroking")
	require.True(t, found)
	assert.Equal(t, "networking", suggestion)
}

func TestStore_SuggestPackageName_NoCandidateClearsThreshold(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///proj/build.zig"})
	_, ok := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer { return DepYes })
	require.True(t, ok)

	s := newTestStore(t, t.TempDir(), nil)
	bf, _ := s.getOrCreateBuildFile("file:///proj/build.zig")
	bf.Invalidate(context.Background(), &staticConfigRunner{
		cfg: &BuildConfig{Packages: []PackageRef{{Name: "networking", URI: "file:///proj/net.zig"}}},
	}, func() {}, func(bool) {})

	_, found := s.SuggestPackageName(h, "completely-unrelated-name")
	assert.False(t, found)
}

func TestStore_SuggestPackageName_NoBuildConfigYet(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///proj/build.zig"})
	_, ok := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer { return DepYes })
	require.True(t, ok)

	s := newTestStore(t, t.TempDir(), nil)
	s.getOrCreateBuildFile("file:///proj/build.zig")

	_, found := s.SuggestPackageName(h, "anything")
	assert.False(t, found)
}

// staticConfigRunner is a fake Runner returning a fixed config, for tests
// that only need a BuildFile in a populated state.
type staticConfigRunner struct {
	cfg *BuildConfig
}

func (r *staticConfigRunner) Run(ctx context.Context, uri string, associated *BuildAssociatedConfig) (*BuildConfig, error) {
	return r.cfg, nil
}

func TestStore_GetOrLoadHandle_CoalescesConcurrentLoads(t *testing.T) {
	root := t.TempDir()
	docPath := filepath.Join(root, "a.zig")
	require.NoError(t, os.WriteFile(docPath, []byte("const x = 1;\n"), 0o644))
	docURI := mustURI(t, docPath)

	s := newTestStore(t, root, nil)

	var wg sync.WaitGroup
	handles := make([]*Handle, 32)
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.GetOrLoadHandle(docURI)
			require.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h, "every concurrent caller should observe the same loaded handle")
	}

	s.mu.RLock()
	n := len(s.handleOrder)
	s.mu.RUnlock()
	assert.Equal(t, 1, n, "the URI must be inserted exactly once")
}

package docstore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandle(t *testing.T, source []byte) *Handle {
	t.Helper()
	h, err := NewHandle("file:///doc.zig", source, true, NewGrammarRegistry())
	require.NoError(t, err)
	return h
}

func TestHandle_GetScope_ProducesOnce(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))

	var calls atomic.Int64
	build := func(tree *ParsedTree) (Scope, error) {
		calls.Add(1)
		return "built-scope", nil
	}

	var wg sync.WaitGroup
	results := make([]Scope, 16)
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.GetScope(build)
			require.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, Scope("built-scope"), r)
	}
	assert.Equal(t, StatusDone, h.ScopeStatus())
}

func TestHandle_SetSource_ResetsDerivatives(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))

	_, err := h.GetScope(func(tree *ParsedTree) (Scope, error) { return "v1", nil })
	require.NoError(t, err)
	assert.Equal(t, StatusDone, h.ScopeStatus())

	_, _, err = h.SetSource([]byte("const y = 2;\n"))
	require.NoError(t, err)

	assert.Equal(t, StatusNone, h.ScopeStatus())
	assert.Equal(t, uint64(1), h.Version())

	v, err := h.GetScope(func(tree *ParsedTree) (Scope, error) { return "v2", nil })
	require.NoError(t, err)
	assert.Equal(t, Scope("v2"), v)
}

func TestHandle_SetOpen_ReturnsPrior(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	assert.True(t, h.IsOpen())

	prior := h.SetOpen(false)
	assert.True(t, prior)
	assert.False(t, h.IsOpen())

	prior = h.SetOpen(false)
	assert.False(t, prior)
}

func TestHandle_ResolveAssociatedBuildFile_SingleCandidateCommitsWithoutCheck(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///proj/build.zig"})

	called := false
	uri, ok := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer {
		called = true
		return DepYes
	})

	assert.True(t, ok)
	assert.Equal(t, "file:///proj/build.zig", uri)
	assert.False(t, called, "single remaining candidate should commit without invoking check")
}

func TestHandle_ResolveAssociatedBuildFile_RejectsThenCommits(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///a/build.zig", "file:///b/build.zig"})

	uri, ok := h.ResolveAssociatedBuildFile(func(cand string) DependencyAnswer {
		if cand == "file:///a/build.zig" {
			return DepNo
		}
		return DepYes
	})

	assert.True(t, ok)
	assert.Equal(t, "file:///b/build.zig", uri)

	// Resolution is sticky: a second call returns the same answer without
	// re-invoking check.
	uri2, ok2 := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer {
		t.Fatal("check should not be called once resolved")
		return DepUnknown
	})
	assert.True(t, ok2)
	assert.Equal(t, uri, uri2)
}

func TestHandle_ResolveAssociatedBuildFile_AllRejectedGivesNone(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates([]string{"file:///a/build.zig", "file:///b/build.zig"})

	_, ok := h.ResolveAssociatedBuildFile(func(string) DependencyAnswer {
		return DepNo
	})
	assert.False(t, ok)

	// Both candidates were conclusively rejected, so the association
	// settled to `none` and the non-computing lookup reports no build file.
	_, ok2 := h.AssociatedBuildFile()
	assert.False(t, ok2)
}

func TestHandle_SeedAssociatedBuildFileCandidates_EmptyGoesToNone(t *testing.T) {
	h := newTestHandle(t, []byte("const x = 1;\n"))
	h.SeedAssociatedBuildFileCandidates(nil)
	_, ok := h.AssociatedBuildFile()
	assert.False(t, ok)
}

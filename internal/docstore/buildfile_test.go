package docstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner sleeps to simulate a slow external build run, returning a
// distinct config each call so the test can tell which run's result won.
type countingRunner struct {
	calls atomic.Int64
	sleep time.Duration
}

func (r *countingRunner) Run(ctx context.Context, uri string, associated *BuildAssociatedConfig) (*BuildConfig, error) {
	n := r.calls.Add(1)
	time.Sleep(r.sleep)
	return &BuildConfig{Packages: []PackageRef{{Name: "run", URI: uriForCall(n)}}}, nil
}

func uriForCall(n int64) string {
	switch n {
	case 1:
		return "file:///run1"
	case 2:
		return "file:///run2"
	default:
		return "file:///run3+"
	}
}

// TestBuildFileInvalidate_CoalescesRapidInvalidations exercises the
// scenario of three rapid invalidations against a slow runner: the later
// two coalesce into a single rerun, so two runs occur unless scheduling
// delays the third invalidation past the first run, and the published
// config is the last run's.
func TestBuildFileInvalidate_CoalescesRapidInvalidations(t *testing.T) {
	bf := NewBuildFile("file:///proj/build.zig")
	runner := &countingRunner{sleep: 100 * time.Millisecond}

	var wg sync.WaitGroup
	var beginCount, endCount atomic.Int64
	notifyBegin := func() { beginCount.Add(1) }
	notifyEnd := func(success bool) { endCount.Add(1) }

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bf.Invalidate(context.Background(), runner, notifyBegin, notifyEnd)
		}()
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	// The rerun loop inside runLoop may chain a third run if the second
	// invalidation's runner call was still in flight when the third
	// Invalidate arrived; assert the documented bound (at most the
	// invalidation count) rather than an exact count that depends on
	// scheduling.
	assert.LessOrEqual(t, runner.calls.Load(), int64(3))
	assert.GreaterOrEqual(t, runner.calls.Load(), int64(2))

	idle, running, invalidated := bf.State()
	assert.True(t, idle)
	assert.False(t, running)
	assert.False(t, invalidated)

	cfg, version := bf.Config()
	require.NotNil(t, cfg)
	require.Len(t, cfg.Packages, 1)
	assert.Equal(t, uriForCall(runner.calls.Load()), cfg.Packages[0].URI, "only the last run's config is published")
	assert.Greater(t, version, uint64(0))

	assert.Equal(t, int64(1), beginCount.Load())
	assert.Equal(t, int64(1), endCount.Load())
}

func TestBuildFileInvalidate_SingleCallRunsOnce(t *testing.T) {
	bf := NewBuildFile("file:///proj/build.zig")
	runner := &countingRunner{sleep: time.Millisecond}

	bf.Invalidate(context.Background(), runner, func() {}, func(bool) {})

	assert.Equal(t, int64(1), runner.calls.Load())
	idle, _, _ := bf.State()
	assert.True(t, idle)
}

func TestBuildFileInvalidate_FailurePreservesPreviousConfig(t *testing.T) {
	bf := NewBuildFile("file:///proj/build.zig")
	good := &countingRunner{sleep: time.Millisecond}
	bf.Invalidate(context.Background(), good, func() {}, func(bool) {})
	cfg1, v1 := bf.Config()
	require.NotNil(t, cfg1)

	failing := &failingRunner{}
	bf.Invalidate(context.Background(), failing, func() {}, func(bool) {})

	cfg2, v2 := bf.Config()
	assert.Same(t, cfg1, cfg2)
	assert.Equal(t, v1, v2)
}

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, uri string, associated *BuildAssociatedConfig) (*BuildConfig, error) {
	return nil, assert.AnError
}

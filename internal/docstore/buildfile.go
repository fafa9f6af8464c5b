package docstore

import (
	"context"
	"sync"
)

// BuildConfig is the dynamic configuration produced by executing a build
// description: packages, include dirs, C macros, and the build roots it
// itself depends on.
type BuildConfig struct {
	Packages       []PackageRef
	IncludeDirs    []string
	CMacros        []string
	DepsBuildRoots []PackageRef
}

// PackageRef names a package or dependency build root by name and a
// resolved filesystem URI.
type PackageRef struct {
	Name string
	URI  string
}

// BuildAssociatedConfig is the static companion configuration loaded from
// `zls.build.json` next to a build description.
type BuildAssociatedConfig struct {
	BuildOptions        []string
	RelativeBuiltinPath string
}

// runState is the external-run coalescing state machine.
type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateRunningInvalidated
)

// BuildFile is the per-build-description state: the most recently
// published dynamic config and the coalescing state of any in-flight run.
type BuildFile struct {
	URI        string
	BuiltinURI string // optional override for the language-builtin module

	mu                    sync.Mutex
	buildAssociatedConfig *BuildAssociatedConfig
	config                *BuildConfig
	version               uint64
	state                 runState
}

// NewBuildFile constructs a BuildFile in its idle state with no config yet
// produced.
func NewBuildFile(uri string) *BuildFile {
	return &BuildFile{URI: uri, state: stateIdle}
}

// Config returns the build file's currently published config, if any, and
// its version. Safe to call concurrently with an in-flight run: the
// previous config remains live until the run publishes a replacement —
// a failed run never clears it.
func (b *BuildFile) Config() (*BuildConfig, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config, b.version
}

// BuildAssociatedConfig returns the static companion config, if loaded.
func (b *BuildFile) BuildAssociatedConfig() *BuildAssociatedConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buildAssociatedConfig
}

// SetBuildAssociatedConfig stores the static companion config (loaded once
// by the store when the BuildFile is created).
func (b *BuildFile) SetBuildAssociatedConfig(cfg *BuildAssociatedConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildAssociatedConfig = cfg
}

// Runner executes a build description and returns its parsed config.
// Implemented by internal/buildrun against the real `zig build`
// subcommand; tests supply a fake to exercise coalescing without spawning
// a process.
type Runner interface {
	Run(ctx context.Context, uri string, associated *BuildAssociatedConfig) (*BuildConfig, error)
}

// Invalidate drives the coalescing state machine. The first invalidation
// on an idle build file starts a run; invalidations
// that arrive while a run is already in flight flip the state to
// running_but_invalidated and return immediately without blocking the
// caller's goroutine on the run itself (the run executes on whichever
// goroutine won the idle->running transition, or the rerun continuation
// below).
//
// Only the call that wins the idle->running transition invokes
// notifyBegin, once before its first run, and notifyEnd, once with the
// final run's outcome; calls that only flip the state invoke neither. The
// caller (Store) drives builds_in_progress from those callbacks.
func (b *BuildFile) Invalidate(ctx context.Context, runner Runner, notifyBegin func(), notifyEnd func(success bool)) {
	b.mu.Lock()
	switch b.state {
	case stateIdle:
		b.state = stateRunning
	case stateRunning:
		b.state = stateRunningInvalidated
		b.mu.Unlock()
		return
	case stateRunningInvalidated:
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	notifyBegin()
	b.runLoop(ctx, runner, notifyEnd)
}

// runLoop performs the run-then-check-for-rerun sequence, looping as long
// as an invalidation arrived while the previous run was in flight.
func (b *BuildFile) runLoop(ctx context.Context, runner Runner, notifyEnd func(success bool)) {
	for {
		associated := b.BuildAssociatedConfig()
		cfg, err := runner.Run(ctx, b.URI, associated)

		b.mu.Lock()
		rerun := b.state == stateRunningInvalidated
		if err == nil && !rerun {
			b.config = cfg
			b.version++
		}
		if rerun {
			b.state = stateRunning
		} else {
			b.state = stateIdle
		}
		b.mu.Unlock()

		if !rerun {
			notifyEnd(err == nil)
			return
		}
		// Discard this result and run again; only the final run's outcome
		// is reported to notifyEnd. The config published after a sequence
		// of invalidations reflects at least the last one.
	}
}

// State reports the build file's current coalescing state, for tests and
// diagnostics.
func (b *BuildFile) State() (idle, running, runningInvalidated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateIdle, b.state == stateRunning, b.state == stateRunningInvalidated
}

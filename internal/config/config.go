// Package config loads the store's operating configuration: the paths to
// external collaborators plus the ambient project/watch settings a
// complete daemon needs.
package config

import (
	"os"
	"path/filepath"
)

// Constants governing document and process-output sizing, and the
// well-known file names/suffixes the store recognizes.
const (
	// MaxDocumentSize caps load-on-demand reads (2^32 - 1 bytes).
	MaxDocumentSize int64 = 1<<32 - 1

	// MaxExternalOutputBytes caps captured stdout/stderr from any spawned
	// external process (build runner or C translator), 16 MiB each.
	MaxExternalOutputBytes = 16 * 1024 * 1024

	// BuildFileSuffix identifies a document as a build description.
	BuildFileSuffix = "/build.zig"

	// StdLibMarker identifies a URI as belonging to the standard library.
	StdLibMarker = "/std/"

	// BuiltinFileSuffix identifies a document as a language-builtin module.
	BuiltinFileSuffix = "/builtin.zig"

	// BuildCompanionFileName is the static companion config sibling of a
	// build.zig.
	BuildCompanionFileName = "zls.build.json"

	// ProjectOverrideFileName is an optional per-developer override file
	// (TOML).
	ProjectOverrideFileName = ".zlsrc.toml"
)

// Config is the store's immutable-during-operation configuration. Any
// collaborator field left empty disables the feature that depends on it.
type Config struct {
	Project Project
	Build   Build
	Watch   Watch
}

// Project describes the workspace root and filesystem scope.
type Project struct {
	Root    string
	Name    string
	Include []string
	Exclude []string
}

// Build carries the paths to the Zig toolchain and build-runner
// collaborators. Every field is optional; its absence disables the
// dependent feature.
type Build struct {
	ZigExePath      string
	BuildRunnerPath string
	ZigLibDir       string
	GlobalCacheDir  string
	BuiltinPath     string
}

// Watch configures the optional filesystem watcher that keeps closed
// documents from going stale on disk changes.
type Watch struct {
	Enabled     bool
	DebounceMs  int
}

// Default returns a Config with the project root set to the current
// working directory and conservative defaults for everything else.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Project: Project{
			Root:    cwd,
			Include: []string{},
			Exclude: []string{"**/.git/**", "**/zig-cache/**", "**/zig-out/**"},
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: 150,
		},
	}
}

// Load builds a Config for projectRoot by layering, in increasing
// precedence: built-in defaults, a project-local KDL file
// (`<root>/.zlsd.kdl`), and a project-local TOML override file
// (`<root>/.zlsrc.toml`). There is deliberately no machine-wide global
// tier: every setting here is project-scoped.
func Load(projectRoot string) (*Config, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}

	cfg := Default()
	cfg.Project.Root = abs

	if kdlCfg, err := loadKDL(abs); err != nil {
		return nil, err
	} else if kdlCfg != nil {
		cfg = mergeKDL(cfg, kdlCfg)
	}

	if err := applyTOMLOverrides(cfg, abs); err != nil {
		return nil, err
	}

	return cfg, nil
}

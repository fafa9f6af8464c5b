// Package buildrun spawns the external build-description process and
// parses its output into the docstore's BuildConfig.
// Grounded on a familiar one-shot exec.CommandContext idiom: captured
// stdout, cwd set explicitly.
package buildrun

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/ident"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/uriutil"
	"github.com/standardbeagle/zlsd/internal/zerr"
)

const logComponent = "buildrun"

// Runner spawns `<zig_exe_path> build` with the configured build-runner
// script against a given build.zig and parses its JSON stdout schema:
// packages[{name,path}], include_dirs[], c_macros[], and
// deps_build_roots[{name,path}].
type Runner struct {
	ZigExePath      string
	BuildRunnerPath string
	GlobalCacheDir  string
	Diagnostics     docstore.Diagnostics
}

// New constructs a Runner from the store's configuration. Returns nil if
// zig_exe_path is unset, since the build subsystem features that depend on
// it have nothing to run.
func New(cfg *config.Config, diag docstore.Diagnostics) *Runner {
	if cfg.Build.ZigExePath == "" {
		return nil
	}
	return &Runner{
		ZigExePath:      cfg.Build.ZigExePath,
		BuildRunnerPath: cfg.Build.BuildRunnerPath,
		GlobalCacheDir:  cfg.Build.GlobalCacheDir,
		Diagnostics:     diag,
	}
}

// stdoutSchema is the minimum build-runner JSON contract this module
// relies on. Unknown fields are ignored (encoding/json's default
// behavior).
type stdoutSchema struct {
	Packages       []pkgEntry `json:"packages"`
	IncludeDirs    []string   `json:"include_dirs"`
	CMacros        []string   `json:"c_macros"`
	DepsBuildRoots []pkgEntry `json:"deps_build_roots"`
}

type pkgEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Run executes the build description at buildFileURI and returns its
// parsed config.
func (r *Runner) Run(ctx context.Context, buildFileURI string, associated *docstore.BuildAssociatedConfig) (*docstore.BuildConfig, error) {
	path, err := uriutil.ToPath(buildFileURI)
	if err != nil {
		return nil, zerr.NewURIError(buildFileURI, err)
	}
	dir := filepath.Dir(path)

	args := []string{"build", "--build-runner", r.BuildRunnerPath}
	if r.GlobalCacheDir != "" {
		args = append(args, "--global-cache-dir", r.GlobalCacheDir)
	}
	if associated != nil {
		args = append(args, associated.BuildOptions...)
	}

	cmd := exec.CommandContext(ctx, r.ZigExePath, args...)
	cmd.Dir = dir

	var stdout, stderr cappedBuffer
	stdout.limit = config.MaxExternalOutputBytes
	stderr.limit = config.MaxExternalOutputBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debugf(logComponent, "running %s %v in %s", r.ZigExePath, args, dir)
	runErr := cmd.Run()

	if runErr != nil {
		exitCode := -1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}

		tag := ident.Tag("build", ident.Sum([]byte(buildFileURI)))
		bundle := &docstore.ErrorBundle{Tag: tag, Message: stderr.String()}
		if r.Diagnostics != nil {
			r.Diagnostics.PushErrorBundle(tag, 0, dir, bundle)
			r.Diagnostics.Publish()
		}
		return nil, zerr.NewRunFailedError(buildFileURI, tag, exitCode, runErr)
	}

	var schema stdoutSchema
	if err := json.Unmarshal(stdout.Bytes(), &schema); err != nil {
		return nil, zerr.NewInvalidBuildConfigError(buildFileURI, err)
	}

	cfg := &docstore.BuildConfig{
		IncludeDirs: schema.IncludeDirs,
		CMacros:     schema.CMacros,
	}
	for _, p := range schema.Packages {
		if u, err := resolveRelative(dir, p.Path); err == nil {
			cfg.Packages = append(cfg.Packages, docstore.PackageRef{Name: p.Name, URI: u})
		}
	}
	for _, p := range schema.DepsBuildRoots {
		if u, err := resolveRelative(dir, p.Path); err == nil {
			cfg.DepsBuildRoots = append(cfg.DepsBuildRoots, docstore.PackageRef{Name: p.Name, URI: u})
		}
	}

	return cfg, nil
}

func resolveRelative(buildFileDir, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return uriutil.FromPath(filepath.Clean(relPath))
	}
	return uriutil.FromPath(filepath.Join(buildFileDir, filepath.FromSlash(relPath)))
}

// cappedBuffer is an io.Writer that silently drops writes past limit bytes,
// enforcing a hard output cap without allocating unbounded memory for a
// runaway process.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte { return c.buf.Bytes() }
func (c *cappedBuffer) String() string { return c.buf.String() }

var _ io.Writer = (*cappedBuffer)(nil)

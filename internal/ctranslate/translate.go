// Package ctranslate invokes `zig translate-c` to turn a @cImport site's
// expanded C source into a synthetic Zig document, caching the result on
// disk under the configured cache directory. Uses the same
// exec.CommandContext idiom as internal/buildrun: one-shot process,
// captured output, explicit working directory.
package ctranslate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/docstore"
	"github.com/standardbeagle/zlsd/internal/ident"
	"github.com/standardbeagle/zlsd/internal/logging"
	"github.com/standardbeagle/zlsd/internal/uriutil"
	"github.com/standardbeagle/zlsd/internal/zerr"
)

const logComponent = "ctranslate"

// Translator spawns `<zig_exe_path> translate-c` against a temporary C
// source file and caches the generated Zig source under cacheDir, keyed
// by the source's content hash so identical cImport sites across a
// session are translated once.
type Translator struct {
	ZigExePath string
	CacheDir   string
}

// New constructs a Translator from the store's build configuration.
// Returns nil if zig_exe_path is unset, disabling @cImport translation
// the same way buildrun.New disables the build subsystem.
func New(cfg *config.Config) *Translator {
	if cfg.Build.ZigExePath == "" {
		return nil
	}
	cacheDir := cfg.Build.GlobalCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "zlsd-ctranslate")
	} else {
		cacheDir = filepath.Join(cacheDir, "zlsd-ctranslate")
	}
	return &Translator{ZigExePath: cfg.Build.ZigExePath, CacheDir: cacheDir}
}

// Translate implements docstore.CTranslator.
func (t *Translator) Translate(ctx context.Context, cfg *docstore.TranslateConfig, source string) (*docstore.CTranslateResult, error) {
	hash := ident.Sum([]byte(source))
	outPath := filepath.Join(t.CacheDir, hash.String()+".zig")

	if data, err := os.ReadFile(outPath); err == nil {
		uri, uerr := uriutil.FromPath(outPath)
		if uerr != nil {
			return nil, uerr
		}
		_ = data // cache hit; content itself is not re-validated
		return &docstore.CTranslateResult{URI: uri}, nil
	}

	if err := os.MkdirAll(t.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("ctranslate: creating cache dir: %w", err)
	}

	srcFile, err := os.CreateTemp(t.CacheDir, "cimport-*.c")
	if err != nil {
		return nil, fmt.Errorf("ctranslate: creating temp source: %w", err)
	}
	defer os.Remove(srcFile.Name())
	if _, err := srcFile.WriteString(source); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("ctranslate: writing temp source: %w", err)
	}
	srcFile.Close()

	args := []string{"translate-c"}
	for _, dir := range cfg.IncludeDirs {
		args = append(args, "-I", dir)
	}
	for _, macro := range cfg.CMacros {
		args = append(args, "-D"+macro)
	}
	args = append(args, srcFile.Name())

	cmd := exec.CommandContext(ctx, t.ZigExePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debugf(logComponent, "running %s %v", t.ZigExePath, args)
	if err := cmd.Run(); err != nil {
		tag := ident.Tag("cimport", hash)
		bundle := &docstore.ErrorBundle{Tag: tag, Message: stderr.String()}
		return &docstore.CTranslateResult{Bundle: bundle}, nil
	}

	if err := os.WriteFile(outPath, stdout.Bytes(), 0o644); err != nil {
		return nil, zerr.NewFileError("write", outPath, err)
	}

	uri, err := uriutil.FromPath(outPath)
	if err != nil {
		return nil, err
	}
	return &docstore.CTranslateResult{URI: uri}, nil
}

var _ docstore.CTranslator = (*Translator)(nil)

package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlOverrides is a supplemented, per-developer override layer
// (SPEC_FULL.md §4.8) read from `.zlsrc.toml` next to the project root.
// It takes precedence over `.zlsd.kdl` for exactly the fields a developer
// would plausibly want to override locally without touching the
// checked-in project config.
type tomlOverrides struct {
	ZigExePath      string `toml:"zig_exe_path"`
	BuildRunnerPath string `toml:"build_runner_path"`
	ZigLibDir       string `toml:"zig_lib_dir"`
	GlobalCacheDir  string `toml:"global_cache_dir"`
	BuiltinPath     string `toml:"builtin_path"`
}

// applyTOMLOverrides reads `<projectRoot>/.zlsrc.toml`, if present, and
// overlays any non-empty fields onto cfg. A missing file is not an error.
func applyTOMLOverrides(cfg *Config, projectRoot string) error {
	path := filepath.Join(projectRoot, ProjectOverrideFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var o tomlOverrides
	if err := toml.Unmarshal(data, &o); err != nil {
		return err
	}

	if o.ZigExePath != "" {
		cfg.Build.ZigExePath = o.ZigExePath
	}
	if o.BuildRunnerPath != "" {
		cfg.Build.BuildRunnerPath = o.BuildRunnerPath
	}
	if o.ZigLibDir != "" {
		cfg.Build.ZigLibDir = o.ZigLibDir
	}
	if o.GlobalCacheDir != "" {
		cfg.Build.GlobalCacheDir = o.GlobalCacheDir
	}
	if o.BuiltinPath != "" {
		cfg.Build.BuiltinPath = o.BuiltinPath
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// kdlConfig holds the subset of fields a `.zlsd.kdl` file may override.
// Fields are pointers/nil-slices so mergeKDL can distinguish "not set"
// from "explicitly set to the zero value".
type kdlConfig struct {
	projectName *string
	include     []string
	exclude     []string

	zigExePath      *string
	buildRunnerPath *string
	zigLibDir       *string
	globalCacheDir  *string
	builtinPath     *string

	watchEnabled    *bool
	watchDebounceMs *int
}

// loadKDL reads `<projectRoot>/.zlsd.kdl` if present. A missing file is not
// an error (returns nil, nil); other read errors and parse errors are
// returned, and Load fails with them.
func loadKDL(projectRoot string) (*kdlConfig, error) {
	path := filepath.Join(projectRoot, ".zlsd.kdl")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := &kdlConfig{}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.projectName = &s
					}
				}
			}
		case "include":
			cfg.include = collectStringArgs(n)
		case "exclude":
			cfg.exclude = collectStringArgs(n)
		case "build":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "zig_exe_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.zigExePath = &s
					}
				case "build_runner_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.buildRunnerPath = &s
					}
				case "zig_lib_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.zigLibDir = &s
					}
				case "global_cache_dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.globalCacheDir = &s
					}
				case "builtin_path":
					if s, ok := firstStringArg(cn); ok {
						cfg.builtinPath = &s
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.watchEnabled = &b
					}
				case "debounce_ms":
					if i, ok := firstIntArg(cn); ok {
						cfg.watchDebounceMs = &i
					}
				}
			}
		}
	}

	return cfg, nil
}

// mergeKDL layers a parsed `.zlsd.kdl` over the base config, project
// values replacing defaults, except exclude patterns, which are appended
// to the base list.
func mergeKDL(base *Config, k *kdlConfig) *Config {
	merged := *base

	if k.projectName != nil {
		merged.Project.Name = *k.projectName
	}
	if len(k.include) > 0 {
		merged.Project.Include = k.include
	}
	if len(k.exclude) > 0 {
		merged.Project.Exclude = append(append([]string{}, base.Project.Exclude...), k.exclude...)
	}

	if k.zigExePath != nil {
		merged.Build.ZigExePath = *k.zigExePath
	}
	if k.buildRunnerPath != nil {
		merged.Build.BuildRunnerPath = *k.buildRunnerPath
	}
	if k.zigLibDir != nil {
		merged.Build.ZigLibDir = *k.zigLibDir
	}
	if k.globalCacheDir != nil {
		merged.Build.GlobalCacheDir = *k.globalCacheDir
	}
	if k.builtinPath != nil {
		merged.Build.BuiltinPath = *k.builtinPath
	}

	if k.watchEnabled != nil {
		merged.Watch.Enabled = *k.watchEnabled
	}
	if k.watchDebounceMs != nil {
		merged.Watch.DebounceMs = *k.watchDebounceMs
	}

	return &merged
}

// --- kdl-go document helpers: a small node-walking idiom for pulling
// typed scalar arguments out of a parsed KDL document. ---

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

package docstore

import (
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/zlsd/internal/uriutil"
)

// sourceExt is the extension package-name resolution is keyed off of: an
// import string that does not end in it is assumed to name a package
// rather than a relative source file.
const sourceExt = ".zig"

// ResolveImport resolves an import string raw as seen in handle h to a
// document URI. Returns false if raw cannot be resolved (no configured
// zig_lib_dir for "std", no resolved build file or matching package name,
// etc.) — callers drop unresolved imports from import_uris rather than
// erroring.
func (s *Store) ResolveImport(h *Handle, raw string) (string, bool) {
	switch {
	case raw == "std":
		return s.resolveStd()
	case raw == "builtin":
		return s.resolveBuiltin(h)
	case !strings.HasSuffix(raw, sourceExt):
		return s.resolvePackageName(h, raw)
	default:
		u, err := uriutil.Join(h.URI, raw)
		if err != nil {
			return "", false
		}
		return u, true
	}
}

func (s *Store) resolveStd() (string, bool) {
	if s.cfg.Build.ZigLibDir == "" {
		return "", false
	}
	u, err := uriutil.JoinDir(s.cfg.Build.ZigLibDir, "std/std.zig")
	if err != nil {
		return "", false
	}
	return u, true
}

func (s *Store) resolveBuiltin(h *Handle) (string, bool) {
	if resolved, ok := h.AssociatedBuildFile(); ok {
		if bf, ok2 := s.GetBuildFile(resolved); ok2 && bf.BuiltinURI != "" {
			return bf.BuiltinURI, true
		}
	}
	if s.cfg.Build.BuiltinPath == "" {
		return "", false
	}
	u, err := uriutil.FromPath(s.cfg.Build.BuiltinPath)
	if err != nil {
		return "", false
	}
	return u, true
}

func (s *Store) resolvePackageName(h *Handle, name string) (string, bool) {
	// If h is itself a build file, its own deps_build_roots supplies
	// package names too.
	if bf, ok := s.GetBuildFile(h.URI); ok {
		if cfg, _ := bf.Config(); cfg != nil {
			if u, ok := findPackage(cfg.DepsBuildRoots, name); ok {
				return u, true
			}
		}
	}

	resolved, ok := h.AssociatedBuildFile()
	if !ok {
		return "", false
	}
	bf, ok := s.GetBuildFile(resolved)
	if !ok {
		return "", false
	}
	cfg, _ := bf.Config()
	if cfg == nil {
		return "", false
	}
	return findPackage(cfg.Packages, name)
}

func findPackage(pkgs []PackageRef, name string) (string, bool) {
	for _, p := range pkgs {
		if p.Name == name {
			return p.URI, true
		}
	}
	return "", false
}

// suggestPackageNameThreshold is the minimum Jaro-Winkler similarity for
// SuggestPackageName to offer a candidate rather than stay silent.
const suggestPackageNameThreshold = 0.80

// SuggestPackageName looks for a package name in h's associated build
// file's package set that resembles miss, for use in a "did you mean"
// hint when a package-name import fails to resolve. Returns false if h
// has no resolved build config or nothing clears the similarity
// threshold.
func (s *Store) SuggestPackageName(h *Handle, miss string) (string, bool) {
	resolved, ok := h.AssociatedBuildFile()
	if !ok {
		return "", false
	}
	bf, ok := s.GetBuildFile(resolved)
	if !ok {
		return "", false
	}
	cfg, _ := bf.Config()
	if cfg == nil {
		return "", false
	}

	best := ""
	bestScore := float32(suggestPackageNameThreshold)
	for _, p := range cfg.Packages {
		score, err := edlib.StringsSimilarity(miss, p.Name, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = p.Name
		}
	}
	return best, best != ""
}

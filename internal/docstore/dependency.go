package docstore

import (
	"github.com/standardbeagle/zlsd/internal/config"
	"github.com/standardbeagle/zlsd/internal/ident"
	"github.com/standardbeagle/zlsd/internal/uriutil"
)

// ResolveHandleBuildFile runs h's associated-build-file resolution using
// this store's dependency-membership check.
func (s *Store) ResolveHandleBuildFile(h *Handle) (uri string, ok bool) {
	return h.ResolveAssociatedBuildFile(func(buildFileURI string) DependencyAnswer {
		return s.IsDependency(buildFileURI, h.URI)
	})
}

// IsDependency decides whether targetURI is a dependency of
// buildFileURI's package set. Returns DepUnknown if the build file has no
// config yet.
func (s *Store) IsDependency(buildFileURI, targetURI string) DependencyAnswer {
	bf, ok := s.GetBuildFile(buildFileURI)
	if !ok {
		return DepUnknown
	}
	cfg, _ := bf.Config()
	if cfg == nil {
		return DepUnknown
	}

	visited := make(map[string]bool)
	for _, pkg := range cfg.Packages {
		if s.uriInImports(pkg.URI, targetURI, buildFileURI, visited) {
			return DepYes
		}
	}
	return DepNo
}

// uriInImports is a DFS that chases import_uris from rootURI,
// short-circuiting on targetURI. Standard-library URIs are leaves. A
// visited handle whose own associated build file already equals
// buildFileURI is treated as a positive match without further descent.
// visited is shared across the whole walk to guarantee termination on
// import cycles.
func (s *Store) uriInImports(rootURI, targetURI, buildFileURI string, visited map[string]bool) bool {
	if visited[rootURI] {
		return false
	}
	visited[rootURI] = true

	if rootURI == targetURI {
		return true
	}
	if uriutil.Contains(rootURI, config.StdLibMarker) {
		return false
	}

	h, err := s.GetOrLoadHandle(rootURI)
	if err != nil || h == nil {
		return false
	}

	if resolved, ok := h.AssociatedBuildFile(); ok && resolved == buildFileURI {
		return true
	}

	for _, imp := range h.ImportURIs() {
		if s.uriInImports(imp, targetURI, buildFileURI, visited) {
			return true
		}
	}
	return false
}

// collectDependenciesLocked walks everything reachable from h: imports,
// successful cimport results, and the package URIs of the associated
// build file. Must be called with s.mu held (any mode): it only reads the
// store's maps and handle/build-file internals.
func (s *Store) collectDependenciesLocked(h *Handle, reached map[string]bool) {
	if reached[h.URI] {
		return
	}
	reached[h.URI] = true

	for _, imp := range h.ImportURIs() {
		s.followLocked(imp, reached)
	}

	for _, ci := range h.CImports() {
		hash := ident.Sum([]byte(ci.Text))
		if res, ok := s.cimports[hash]; ok && res.uri != "" {
			s.followLocked(res.uri, reached)
		}
	}

	if resolved, ok := h.AssociatedBuildFile(); ok {
		reached[resolved] = true
		if bf, ok2 := s.buildFiles[resolved]; ok2 {
			if cfg, _ := bf.Config(); cfg != nil {
				for _, pkg := range cfg.Packages {
					s.followLocked(pkg.URI, reached)
				}
			}
		}
	}
}

func (s *Store) followLocked(uri string, reached map[string]bool) {
	if reached[uri] {
		return
	}
	reached[uri] = true
	if h, ok := s.handles[uri]; ok {
		s.collectDependenciesLocked(h, reached)
	}
}

// CollectDependencies appends to out every URI reachable from h other than
// h itself: imports and successful cimport results, followed transitively,
// plus each reached handle's associated build-file URI and that build
// file's package URIs.
func (s *Store) CollectDependencies(h *Handle, out *[]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	s.collectDependenciesLocked(h, seen)
	for uri := range seen {
		if uri != h.URI {
			*out = append(*out, uri)
		}
	}
}

// CollectIncludeDirs appends the associated build file's include dirs to
// out. The bool return indicates whether the data is complete (false if
// the build config is still pending).
func (s *Store) CollectIncludeDirs(h *Handle, out *[]string) bool {
	resolved, ok := h.AssociatedBuildFile()
	if !ok {
		return false
	}
	bf, ok := s.GetBuildFile(resolved)
	if !ok {
		return false
	}
	cfg, _ := bf.Config()
	if cfg == nil {
		return false
	}
	*out = append(*out, cfg.IncludeDirs...)
	return true
}

// CollectCMacros appends the associated build file's C macros to out,
// analogous to CollectIncludeDirs.
func (s *Store) CollectCMacros(h *Handle, out *[]string) bool {
	resolved, ok := h.AssociatedBuildFile()
	if !ok {
		return false
	}
	bf, ok := s.GetBuildFile(resolved)
	if !ok {
		return false
	}
	cfg, _ := bf.Config()
	if cfg == nil {
		return false
	}
	*out = append(*out, cfg.CMacros...)
	return true
}

package docstore

import "github.com/standardbeagle/zlsd/internal/ident"

// runGCLocked runs the three reachability sweeps. Must be called with
// s.mu held for writing: all three sweeps mutate the store's maps.
func (s *Store) runGCLocked() {
	s.sweepDocumentsLocked()
	s.sweepCImportsLocked()
	s.sweepBuildFilesLocked()
}

// sweepDocumentsLocked seeds reachability with every open handle, walks
// collectDependencies from each, and removes any handle not reached.
func (s *Store) sweepDocumentsLocked() {
	reached := make(map[string]bool)
	for _, uri := range s.handleOrder {
		h := s.handles[uri]
		if h.IsOpen() {
			s.collectDependenciesLocked(h, reached)
		}
	}

	var survivors []string
	for _, uri := range s.handleOrder {
		if reached[uri] {
			survivors = append(survivors, uri)
		} else {
			delete(s.handles, uri)
		}
	}
	s.handleOrder = survivors
}

// sweepCImportsLocked keeps only the cimport cache entries referenced by a
// cimport text hash belonging to a surviving handle.
func (s *Store) sweepCImportsLocked() {
	reachedHashes := make(map[ident.Hash]bool)
	for _, h := range s.handles {
		for _, ci := range h.CImports() {
			reachedHashes[ident.Sum([]byte(ci.Text))] = true
		}
	}

	for hash := range s.cimports {
		if !reachedHashes[hash] {
			delete(s.cimports, hash)
		}
	}
}

// sweepBuildFilesLocked seeds reachability with every build file
// referenced by a surviving handle (as its associated build file, or
// because the handle itself is that build.zig URI), then transitively
// follows deps_build_roots.
func (s *Store) sweepBuildFilesLocked() {
	reached := make(map[string]bool)

	for uri, h := range s.handles {
		if resolved, ok := h.AssociatedBuildFile(); ok {
			reached[resolved] = true
		}
		if _, isBuildFile := s.buildFiles[uri]; isBuildFile {
			reached[uri] = true
		}
	}

	var frontier []string
	for uri := range reached {
		frontier = append(frontier, uri)
	}
	for len(frontier) > 0 {
		uri := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		bf, ok := s.buildFiles[uri]
		if !ok {
			continue
		}
		cfg, _ := bf.Config()
		if cfg == nil {
			continue
		}
		for _, root := range cfg.DepsBuildRoots {
			if !reached[root.URI] {
				reached[root.URI] = true
				frontier = append(frontier, root.URI)
			}
		}
	}

	var survivors []string
	for _, uri := range s.buildOrder {
		if reached[uri] {
			survivors = append(survivors, uri)
		} else {
			delete(s.buildFiles, uri)
		}
	}
	s.buildOrder = survivors
}

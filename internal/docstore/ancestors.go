package docstore

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/zlsd/internal/uriutil"
)

// AncestorBuildFileCandidates walks upward from docURI's directory,
// collecting every directory containing a readable build.zig and
// resolving each into a BuildFile (creating it if absent). A build file
// created by this walk — as opposed to one already known from a prior
// open or walk — is scheduled for an immediate invalidation so its config
// gets produced and cached instead of staying nil forever; an
// already-known build file is left alone since its config was already
// scheduled on its own creation. The result is reversed so the outermost
// ancestor is first, matching its highest resolution priority.
func (s *Store) AncestorBuildFileCandidates(docURI string) ([]string, error) {
	dirURI, err := uriutil.Dir(docURI)
	if err != nil {
		return nil, err
	}
	dirPath, err := uriutil.ToPath(dirURI)
	if err != nil {
		return nil, err
	}

	var nearestFirst []string
	dir := filepath.Clean(dirPath)
	for {
		candidate := filepath.Join(dir, "build.zig")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			uri, err := uriutil.FromPath(candidate)
			if err == nil {
				nearestFirst = append(nearestFirst, uri)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	outermostFirst := make([]string, len(nearestFirst))
	for i, uri := range nearestFirst {
		outermostFirst[len(nearestFirst)-1-i] = uri
	}

	for _, uri := range outermostFirst {
		if bf, created := s.getOrCreateBuildFile(uri); created {
			s.invalidateBuildFile(bf)
		}
	}

	return outermostFirst, nil
}

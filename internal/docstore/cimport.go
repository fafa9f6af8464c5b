package docstore

import (
	"context"
	"fmt"

	"github.com/standardbeagle/zlsd/internal/ident"
)

// ResolveCImport resolves one @cImport site to the URI of its translated
// synthetic document, with sticky-failure-per-hash behavior: a translation
// failure is cached under the generated C source's hash and never retried
// until the source (and therefore the hash) changes. May block invoking
// the external C translator collaborator.
func (s *Store) ResolveCImport(h *Handle, nodeIndex int) (string, error) {
	var ref *CImportRef
	for _, c := range h.CImports() {
		if c.NodeIndex == nodeIndex {
			cp := c
			ref = &cp
			break
		}
	}
	if ref == nil {
		return "", fmt.Errorf("docstore: no cimport at node %d in %s", nodeIndex, h.URI)
	}

	hash := ident.Sum([]byte(ref.Text))

	s.mu.RLock()
	cached, ok := s.cimports[hash]
	s.mu.RUnlock()
	if ok {
		if cached.bundle != nil {
			return "", nil
		}
		return cached.uri, nil
	}

	if s.collab.Translator == nil {
		return "", nil
	}

	buildFileURI, _ := h.AssociatedBuildFile()
	var includeDirs, cMacros []string
	s.CollectIncludeDirs(h, &includeDirs)
	s.CollectCMacros(h, &cMacros)

	cfg := &TranslateConfig{
		BuildFileURI: buildFileURI,
		IncludeDirs:  includeDirs,
		CMacros:      cMacros,
	}

	result, err := s.collab.Translator.Translate(context.Background(), cfg, ref.Text)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, already := s.cimports[hash]; already {
		// Another goroutine resolved this hash first; that result wins.
		if existing.bundle != nil {
			return "", nil
		}
		return existing.uri, nil
	}

	if result == nil || (result.URI == "" && result.Bundle == nil) {
		// The translator declined without a definite success or failure;
		// nothing is cached, so a future query tries again.
		return "", nil
	}
	if result.Bundle != nil {
		s.cimports[hash] = cimportResult{bundle: result.Bundle}
		if s.collab.Diagnostics != nil {
			s.collab.Diagnostics.PushSingleDocument("cimport", h.URI, result.Bundle)
			s.collab.Diagnostics.Publish()
		}
		return "", nil
	}

	s.cimports[hash] = cimportResult{uri: result.URI}
	return result.URI, nil
}

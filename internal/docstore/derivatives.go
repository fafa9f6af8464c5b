package docstore

// Scope returns h's scope, building it via the configured ScopeBuilder
// collaborator if not already cached. Returns nil, nil if no ScopeBuilder
// is configured.
func (s *Store) Scope(h *Handle) (Scope, error) {
	if s.collab.ScopeBuilder == nil {
		return nil, nil
	}
	return h.GetScope(s.collab.ScopeBuilder.BuildScope)
}

// IRSource returns h's source-dialect IR, building it via the configured
// IRSourceGen collaborator if not already cached.
func (s *Store) IRSource(h *Handle) (IR, error) {
	if s.collab.IRSourceGen == nil {
		return nil, nil
	}
	return h.GetIRSource(s.collab.IRSourceGen.GenerateIR)
}

// IRData returns h's data-literal-dialect IR, building it via the
// configured IRDataGen collaborator if not already cached.
func (s *Store) IRData(h *Handle) (IR, error) {
	if s.collab.IRDataGen == nil {
		return nil, nil
	}
	return h.GetIRData(s.collab.IRDataGen.GenerateIR)
}

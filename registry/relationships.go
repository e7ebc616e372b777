package registry

// Relationship graph views. Forward relationships are copied from each type's
// declared definitions; inverse relationships are recomputed on demand by
// scanning every registered type, since registration is a startup-time,
// append-mostly operation and incremental maintenance would buy nothing.

// GetInverseRelationships returns every forward relationship, declared on any
// registered type, whose target equals the given type. The result is a
// derived view; it is never stored on the target type itself.
func (r *Registry) GetInverseRelationships(name string) []RelationshipMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target := normalizeName(name)
	var inverse []RelationshipMetadata
	for _, key := range r.order {
		for _, rel := range r.types[key].Relationships {
			if normalizeName(rel.TargetType) == target {
				inverse = append(inverse, rel)
			}
		}
	}
	return inverse
}

// GetRelationshipMap returns the forward relationships of every registered
// type, keyed by display name, in a copy safe for callers to mutate.
func (r *Registry) GetRelationshipMap() map[string][]RelationshipMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]RelationshipMetadata, len(r.types))
	for _, key := range r.order {
		rt := r.types[key]
		rels := make([]RelationshipMetadata, len(rt.Relationships))
		copy(rels, rt.Relationships)
		result[rt.Name] = rels
	}
	return result
}

// CountDependents returns how many forward relationships point at the given
// type across the whole registry.
func (r *Registry) CountDependents(name string) int {
	return len(r.GetInverseRelationships(name))
}

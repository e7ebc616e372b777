package registry

import (
	"strings"
	"sync"

	strutil "github.com/metaline-dev/metaline/internal/util/strings"
)

// Registry is the in-memory metadata store. Lookups are case-insensitive:
// keys are normalized to lower case at both insertion and lookup time, while
// the original-case name is retained as the display value.
//
// The registry is an explicit value passed to its consumers, not an ambient
// global; construct one with New and hand it to whatever needs it.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*RegisteredType // normalized name -> type
	order []string                   // normalized names in registration order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		types: make(map[string]*RegisteredType),
	}
}

// normalizeName lower-cases a type name for map keying.
func normalizeName(name string) string {
	return strings.ToLower(name)
}

// Register records field, relationship, and configuration metadata for a
// type. Registering a name that already exists replaces the prior
// registration wholesale; callers re-registering must supply the full
// definition. Returns a ConfigurationError when the definition is malformed.
func (r *Registry) Register(def TypeDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return &ConfigurationError{Reason: "type name must not be empty"}
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return &ConfigurationError{TypeName: def.Name, Reason: "field name must not be empty"}
		}
		if seen[f.Name] {
			return &ConfigurationError{TypeName: def.Name, Reason: "duplicate field " + f.Name}
		}
		seen[f.Name] = true
		if f.Type == TypeRelationship && f.Target == "" {
			return &ConfigurationError{TypeName: def.Name, Reason: "relationship field " + f.Name + " has no target type"}
		}
		if f.Type != TypeRelationship && f.Target != "" {
			return &ConfigurationError{TypeName: def.Name, Reason: "field " + f.Name + " declares a target but is not a relationship"}
		}
	}

	// Forward relationships: foreign keys come from relationship fields,
	// everything else from the explicit declarations.
	rels := make([]RelationshipMetadata, 0, len(def.Fields)+len(def.Relationships))
	for _, f := range def.Fields {
		if f.Type != TypeRelationship {
			continue
		}
		rels = append(rels, RelationshipMetadata{
			SourceType: def.Name,
			FieldName:  f.Name,
			TargetType: f.Target,
			Kind:       RelationForeignKey.String(),
			OnDelete:   f.OnDelete.String(),
		})
	}
	for _, rel := range def.Relationships {
		if rel.FieldName == "" || rel.TargetType == "" {
			return &ConfigurationError{TypeName: def.Name, Reason: "declared relationship needs a field name and a target type"}
		}
		if rel.Kind == RelationForeignKey.String() {
			return &ConfigurationError{TypeName: def.Name, Reason: "foreign keys are declared as relationship fields, not standalone relationships"}
		}
		rel.SourceType = def.Name
		if rel.Kind == "" {
			rel.Kind = RelationOneToMany.String()
		}
		rels = append(rels, rel)
	}

	fields := make([]FieldDefinition, len(def.Fields))
	copy(fields, def.Fields)

	rt := &RegisteredType{
		Name:          def.Name,
		Fields:        fields,
		Relationships: rels,
		Config:        def.Config,
	}

	key := normalizeName(def.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[key]; !exists {
		r.order = append(r.order, key)
	}
	r.types[key] = rt
	return nil
}

// GetType returns the registered type record for a name. Lookups never fail
// hard: absence is reported through the boolean.
func (r *Registry) GetType(name string) (*RegisteredType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[normalizeName(name)]
	return rt, ok
}

// GetFields returns a copy of the field definitions for a type, or nil when
// the name is unknown.
func (r *Registry) GetFields(name string) []FieldDefinition {
	rt, ok := r.GetType(name)
	if !ok {
		return nil
	}
	fields := make([]FieldDefinition, len(rt.Fields))
	copy(fields, rt.Fields)
	return fields
}

// GetRelationships returns a copy of the forward relationships declared on a
// type, or nil when the name is unknown.
func (r *Registry) GetRelationships(name string) []RelationshipMetadata {
	rt, ok := r.GetType(name)
	if !ok {
		return nil
	}
	rels := make([]RelationshipMetadata, len(rt.Relationships))
	copy(rels, rt.Relationships)
	return rels
}

// GetTableName returns the backing table name for a type: the configured
// override when present, otherwise the pluralized snake_case of the display
// name. Returns "" for unknown types.
func (r *Registry) GetTableName(name string) string {
	rt, ok := r.GetType(name)
	if !ok {
		return ""
	}
	if rt.Config.TableName != "" {
		return rt.Config.TableName
	}
	return strutil.TableName(rt.Name)
}

// Names returns the display names of all registered types in registration
// order. Replacing a registration keeps its original position.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, key := range r.order {
		names = append(names, r.types[key].Name)
	}
	return names
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Clear wipes all registry state. Reserved for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = make(map[string]*RegisteredType)
	r.order = nil
}

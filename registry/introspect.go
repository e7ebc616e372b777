package registry

// Introspection views. These are JSON-ready snapshots of registry state for
// documentation tooling and external inspection; they never feed back into
// registration.

// ObjectMetadata captures complete information about a single registered type.
type ObjectMetadata struct {
	Name          string                 `json:"name"`
	TableName     string                 `json:"table_name"`
	Fields        []FieldMetadata        `json:"fields"`
	Relationships []RelationshipMetadata `json:"relationships"`
	Inverse       []RelationshipMetadata `json:"inverse_relationships,omitempty"`
	Timestamps    bool                   `json:"timestamps,omitempty"`
}

// FieldMetadata captures metadata about a single field of a registered type.
type FieldMetadata struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Required   bool        `json:"required"`
	Unique     bool        `json:"unique,omitempty"`
	PrimaryKey bool        `json:"primary_key,omitempty"`
	Indexed    bool        `json:"indexed,omitempty"`
	Default    interface{} `json:"default,omitempty"`
	Min        *float64    `json:"min,omitempty"`
	Max        *float64    `json:"max,omitempty"`
	Length     *int        `json:"length,omitempty"`
	Pattern    string      `json:"pattern,omitempty"`
	Target     string      `json:"target,omitempty"`
	OnDelete   string      `json:"on_delete,omitempty"`
}

// GetObjectMetadata returns the introspection view of one registered type.
func (r *Registry) GetObjectMetadata(name string) (*ObjectMetadata, bool) {
	rt, ok := r.GetType(name)
	if !ok {
		return nil, false
	}
	meta := r.objectMetadata(rt)
	return &meta, true
}

// GetAllObjectMetadata returns the introspection view of every registered
// type in registration order.
func (r *Registry) GetAllObjectMetadata() []ObjectMetadata {
	names := r.Names()
	result := make([]ObjectMetadata, 0, len(names))
	for _, name := range names {
		rt, ok := r.GetType(name)
		if !ok {
			continue
		}
		result = append(result, r.objectMetadata(rt))
	}
	return result
}

func (r *Registry) objectMetadata(rt *RegisteredType) ObjectMetadata {
	fields := make([]FieldMetadata, 0, len(rt.Fields))
	for _, f := range rt.Fields {
		fm := FieldMetadata{
			Name:       f.Name,
			Type:       f.Type.String(),
			Required:   f.Required,
			Unique:     f.Unique,
			PrimaryKey: f.PrimaryKey,
			Indexed:    f.Indexed,
			Default:    f.Default,
			Min:        f.Min,
			Max:        f.Max,
			Length:     f.Length,
			Pattern:    f.Pattern,
			Target:     f.Target,
		}
		if f.Type == TypeRelationship {
			fm.OnDelete = f.OnDelete.String()
		}
		fields = append(fields, fm)
	}

	rels := make([]RelationshipMetadata, len(rt.Relationships))
	copy(rels, rt.Relationships)

	return ObjectMetadata{
		Name:          rt.Name,
		TableName:     r.GetTableName(rt.Name),
		Fields:        fields,
		Relationships: rels,
		Inverse:       r.GetInverseRelationships(rt.Name),
		Timestamps:    rt.Config.Timestamps,
	}
}

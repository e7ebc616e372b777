// Package registry stores the structural definition of every persistent type
// in an application: its fields, its relationships to other types, and its
// generation configuration. The registry is the source of truth the schema
// compiler, the initialization coordinator, and the collection cache all
// read from.
package registry

import (
	"fmt"
	"sync"
)

// FieldType represents the logical type of a field.
type FieldType int

const (
	TypeText FieldType = iota
	TypeInteger
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeRelationship
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "text", "string":
		return TypeText, nil
	case "integer", "int":
		return TypeInteger, nil
	case "decimal", "float":
		return TypeDecimal, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date", "timestamp":
		return TypeDate, nil
	case "relationship":
		return TypeRelationship, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// RelationshipKind represents the kind of relationship between two types.
type RelationshipKind int

const (
	RelationForeignKey RelationshipKind = iota
	RelationOneToMany
	RelationManyToMany
)

// String returns the string representation of the relationship kind
func (k RelationshipKind) String() string {
	switch k {
	case RelationForeignKey:
		return "foreign_key"
	case RelationOneToMany:
		return "one_to_many"
	case RelationManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// ParseRelationshipKind converts a string to a RelationshipKind
func ParseRelationshipKind(s string) (RelationshipKind, error) {
	switch s {
	case "foreign_key", "belongs_to":
		return RelationForeignKey, nil
	case "one_to_many", "has_many":
		return RelationOneToMany, nil
	case "many_to_many":
		return RelationManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship kind: %s", s)
	}
}

// DeletePolicy represents the ON DELETE action for a foreign key.
type DeletePolicy int

const (
	DeleteRestrict DeletePolicy = iota
	DeleteCascade
	DeleteSetNull
)

// String returns the string representation of the delete policy
func (p DeletePolicy) String() string {
	switch p {
	case DeleteRestrict:
		return "restrict"
	case DeleteCascade:
		return "cascade"
	case DeleteSetNull:
		return "set_null"
	default:
		return "unknown"
	}
}

// ParseDeletePolicy converts a string to a DeletePolicy
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch s {
	case "", "restrict":
		return DeleteRestrict, nil
	case "cascade":
		return DeleteCascade, nil
	case "set_null":
		return DeleteSetNull, nil
	default:
		return 0, fmt.Errorf("unknown delete policy: %s", s)
	}
}

// FieldDefinition describes one field of a registered type, including its
// logical type and column-level constraints. Relationship fields carry the
// target type name and a delete policy.
type FieldDefinition struct {
	Name       string
	Type       FieldType
	Required   bool
	Unique     bool
	PrimaryKey bool
	Indexed    bool
	Default    interface{}
	Min        *float64
	Max        *float64
	Length     *int
	Pattern    string

	// Relationship fields only
	Target   string
	OnDelete DeletePolicy
}

// RelationshipMetadata describes one edge between two registered types.
// Forward relationships are declared on the source type; inverse views are
// derived by scanning every type's forward relationships.
type RelationshipMetadata struct {
	SourceType string `json:"source_type"`
	FieldName  string `json:"field_name"`
	TargetType string `json:"target_type"`
	Kind       string `json:"kind"`
	OnDelete   string `json:"on_delete,omitempty"`
}

// TypeConfig carries generation and lifecycle options for a registered type.
type TypeConfig struct {
	// TableName overrides the default pluralized snake_case table name.
	// Explicit overrides survive identifier renames in build tooling.
	TableName string

	// Timestamps adds created_at/updated_at columns to the generated schema.
	Timestamps bool

	// Triggers are raw CREATE TRIGGER statements applied after table creation.
	Triggers []string
}

// TypeDefinition is the registration input: the full description of a type.
// Re-registering a name replaces the previous definition wholesale.
type TypeDefinition struct {
	Name   string
	Fields []FieldDefinition

	// Relationships declares non-foreign-key edges (one_to_many,
	// many_to_many) explicitly. Foreign keys are derived from relationship
	// fields and must not be repeated here.
	Relationships []RelationshipMetadata

	Config TypeConfig
}

// RegisteredType is the immutable record the registry keeps per type. The
// lazily compiled schema definition is the only mutable part.
type RegisteredType struct {
	Name          string
	Fields        []FieldDefinition
	Relationships []RelationshipMetadata
	Config        TypeConfig

	schemaMu     sync.Mutex
	cachedSchema interface{}
}

// Field returns the field definition with the given name.
func (t *RegisteredType) Field(name string) (FieldDefinition, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// PrimaryKeyField returns the declared primary key field, if any.
func (t *RegisteredType) PrimaryKeyField() (FieldDefinition, bool) {
	for _, f := range t.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// CachedSchema returns the memoized schema definition, or nil if the schema
// compiler has not run for this type yet. The value is owned by the ddl
// package; the registry only holds it.
func (t *RegisteredType) CachedSchema() interface{} {
	t.schemaMu.Lock()
	defer t.schemaMu.Unlock()
	return t.cachedSchema
}

// CacheSchema stores the compiled schema definition on the type. The first
// stored value wins so repeated compilations observe an identical result.
func (t *RegisteredType) CacheSchema(schema interface{}) interface{} {
	t.schemaMu.Lock()
	defer t.schemaMu.Unlock()
	if t.cachedSchema == nil {
		t.cachedSchema = schema
	}
	return t.cachedSchema
}

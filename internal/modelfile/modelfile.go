// Package modelfile loads type definitions from a YAML model file so the CLI
// can populate a registry without application code.
package modelfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/metaline-dev/metaline/registry"
)

// File is the top-level shape of a model file.
type File struct {
	Types []Type `yaml:"types"`
}

// Type is one type declaration.
type Type struct {
	Name          string         `yaml:"name"`
	Table         string         `yaml:"table"`
	Timestamps    bool           `yaml:"timestamps"`
	Triggers      []string       `yaml:"triggers"`
	Fields        []Field        `yaml:"fields"`
	Relationships []Relationship `yaml:"relationships"`
}

// Field is one field declaration.
type Field struct {
	Name       string      `yaml:"name"`
	Type       string      `yaml:"type"`
	Required   bool        `yaml:"required"`
	Unique     bool        `yaml:"unique"`
	PrimaryKey bool        `yaml:"primary_key"`
	Indexed    bool        `yaml:"indexed"`
	Default    interface{} `yaml:"default"`
	Min        *float64    `yaml:"min"`
	Max        *float64    `yaml:"max"`
	Length     *int        `yaml:"length"`
	Pattern    string      `yaml:"pattern"`
	Target     string      `yaml:"target"`
	OnDelete   string      `yaml:"on_delete"`
}

// Relationship is one explicit non-foreign-key relationship declaration.
type Relationship struct {
	Field  string `yaml:"field"`
	Target string `yaml:"target"`
	Kind   string `yaml:"kind"`
}

// Load reads a model file and converts it to registry type definitions.
func Load(path string) ([]registry.TypeDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return Parse(data)
}

// Parse converts raw YAML to registry type definitions.
func Parse(data []byte) ([]registry.TypeDefinition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}

	defs := make([]registry.TypeDefinition, 0, len(file.Types))
	for _, t := range file.Types {
		def, err := convertType(t)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func convertType(t Type) (registry.TypeDefinition, error) {
	def := registry.TypeDefinition{
		Name: t.Name,
		Config: registry.TypeConfig{
			TableName:  t.Table,
			Timestamps: t.Timestamps,
			Triggers:   t.Triggers,
		},
	}

	for _, f := range t.Fields {
		fieldType, err := registry.ParseFieldType(f.Type)
		if err != nil {
			return def, fmt.Errorf("type %s, field %s: %w", t.Name, f.Name, err)
		}
		onDelete, err := registry.ParseDeletePolicy(f.OnDelete)
		if err != nil {
			return def, fmt.Errorf("type %s, field %s: %w", t.Name, f.Name, err)
		}
		def.Fields = append(def.Fields, registry.FieldDefinition{
			Name:       f.Name,
			Type:       fieldType,
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
			OnDelete:   onDelete,
		})
	}

	for _, rel := range t.Relationships {
		if rel.Kind == "" {
			rel.Kind = registry.RelationOneToMany.String()
		}
		kind, err := registry.ParseRelationshipKind(rel.Kind)
		if err != nil {
			return def, fmt.Errorf("type %s, relationship %s: %w", t.Name, rel.Field, err)
		}
		def.Relationships = append(def.Relationships, registry.RelationshipMetadata{
			SourceType: t.Name,
			FieldName:  rel.Field,
			TargetType: rel.Target,
			Kind:       kind.String(),
		})
	}

	return def, nil
}

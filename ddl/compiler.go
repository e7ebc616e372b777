// Package ddl compiles registered type metadata into schema definitions and
// the DDL text that realizes them. Compilation is a pure function of the
// type's fields, relationships, and configuration: the same inputs always
// yield byte-identical DDL, and results are memoized on the registered type
// so repeated calls are free and identical.
package ddl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	strutil "github.com/metaline-dev/metaline/internal/util/strings"
	"github.com/metaline-dev/metaline/registry"
)

// ColumnDefinition is one compiled column.
type ColumnDefinition struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	Default    string `json:"default,omitempty"`
	Check      string `json:"check,omitempty"`
}

// ForeignKey is one compiled FOREIGN KEY clause.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
	OnDelete         string `json:"on_delete"`
}

// SchemaDefinition is the compiled schema for one registered type.
type SchemaDefinition struct {
	TypeName    string                      `json:"type_name"`
	TableName   string                      `json:"table_name"`
	Columns     map[string]ColumnDefinition `json:"columns"`
	ColumnOrder []string                    `json:"column_order"`
	Indexes     []string                    `json:"indexes,omitempty"`
	Triggers    []string                    `json:"triggers,omitempty"`
	ForeignKeys []ForeignKey                `json:"foreign_keys,omitempty"`

	// Dependencies lists the table names this schema's foreign keys point at.
	// The initialization coordinator orders manifests by these.
	Dependencies []string `json:"dependencies,omitempty"`

	// Version is a content hash of the generated DDL; unchanged definitions
	// keep their version across compilations.
	Version string `json:"version"`

	// CreateSQL is the full CREATE TABLE statement.
	CreateSQL string `json:"create_sql"`
}

// Compiler turns registered types into schema definitions.
type Compiler struct {
	reg        *registry.Registry
	typeMapper *TypeMapper
	indexGen   *IndexGenerator
}

// NewCompiler creates a compiler bound to a registry.
func NewCompiler(reg *registry.Registry) *Compiler {
	return &Compiler{
		reg:        reg,
		typeMapper: NewTypeMapper(),
		indexGen:   NewIndexGenerator(),
	}
}

// GenerateTableName returns the table name for a registered type, applying
// the registry's naming rule (configured override, else pluralized
// snake_case).
func (c *Compiler) GenerateTableName(name string) string {
	return c.reg.GetTableName(name)
}

// GenerateSchema compiles the schema definition for one registered type.
// The result is memoized on the type: every call after the first returns the
// same definition. Returns a NotRegisteredError for unknown names and a
// ConfigurationError when two fields compile to the same column name.
func (c *Compiler) GenerateSchema(name string) (*SchemaDefinition, error) {
	rt, ok := c.reg.GetType(name)
	if !ok {
		return nil, &registry.NotRegisteredError{TypeName: name}
	}

	if cached := rt.CachedSchema(); cached != nil {
		if schema, ok := cached.(*SchemaDefinition); ok {
			return schema, nil
		}
	}

	schema, err := c.compile(rt)
	if err != nil {
		return nil, err
	}

	// CacheSchema keeps the first stored value, so concurrent compilations
	// converge on a single definition.
	return rt.CacheSchema(schema).(*SchemaDefinition), nil
}

// GenerateManifest compiles every named type, or every registered type when
// no names are given. The result maps type names to definitions and is the
// input shape the initialization coordinator consumes.
func (c *Compiler) GenerateManifest(names ...string) (map[string]*SchemaDefinition, error) {
	if len(names) == 0 {
		names = c.reg.Names()
	}
	manifest := make(map[string]*SchemaDefinition, len(names))
	for _, name := range names {
		schema, err := c.GenerateSchema(name)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", name, err)
		}
		manifest[schema.TypeName] = schema
	}
	return manifest, nil
}

func (c *Compiler) compile(rt *registry.RegisteredType) (*SchemaDefinition, error) {
	tableName := c.reg.GetTableName(rt.Name)

	schema := &SchemaDefinition{
		TypeName:  rt.Name,
		TableName: tableName,
		Columns:   make(map[string]ColumnDefinition),
	}

	addColumn := func(col ColumnDefinition) error {
		if _, exists := schema.Columns[col.Name]; exists {
			return &registry.ConfigurationError{
				TypeName: rt.Name,
				Reason:   "column " + col.Name + " is defined more than once",
			}
		}
		schema.Columns[col.Name] = col
		schema.ColumnOrder = append(schema.ColumnOrder, col.Name)
		return nil
	}

	// Types without a declared primary key get an implicit TEXT id, matching
	// the collection runtime's generated identifiers.
	if _, ok := rt.PrimaryKeyField(); !ok {
		if err := addColumn(ColumnDefinition{Name: "id", Type: "TEXT", PrimaryKey: true}); err != nil {
			return nil, err
		}
	}

	seenDep := make(map[string]bool)
	for _, field := range rt.Fields {
		col, err := c.compileField(rt, field)
		if err != nil {
			return nil, err
		}

		if field.Type == registry.TypeRelationship {
			if target, ok := c.reg.GetType(field.Target); ok {
				refColumn, refType, err := c.targetKey(target)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field.Name, err)
				}
				// The FK column mirrors the referenced key's type.
				col.Type = refType
				if err := addColumn(col); err != nil {
					return nil, err
				}
				targetTable := c.reg.GetTableName(target.Name)
				schema.ForeignKeys = append(schema.ForeignKeys, ForeignKey{
					Column:           col.Name,
					ReferencesTable:  targetTable,
					ReferencesColumn: refColumn,
					OnDelete:         c.typeMapper.MapOnDelete(field.OnDelete.String()),
				})
				if !seenDep[targetTable] && targetTable != tableName {
					seenDep[targetTable] = true
					schema.Dependencies = append(schema.Dependencies, targetTable)
				}
				continue
			}
			// External targets become plain columns: an enforced constraint
			// against a table outside the registry cannot be ordered.
		}
		if err := addColumn(col); err != nil {
			return nil, err
		}
	}

	if rt.Config.Timestamps {
		for _, col := range []ColumnDefinition{
			{Name: "created_at", Type: "TIMESTAMP", NotNull: true, Default: "CURRENT_TIMESTAMP"},
			{Name: "updated_at", Type: "TIMESTAMP"},
		} {
			if err := addColumn(col); err != nil {
				return nil, err
			}
		}
	}

	schema.Indexes = c.indexGen.GenerateIndexes(tableName, rt.Fields)
	schema.Triggers = append(schema.Triggers, rt.Config.Triggers...)
	schema.CreateSQL = c.renderCreateTable(schema)
	schema.Version = schemaVersion(schema)

	return schema, nil
}

// targetKey resolves the column a foreign key points at on the target type:
// the declared primary key when present, else the implicit id.
func (c *Compiler) targetKey(target *registry.RegisteredType) (string, string, error) {
	pk, ok := target.PrimaryKeyField()
	if !ok {
		return "id", "TEXT", nil
	}
	columnType, err := c.typeMapper.MapType(pk)
	if err != nil {
		return "", "", fmt.Errorf("key of target %s: %w", target.Name, err)
	}
	return strutil.ToSnakeCase(pk.Name), columnType, nil
}

func (c *Compiler) compileField(rt *registry.RegisteredType, field registry.FieldDefinition) (ColumnDefinition, error) {
	columnName := strutil.ToSnakeCase(field.Name)
	if field.Type == registry.TypeRelationship && !strings.HasSuffix(columnName, "_id") {
		columnName += "_id"
	}

	columnType, err := c.typeMapper.MapType(field)
	if err != nil {
		return ColumnDefinition{}, fmt.Errorf("field %s: %w", field.Name, err)
	}

	defaultValue, err := c.typeMapper.MapDefault(field)
	if err != nil {
		return ColumnDefinition{}, fmt.Errorf("field %s: %w", field.Name, err)
	}

	return ColumnDefinition{
		Name:       columnName,
		Type:       columnType,
		NotNull:    field.Required && !field.PrimaryKey,
		PrimaryKey: field.PrimaryKey,
		Default:    defaultValue,
		Check:      c.typeMapper.MapCheck(columnName, field),
	}, nil
}

// renderCreateTable renders the CREATE TABLE statement. Column order follows
// declaration order so output is reproducible.
func (c *Compiler) renderCreateTable(schema *SchemaDefinition) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(schema.TableName)))

	lines := make([]string, 0, len(schema.ColumnOrder)+len(schema.ForeignKeys))
	for _, name := range schema.ColumnOrder {
		lines = append(lines, "  "+renderColumn(schema.Columns[name]))
	}
	for _, fk := range schema.ForeignKeys {
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			QuoteIdentifier(fk.Column),
			QuoteIdentifier(fk.ReferencesTable),
			QuoteIdentifier(fk.ReferencesColumn),
			fk.OnDelete))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);")
	return b.String()
}

func renderColumn(col ColumnDefinition) string {
	parts := []string{QuoteIdentifier(col.Name), col.Type}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != "" {
		parts = append(parts, "DEFAULT "+col.Default)
	}
	if col.Check != "" {
		parts = append(parts, "CHECK ("+col.Check+")")
	}
	return strings.Join(parts, " ")
}

// RenderAddColumn renders the ALTER TABLE statement the coordinator uses for
// additive updates. Primary key attributes are dropped: they cannot be added
// to an existing table through this path.
func RenderAddColumn(table string, col ColumnDefinition) string {
	add := col
	add.PrimaryKey = false
	add.NotNull = false // additions to populated tables must accept existing rows
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", QuoteIdentifier(table), renderColumn(add))
}

// schemaVersion hashes the generated DDL so unchanged definitions keep a
// stable version across processes.
func schemaVersion(schema *SchemaDefinition) string {
	h := sha256.New()
	h.Write([]byte(schema.CreateSQL))
	for _, idx := range schema.Indexes {
		h.Write([]byte("\n"))
		h.Write([]byte(idx))
	}
	for _, trg := range schema.Triggers {
		h.Write([]byte("\n"))
		h.Write([]byte(trg))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

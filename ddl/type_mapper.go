package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/metaline-dev/metaline/registry"
)

// TypeMapper maps logical field types to column types from the small SQL
// subset every supported engine understands.
type TypeMapper struct{}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// MapType converts a field definition to a column type.
func (tm *TypeMapper) MapType(field registry.FieldDefinition) (string, error) {
	switch field.Type {
	case registry.TypeText:
		if field.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *field.Length), nil
		}
		return "TEXT", nil
	case registry.TypeInteger:
		return "INTEGER", nil
	case registry.TypeDecimal:
		return "NUMERIC", nil
	case registry.TypeBoolean:
		return "BOOLEAN", nil
	case registry.TypeDate:
		return "TIMESTAMP", nil
	case registry.TypeRelationship:
		// Default for external targets; the compiler substitutes the
		// registered target's key type.
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unmappable field type: %s", field.Type)
	}
}

// MapDefault renders a field's default value as a SQL literal, or "" when the
// field has no default.
func (tm *TypeMapper) MapDefault(field registry.FieldDefinition) (string, error) {
	if field.Default == nil {
		return "", nil
	}
	switch v := field.Default.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported default value %v for field %s", field.Default, field.Name)
	}
}

// MapCheck builds the CHECK condition for a field's min/max constraints.
// Pattern constraints stay metadata-only: regex operators are not part of the
// portable DDL subset.
func (tm *TypeMapper) MapCheck(column string, field registry.FieldDefinition) string {
	var conditions []string
	quoted := QuoteIdentifier(column)
	if field.Min != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= %s", quoted, formatNumber(*field.Min)))
	}
	if field.Max != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= %s", quoted, formatNumber(*field.Max)))
	}
	return strings.Join(conditions, " AND ")
}

// MapOnDelete maps a delete policy to its FOREIGN KEY clause action,
// defaulting to RESTRICT.
func (tm *TypeMapper) MapOnDelete(policy string) string {
	switch policy {
	case registry.DeleteCascade.String():
		return "CASCADE"
	case registry.DeleteSetNull.String():
		return "SET NULL"
	default:
		return "RESTRICT"
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

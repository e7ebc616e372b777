package ddl

import (
	"fmt"
	"sort"
	"strings"

	strutil "github.com/metaline-dev/metaline/internal/util/strings"
	"github.com/metaline-dev/metaline/registry"
)

// IndexGenerator generates CREATE INDEX statements
type IndexGenerator struct{}

// NewIndexGenerator creates a new index generator
func NewIndexGenerator() *IndexGenerator {
	return &IndexGenerator{}
}

// GenerateIndexes generates CREATE INDEX statements for all fields marked
// indexed or unique. Unique fields get a unique index rather than an inline
// column constraint, so the statement can be applied separately from table
// creation. Output is sorted for deterministic DDL.
func (g *IndexGenerator) GenerateIndexes(tableName string, fields []registry.FieldDefinition) []string {
	var indexes []string

	for _, field := range fields {
		columnName := strutil.ToSnakeCase(field.Name)
		if field.Type == registry.TypeRelationship && !strings.HasSuffix(columnName, "_id") {
			columnName += "_id"
		}

		if field.Indexed {
			indexName := fmt.Sprintf("idx_%s_%s", tableName, columnName)
			indexes = append(indexes,
				fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
					QuoteIdentifier(indexName), QuoteIdentifier(tableName), QuoteIdentifier(columnName)))
		}

		if field.Unique {
			indexName := fmt.Sprintf("idx_%s_%s_unique", tableName, columnName)
			indexes = append(indexes,
				fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s);",
					QuoteIdentifier(indexName), QuoteIdentifier(tableName), QuoteIdentifier(columnName)))
		}
	}

	sort.Strings(indexes)
	return indexes
}

// Package collection provides the runtime objects that query and persist
// instances of registered types, and the cache that guarantees one collection
// instance per (type, persistence configuration) key.
package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/metaline-dev/metaline/db"
	"github.com/metaline-dev/metaline/ddl"
)

// Collection queries, creates, and persists instances of one registered type
// against a specific backing store. Instances come from Cache.GetCollection,
// which runs the one-time schema setup before handing them out.
type Collection struct {
	typeName string
	schema   *ddl.SchemaDefinition
	database db.Database
}

// Name returns the display name of the collection's type.
func (c *Collection) Name() string {
	return c.typeName
}

// TableName returns the backing table name.
func (c *Collection) TableName() string {
	return c.schema.TableName
}

// Schema returns the compiled schema definition backing this collection.
func (c *Collection) Schema() *ddl.SchemaDefinition {
	return c.schema
}

// primaryKeyColumn returns the schema's primary key column name.
func (c *Collection) primaryKeyColumn() string {
	for _, name := range c.schema.ColumnOrder {
		if c.schema.Columns[name].PrimaryKey {
			return name
		}
	}
	return "id"
}

// Insert persists a record keyed by column name. A missing primary key is
// filled with a generated UUID. Returns the stored record including the key.
func (c *Collection) Insert(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error) {
	stored := make(map[string]interface{}, len(record)+1)
	for k, v := range record {
		stored[k] = v
	}

	pk := c.primaryKeyColumn()
	if _, ok := stored[pk]; !ok {
		stored[pk] = uuid.NewString()
	}

	var columns []string
	var placeholders []string
	var args []interface{}
	for _, name := range c.schema.ColumnOrder {
		value, ok := stored[name]
		if !ok {
			continue
		}
		columns = append(columns, ddl.QuoteIdentifier(name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("record for %s has no known columns", c.typeName)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteIdentifier(c.schema.TableName),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	if err := c.database.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", c.schema.TableName, err)
	}
	return stored, nil
}

// Get returns the record with the given primary key, or nil when absent.
func (c *Collection) Get(ctx context.Context, id interface{}) (map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?",
		ddl.QuoteIdentifier(c.schema.TableName),
		ddl.QuoteIdentifier(c.primaryKeyColumn()))

	rows, err := c.database.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.schema.TableName, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// All returns every record of the collection.
func (c *Collection) All(ctx context.Context) ([]map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT * FROM %s", ddl.QuoteIdentifier(c.schema.TableName))
	rows, err := c.database.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c.schema.TableName, err)
	}
	return rows, nil
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", ddl.QuoteIdentifier(c.schema.TableName))
	rows, err := c.database.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.schema.TableName, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch n := rows[0]["n"].(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		var v int64
		_, err := fmt.Sscan(n, &v)
		return v, err
	default:
		return 0, fmt.Errorf("unexpected count type %T", rows[0]["n"])
	}
}

// DeleteByID removes the record with the given primary key.
func (c *Collection) DeleteByID(ctx context.Context, id interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		ddl.QuoteIdentifier(c.schema.TableName),
		ddl.QuoteIdentifier(c.primaryKeyColumn()))
	if err := c.database.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("deleting from %s: %w", c.schema.TableName, err)
	}
	return nil
}

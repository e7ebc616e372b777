// Package db defines the database collaborator contract the schema
// initialization coordinator and collections run against. The contract is a
// small, engine-neutral subset: any backend that can report table existence,
// execute a statement, run a query, and list a table's columns can serve,
// whether it is a relational engine or an in-memory store.
package db

import "context"

// Database is the injected backing-store handle. Statements use `?`
// placeholders; adapters rebind them to their engine's style.
type Database interface {
	// TableExists reports whether a table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// Exec executes a statement that returns no rows (DDL, INSERT, DELETE).
	Exec(ctx context.Context, query string, args ...interface{}) error

	// Query executes a query and returns every row as a column-keyed map.
	Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)

	// TableColumns returns the column names of an existing table.
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// RawApplier is optionally implemented by backends that accept a legacy
// single-string schema: the whole DDL text applied in one call.
type RawApplier interface {
	RawApply(ctx context.Context, ddl string) error
}

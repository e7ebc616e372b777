package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Drivers registered for OpenSQLite and OpenPostgres.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the engine-specific bits of the SQL adapter: catalog
// queries and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQL adapts a *sql.DB to the Database contract.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL wraps an existing *sql.DB.
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// OpenSQLite opens a SQLite database at the given path.
func OpenSQLite(path string) (*SQL, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return NewSQL(conn, DialectSQLite), nil
}

// OpenPostgres opens a PostgreSQL database via the pgx stdlib driver.
func OpenPostgres(url string) (*SQL, error) {
	conn, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	return NewSQL(conn, DialectPostgres), nil
}

// DB exposes the underlying handle for callers that need transactions.
func (s *SQL) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *SQL) Close() error {
	return s.db.Close()
}

// rebind rewrites `?` placeholders to `$N` for engines that need it. Queries
// here never embed literal question marks, so a plain scan suffices.
func (s *SQL) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TableExists reports whether a table exists, via the engine's catalog.
func (s *SQL) TableExists(ctx context.Context, table string) (bool, error) {
	var query string
	switch s.dialect {
	case DialectPostgres:
		query = `SELECT 1 FROM information_schema.tables WHERE table_name = $1 AND table_schema = current_schema()`
	default:
		query = `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	defer rows.Close()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return exists, nil
}

// Exec executes a statement that returns no rows.
func (s *SQL) Exec(ctx context.Context, query string, args ...interface{}) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

// Query executes a query and returns the rows as column-keyed maps.
func (s *SQL) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// Normalize driver byte slices to strings for map consumers.
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return result, nil
}

// TableColumns lists the column names of an existing table.
func (s *SQL) TableColumns(ctx context.Context, table string) ([]string, error) {
	var query string
	var args []interface{}
	var nameColumn string

	switch s.dialect {
	case DialectPostgres:
		query = `SELECT column_name FROM information_schema.columns WHERE table_name = $1 AND table_schema = current_schema() ORDER BY ordinal_position`
		args = []interface{}{table}
		nameColumn = "column_name"
	default:
		// PRAGMA does not accept bound parameters; the table name comes from
		// compiled schema definitions, not user input.
		query = fmt.Sprintf("PRAGMA table_info(%q)", table)
		nameColumn = "name"
	}

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}

	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row[nameColumn].(string); ok {
			columns = append(columns, name)
		}
	}
	return columns, nil
}

// RawApply executes a legacy single-string schema as one statement batch.
func (s *SQL) RawApply(ctx context.Context, ddl string) error {
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("applying raw schema: %w", err)
	}
	return nil
}

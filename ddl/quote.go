package ddl

import "github.com/lib/pq"

// QuoteIdentifier quotes a table or column identifier for safe embedding in
// generated DDL.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

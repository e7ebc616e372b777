package dbinit

import (
	"fmt"
	"time"
)

// SchemaInitializationError reports that one schema's DDL failed against the
// live database. Batch application records these instead of aborting.
type SchemaInitializationError struct {
	Schema string
	Table  string
	Err    error
}

func (e *SchemaInitializationError) Error() string {
	return fmt.Sprintf("initializing schema %s (table %s): %v", e.Schema, e.Table, e.Err)
}

func (e *SchemaInitializationError) Unwrap() error {
	return e.Err
}

// Result is the structured outcome of one batch of schema initialization.
type Result struct {
	// Initialized lists schemas whose DDL ran in this batch, in order.
	Initialized []string

	// Skipped lists schemas skipped because they were already initialized at
	// the same version, with zero database calls.
	Skipped []string

	// Errors collects individual schema failures, including schemas skipped
	// because a dependency of theirs failed.
	Errors []*SchemaInitializationError

	// ExecutionTime is the wall-clock duration of the whole batch.
	ExecutionTime time.Duration
}

// OK reports whether the batch completed without any schema failure.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Summary returns a one-line human-readable account of the batch.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d initialized, %d skipped, %d failed in %s",
		len(r.Initialized), len(r.Skipped), len(r.Errors), r.ExecutionTime.Round(time.Millisecond))
}

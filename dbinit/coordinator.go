// Package dbinit applies compiled schema definitions against a live database
// in dependency order. Application is idempotent and coalesced: a schema
// already initialized at the same version is skipped without touching the
// database, and concurrent attempts on the same (schema, table) key share a
// single DDL sequence.
//
// The coalescing map lives in process memory, so the at-most-once guarantee
// holds within one process only. Cross-process callers lean on the
// database's own CREATE IF NOT EXISTS semantics as the secondary net.
package dbinit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/metaline-dev/metaline/db"
	"github.com/metaline-dev/metaline/ddl"
	"github.com/metaline-dev/metaline/registry"
)

// Options configures one batch of schema initialization.
type Options struct {
	// Manifest maps schema identifiers (type names) to compiled definitions.
	Manifest map[string]*ddl.SchemaDefinition

	// Overrides replaces manifest entries per schema before application.
	Overrides map[string]*ddl.SchemaDefinition

	// Scope namespaces the version cache and coalescing keys, so a shared
	// coordinator can serve multiple databases without cross-talk. Callers
	// pass a stable identity for the target store (connection URL or similar).
	Scope string

	// Force drops and recreates existing tables. Destructive; intended for
	// test and development flows only.
	Force bool

	// Debug enables per-step logging.
	Debug bool

	// RawSchema is a legacy single-string schema applied before the manifest
	// when non-empty, preferring the backend's RawApply when available.
	RawSchema string
}

// Coordinator coordinates idempotent schema application. A single Coordinator
// is meant to be shared: its version cache and in-flight map are what provide
// the skip and at-most-once behaviors.
type Coordinator struct {
	logger *zap.Logger

	mu       sync.Mutex
	versions map[string]string // (schema|table) -> initialized version

	group singleflight.Group
}

// NewCoordinator creates a coordinator. A nil logger disables logging.
func NewCoordinator(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		logger:   logger,
		versions: make(map[string]string),
	}
}

// ResetVersions clears the in-process version cache. Reserved for tests.
func (c *Coordinator) ResetVersions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions = make(map[string]string)
}

func lockKey(scope, schema, table string) string {
	return scope + "|" + schema + "|" + table
}

// InitializeSchemas applies a manifest of schema definitions in dependency
// order. Individual schema failures are collected in the result rather than
// aborting the batch; schemas whose dependency failed are recorded as failed
// without attempting creation. A cycle among the manifest's declared
// dependencies is fatal and returns a CircularDependencyError.
func (c *Coordinator) InitializeSchemas(ctx context.Context, database db.Database, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	merged := make(map[string]*ddl.SchemaDefinition, len(opts.Manifest))
	for name, schema := range opts.Manifest {
		merged[name] = schema
	}
	for name, schema := range opts.Overrides {
		merged[name] = schema
	}

	if opts.RawSchema != "" {
		if err := c.applyRaw(ctx, database, opts.RawSchema); err != nil {
			result.Errors = append(result.Errors, &SchemaInitializationError{Schema: "_raw", Err: err})
		}
	}

	order, err := manifestOrder(merged)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool)
	for _, name := range order {
		schema := merged[name]

		if dep := c.failedDependency(schema, merged, failed); dep != "" {
			failed[name] = true
			result.Errors = append(result.Errors, &SchemaInitializationError{
				Schema: name,
				Table:  schema.TableName,
				Err:    fmt.Errorf("dependency %s failed; creation not attempted", dep),
			})
			continue
		}

		key := lockKey(opts.Scope, name, schema.TableName)

		// Fast path: already initialized at this version, zero database calls.
		if !opts.Force && c.initializedAt(key) == schema.Version {
			result.Skipped = append(result.Skipped, name)
			if opts.Debug {
				c.logger.Debug("schema unchanged, skipping",
					zap.String("schema", name), zap.String("version", schema.Version))
			}
			continue
		}

		applied, applyErr := c.applyOnce(ctx, database, key, schema, opts)
		if applyErr != nil {
			failed[name] = true
			result.Errors = append(result.Errors, &SchemaInitializationError{
				Schema: name,
				Table:  schema.TableName,
				Err:    applyErr,
			})
			c.logger.Warn("schema initialization failed",
				zap.String("schema", name), zap.Error(applyErr))
			continue
		}

		if applied {
			result.Initialized = append(result.Initialized, name)
		} else {
			result.Skipped = append(result.Skipped, name)
		}
	}

	result.ExecutionTime = time.Since(start)
	return result, nil
}

// applyOnce coalesces concurrent applications of one schema key: late
// arrivals wait on the in-flight application and share its outcome. The
// returned boolean reports whether the DDL sequence ran during this flight;
// false means the re-check inside the flight found the version already
// current, so callers record a skip, not work they never did. The version
// mark happens inside the flight so arrivals after completion see it.
func (c *Coordinator) applyOnce(ctx context.Context, database db.Database, key string, schema *ddl.SchemaDefinition, opts Options) (bool, error) {
	applied, err, _ := c.group.Do(key, func() (interface{}, error) {
		if !opts.Force && c.initializedAt(key) == schema.Version {
			return false, nil
		}
		if err := c.applySchema(ctx, database, schema, opts.Force, opts.Debug); err != nil {
			return false, err
		}
		c.markInitialized(key, schema.Version)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return applied.(bool), nil
}

// applySchema runs the DDL sequence for one schema: create when the table is
// missing, drop-and-create under force, additive column updates otherwise.
func (c *Coordinator) applySchema(ctx context.Context, database db.Database, schema *ddl.SchemaDefinition, force, debug bool) error {
	exists, err := database.TableExists(ctx, schema.TableName)
	if err != nil {
		return fmt.Errorf("checking table existence: %w", err)
	}

	if exists && force {
		if debug {
			c.logger.Debug("dropping table", zap.String("table", schema.TableName))
		}
		if err := database.Exec(ctx, "DROP TABLE IF EXISTS "+ddl.QuoteIdentifier(schema.TableName)+";"); err != nil {
			return fmt.Errorf("dropping table: %w", err)
		}
		exists = false
	}

	if !exists {
		return c.createSchema(ctx, database, schema, debug)
	}

	// Best-effort additive update: only columns present in the new definition
	// and absent from the live table are added. Type and constraint changes
	// are out of scope; recreate (force) is the supported path for those.
	return c.addMissingColumns(ctx, database, schema, debug)
}

func (c *Coordinator) createSchema(ctx context.Context, database db.Database, schema *ddl.SchemaDefinition, debug bool) error {
	if debug {
		c.logger.Debug("creating table",
			zap.String("table", schema.TableName),
			zap.Int("indexes", len(schema.Indexes)),
			zap.Int("triggers", len(schema.Triggers)))
	}

	if err := database.Exec(ctx, schema.CreateSQL); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	for _, index := range schema.Indexes {
		if err := database.Exec(ctx, index); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	for _, trigger := range schema.Triggers {
		if err := database.Exec(ctx, trigger); err != nil {
			return fmt.Errorf("creating trigger: %w", err)
		}
	}
	return nil
}

func (c *Coordinator) addMissingColumns(ctx context.Context, database db.Database, schema *ddl.SchemaDefinition, debug bool) error {
	live, err := database.TableColumns(ctx, schema.TableName)
	if err != nil {
		return fmt.Errorf("listing live columns: %w", err)
	}

	existing := make(map[string]bool, len(live))
	for _, col := range live {
		existing[col] = true
	}

	for _, name := range schema.ColumnOrder {
		if existing[name] {
			continue
		}
		stmt := ddl.RenderAddColumn(schema.TableName, schema.Columns[name])
		if debug {
			c.logger.Debug("adding column",
				zap.String("table", schema.TableName), zap.String("column", name))
		}
		if err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("adding column %s: %w", name, err)
		}
	}
	return nil
}

func (c *Coordinator) applyRaw(ctx context.Context, database db.Database, rawSchema string) error {
	if applier, ok := database.(db.RawApplier); ok {
		return applier.RawApply(ctx, rawSchema)
	}
	return database.Exec(ctx, rawSchema)
}

func (c *Coordinator) initializedAt(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key]
}

func (c *Coordinator) markInitialized(key, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[key] = version
}

// failedDependency returns the name of a failed schema this one depends on,
// or "" when all its dependencies are intact.
func (c *Coordinator) failedDependency(schema *ddl.SchemaDefinition, manifest map[string]*ddl.SchemaDefinition, failed map[string]bool) string {
	if len(failed) == 0 {
		return ""
	}
	byTable := tableOwners(manifest)
	for _, depTable := range schema.Dependencies {
		owner, ok := byTable[depTable]
		if ok && failed[owner] {
			return owner
		}
	}
	return ""
}

// manifestOrder resolves the application order for a manifest: each schema's
// declared table-name dependencies are mapped back to schema identifiers
// within this manifest, then topologically sorted. Ties break
// lexicographically so the order is reproducible.
func manifestOrder(manifest map[string]*ddl.SchemaDefinition) ([]string, error) {
	names := make([]string, 0, len(manifest))
	for name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)

	byTable := tableOwners(manifest)
	deps := make(map[string][]string, len(manifest))
	for _, name := range names {
		for _, depTable := range manifest[name].Dependencies {
			owner, ok := byTable[depTable]
			if ok && owner != name {
				deps[name] = append(deps[name], owner)
			}
		}
	}

	return registry.SortDependencies(names, deps)
}

func tableOwners(manifest map[string]*ddl.SchemaDefinition) map[string]string {
	owners := make(map[string]string, len(manifest))
	for name, schema := range manifest {
		owners[schema.TableName] = name
	}
	return owners
}

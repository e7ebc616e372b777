package dbinit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaline-dev/metaline/ddl"
	"github.com/metaline-dev/metaline/registry"
)

// recordingDB is an in-memory stand-in tracking every statement, with
// substring-based failure injection.
type recordingDB struct {
	mu      sync.Mutex
	tables  map[string]bool
	columns map[string][]string
	execs   []string
	failOn  string
	raw     []string
}

func newRecordingDB() *recordingDB {
	return &recordingDB{
		tables:  make(map[string]bool),
		columns: make(map[string][]string),
	}
}

func (r *recordingDB) TableExists(_ context.Context, table string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables[table], nil
}

func (r *recordingDB) Exec(_ context.Context, query string, _ ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, query)
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return errors.New("injected failure")
	}
	if table, ok := quotedTable(query, "CREATE TABLE IF NOT EXISTS "); ok {
		r.tables[table] = true
	}
	if table, ok := quotedTable(query, "DROP TABLE IF EXISTS "); ok {
		delete(r.tables, table)
	}
	return nil
}

func (r *recordingDB) Query(_ context.Context, _ string, _ ...interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (r *recordingDB) TableColumns(_ context.Context, table string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.columns[table], nil
}

func (r *recordingDB) statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.execs))
	copy(out, r.execs)
	return out
}

func (r *recordingDB) countContaining(substr string) int {
	count := 0
	for _, stmt := range r.statements() {
		if strings.Contains(stmt, substr) {
			count++
		}
	}
	return count
}

func quotedTable(query, prefix string) (string, bool) {
	if !strings.HasPrefix(query, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(query, prefix)
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	rest = rest[1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// rawRecordingDB additionally implements the raw application contract.
type rawRecordingDB struct {
	*recordingDB
}

func (r *rawRecordingDB) RawApply(_ context.Context, schema string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = append(r.raw, schema)
	return nil
}

func compileManifest(t *testing.T, defs ...registry.TypeDefinition) map[string]*ddl.SchemaDefinition {
	t.Helper()
	reg := registry.New()
	for _, def := range defs {
		require.NoError(t, reg.Register(def), "registering %s", def.Name)
	}
	manifest, err := ddl.NewCompiler(reg).GenerateManifest()
	require.NoError(t, err)
	return manifest
}

func storeManifest(t *testing.T) map[string]*ddl.SchemaDefinition {
	return compileManifest(t,
		registry.TypeDefinition{Name: "Category", Fields: []registry.FieldDefinition{
			{Name: "name", Type: registry.TypeText, Required: true},
		}},
		registry.TypeDefinition{Name: "Product", Fields: []registry.FieldDefinition{
			{Name: "title", Type: registry.TypeText},
			{Name: "category", Type: registry.TypeRelationship, Target: "Category"},
		}},
	)
}

func TestInitializeSchemasDependencyOrder(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)

	result, err := coord.InitializeSchemas(context.Background(), database, Options{
		Manifest: storeManifest(t),
	})
	require.NoError(t, err)
	require.True(t, result.OK(), "errors: %v", result.Errors)
	assert.Equal(t, []string{"Category", "Product"}, result.Initialized)

	var creates []string
	for _, stmt := range database.statements() {
		if table, ok := quotedTable(stmt, "CREATE TABLE IF NOT EXISTS "); ok {
			creates = append(creates, table)
		}
	}
	assert.Equal(t, []string{"categories", "products"}, creates,
		"referenced tables must exist before their dependents")
}

func TestInitializeSchemasSkipsUnchanged(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)
	manifest := storeManifest(t)

	_, err := coord.InitializeSchemas(context.Background(), database, Options{Manifest: manifest})
	require.NoError(t, err)
	before := len(database.statements())

	result, err := coord.InitializeSchemas(context.Background(), database, Options{Manifest: manifest})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Category", "Product"}, result.Skipped)
	assert.Empty(t, result.Initialized)
	assert.Equal(t, before, len(database.statements()),
		"an unchanged batch must not touch the database")
}

func TestInitializeSchemasForce(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)
	manifest := storeManifest(t)

	_, err := coord.InitializeSchemas(context.Background(), database, Options{Manifest: manifest})
	require.NoError(t, err)

	result, err := coord.InitializeSchemas(context.Background(), database, Options{
		Manifest: manifest,
		Force:    true,
	})
	require.NoError(t, err)
	require.True(t, result.OK(), "errors: %v", result.Errors)

	assert.Equal(t, 2, database.countContaining("DROP TABLE IF EXISTS"))
	assert.Equal(t, 4, database.countContaining("CREATE TABLE IF NOT EXISTS"))
	assert.Empty(t, result.Skipped, "force bypasses the version cache")
}

func TestInitializeSchemasDependentSkippedOnFailure(t *testing.T) {
	database := newRecordingDB()
	database.failOn = `"categories"`
	coord := NewCoordinator(nil)

	result, err := coord.InitializeSchemas(context.Background(), database, Options{
		Manifest: storeManifest(t),
	})
	require.NoError(t, err, "individual failures stay in the result")

	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Category", result.Errors[0].Schema)
	assert.Equal(t, "Product", result.Errors[1].Schema)
	assert.Contains(t, result.Errors[1].Err.Error(), "dependency Category failed")
	assert.Zero(t, database.countContaining(`"products"`),
		"dependents of a failed schema must not be attempted")
}

func TestInitializeSchemasAddsMissingColumns(t *testing.T) {
	database := newRecordingDB()
	database.tables["categories"] = true
	database.tables["products"] = true
	database.columns["categories"] = []string{"id", "name"}
	database.columns["products"] = []string{"id", "category_id"}

	coord := NewCoordinator(nil)
	result, err := coord.InitializeSchemas(context.Background(), database, Options{
		Manifest: storeManifest(t),
	})
	require.NoError(t, err)
	require.True(t, result.OK(), "errors: %v", result.Errors)

	assert.Zero(t, database.countContaining("CREATE TABLE"))
	adds := 0
	for _, stmt := range database.statements() {
		if strings.HasPrefix(stmt, "ALTER TABLE") {
			adds++
			assert.Contains(t, stmt, "ADD COLUMN")
		}
	}
	assert.Equal(t, 1, adds, "only the missing products.title column is added")
	assert.Equal(t, 1, database.countContaining(`"title"`))
}

func TestInitializeSchemasOverrides(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)
	manifest := storeManifest(t)

	override := compileManifest(t, registry.TypeDefinition{
		Name: "Category",
		Fields: []registry.FieldDefinition{
			{Name: "name", Type: registry.TypeText},
			{Name: "slug", Type: registry.TypeText},
		},
	})["Category"]

	result, err := coord.InitializeSchemas(context.Background(), database, Options{
		Manifest:  manifest,
		Overrides: map[string]*ddl.SchemaDefinition{"Category": override},
	})
	require.NoError(t, err)
	require.True(t, result.OK(), "errors: %v", result.Errors)
	assert.Equal(t, 1, database.countContaining(`"slug"`))
}

func TestInitializeSchemasCycleIsFatal(t *testing.T) {
	a := &ddl.SchemaDefinition{TypeName: "A", TableName: "as", Dependencies: []string{"bs"}, Version: "v1"}
	b := &ddl.SchemaDefinition{TypeName: "B", TableName: "bs", Dependencies: []string{"as"}, Version: "v1"}

	database := newRecordingDB()
	result, err := NewCoordinator(nil).InitializeSchemas(context.Background(), database, Options{
		Manifest: map[string]*ddl.SchemaDefinition{"A": a, "B": b},
	})

	var cycleErr *registry.CircularDependencyError
	require.True(t, errors.As(err, &cycleErr))
	assert.Nil(t, result)
	assert.Empty(t, database.statements(), "nothing is applied under a cycle")
}

func TestInitializeSchemasRawSchema(t *testing.T) {
	t.Run("prefers the raw applier", func(t *testing.T) {
		database := &rawRecordingDB{recordingDB: newRecordingDB()}
		result, err := NewCoordinator(nil).InitializeSchemas(context.Background(), database, Options{
			RawSchema: "CREATE TABLE legacy (id TEXT);",
		})
		require.NoError(t, err)
		require.True(t, result.OK())
		assert.Equal(t, []string{"CREATE TABLE legacy (id TEXT);"}, database.raw)
		assert.Empty(t, database.statements())
	})

	t.Run("falls back to exec", func(t *testing.T) {
		database := newRecordingDB()
		result, err := NewCoordinator(nil).InitializeSchemas(context.Background(), database, Options{
			RawSchema: "CREATE TABLE legacy (id TEXT);",
		})
		require.NoError(t, err)
		require.True(t, result.OK())
		assert.Equal(t, []string{"CREATE TABLE legacy (id TEXT);"}, database.statements())
	})
}

func TestApplyOnceRecheckSkips(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)
	schema := storeManifest(t)["Category"]
	key := lockKey("", "Category", schema.TableName)

	coord.markInitialized(key, schema.Version)

	applied, err := coord.applyOnce(context.Background(), database, key, schema, Options{})
	require.NoError(t, err)
	assert.False(t, applied, "a version found current inside the flight is a skip, not work done")
	assert.Empty(t, database.statements())
}

func TestInitializeSchemasConcurrent(t *testing.T) {
	database := newRecordingDB()
	coord := NewCoordinator(nil)
	manifest := storeManifest(t)

	results := make([]*Result, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := coord.InitializeSchemas(context.Background(), database, Options{Manifest: manifest})
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, database.countContaining(`CREATE TABLE IF NOT EXISTS "categories"`),
		"concurrent batches share one creation per table")
	assert.Equal(t, 1, database.countContaining(`CREATE TABLE IF NOT EXISTS "products"`))

	for _, result := range results {
		require.True(t, result.OK(), "errors: %v", result.Errors)
		assert.Equal(t, 2, len(result.Initialized)+len(result.Skipped),
			"each batch classifies every schema exactly once")
	}
}

package collection

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/metaline-dev/metaline/db"
	"github.com/metaline-dev/metaline/dbinit"
	"github.com/metaline-dev/metaline/ddl"
	"github.com/metaline-dev/metaline/registry"
)

// PersistenceConfig describes where and how a collection persists. The cache
// key is derived from its normalized shape; see cacheKey.
type PersistenceConfig struct {
	Connection ConnectionConfig

	// Database is an optionally injected backing-store handle. When nil, the
	// cache opens one from the connection settings.
	Database db.Database

	// AIClient is an optionally injected provider client handed through to
	// consumers. Only its presence participates in the cache key.
	AIClient interface{}

	// Options carries non-identity settings; none of them affect the key.
	Options Options
}

// Options are per-request collection settings excluded from the cache key.
type Options struct {
	// Force recreates the collection's tables during setup. Destructive.
	Force bool

	// OnReady runs once after a newly constructed collection finishes setup.
	OnReady func(*Collection)
}

// Cache hands out singleton collection instances. For a given key at most one
// initialization sequence ever executes: concurrent first-time requesters
// share the in-flight setup and observe the same instance once it is ready.
type Cache struct {
	reg         *registry.Registry
	compiler    *ddl.Compiler
	coordinator *dbinit.Coordinator
	logger      *zap.Logger

	group       singleflight.Group
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewCache creates a collection cache. A nil coordinator gets a private one;
// sharing a coordinator across caches shares its version cache. A nil logger
// disables logging.
func NewCache(reg *registry.Registry, coordinator *dbinit.Coordinator, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if coordinator == nil {
		coordinator = dbinit.NewCoordinator(logger)
	}
	return &Cache{
		reg:         reg,
		compiler:    ddl.NewCompiler(reg),
		coordinator: coordinator,
		logger:      logger,
		collections: make(map[string]*Collection),
	}
}

// GetCollection returns the collection for a registered type and persistence
// configuration, constructing and setting it up on first use. Lookups are
// case-insensitive in the type name. Returns a NotRegisteredError when the
// type is unknown.
func (c *Cache) GetCollection(ctx context.Context, name string, cfg PersistenceConfig) (*Collection, error) {
	rt, ok := c.reg.GetType(name)
	if !ok {
		return nil, &registry.NotRegisteredError{TypeName: name}
	}

	key := cacheKey(rt.Name, cfg)

	c.mu.RLock()
	existing := c.collections[key]
	c.mu.RUnlock()
	if existing != nil {
		return existing, nil
	}

	// Coalesce concurrent misses for the same key: exactly one setup runs,
	// everyone else waits on it and shares the outcome.
	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		col := c.collections[key]
		c.mu.RUnlock()
		if col != nil {
			return col, nil
		}

		col, err := c.build(ctx, rt.Name, cfg)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.collections[key] = col
		c.mu.Unlock()

		if cfg.Options.OnReady != nil {
			cfg.Options.OnReady(col)
		}
		return col, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Collection), nil
}

// build constructs a collection and runs its one-time setup: compiling the
// type's schema plus its dependency closure and handing the manifest to the
// initialization coordinator so foreign-key targets exist before the table
// that references them.
func (c *Cache) build(ctx context.Context, name string, cfg PersistenceConfig) (*Collection, error) {
	database, err := c.resolveDatabase(cfg)
	if err != nil {
		return nil, err
	}

	manifest, err := c.compiler.GenerateManifest(c.dependencyClosure(name)...)
	if err != nil {
		return nil, err
	}

	result, err := c.coordinator.InitializeSchemas(ctx, database, dbinit.Options{
		Manifest: manifest,
		Scope:    connectionScope(cfg),
		Force:    cfg.Options.Force,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing schemas for %s: %w", name, err)
	}
	if !result.OK() {
		return nil, fmt.Errorf("initializing schemas for %s: %w", name, result.Errors[0])
	}

	schema, err := c.compiler.GenerateSchema(name)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("collection ready",
		zap.String("type", name),
		zap.String("table", schema.TableName),
		zap.String("result", result.Summary()))

	return &Collection{
		typeName: name,
		schema:   schema,
		database: database,
	}, nil
}

// dependencyClosure returns the type plus every registered type reachable
// through its foreign-key dependencies.
func (c *Cache) dependencyClosure(name string) []string {
	graph := c.reg.GetDependencyGraph()

	seen := map[string]bool{name: true}
	closure := []string{name}
	for i := 0; i < len(closure); i++ {
		for _, dep := range graph[closure[i]] {
			if !seen[dep] {
				seen[dep] = true
				closure = append(closure, dep)
			}
		}
	}
	return closure
}

func (c *Cache) resolveDatabase(cfg PersistenceConfig) (db.Database, error) {
	if cfg.Database != nil {
		return cfg.Database, nil
	}
	switch cfg.Connection.Type {
	case "sqlite", "":
		return db.OpenSQLite(cfg.Connection.URL)
	case "memory":
		return db.OpenSQLite(":memory:")
	case "postgres":
		return db.OpenPostgres(cfg.Connection.URL)
	default:
		return nil, fmt.Errorf("unsupported connection type: %s", cfg.Connection.Type)
	}
}

// Reset drops every cached collection. Reserved for tests.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = make(map[string]*Collection)
}

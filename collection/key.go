package collection

import (
	"fmt"
	"strings"
)

// ConnectionConfig identifies the backing store a collection persists to.
type ConnectionConfig struct {
	// Type names the engine: "sqlite", "postgres", "memory".
	Type string `json:"type"`
	// URL is the connection URL or file path.
	URL string `json:"url"`
}

// cacheKey derives the deduplication key for a collection: the normalized
// type name plus the normalized shape of the persistence configuration.
// Only identity-bearing parts participate: connection type, URL, and the
// presence of injected handles. Full option objects (callbacks and the like)
// are deliberately excluded so they cannot cause spurious cache misses.
func cacheKey(typeName string, cfg PersistenceConfig) string {
	return fmt.Sprintf("%s|%s|ai:%t",
		strings.ToLower(typeName),
		connectionScope(cfg),
		cfg.AIClient != nil,
	)
}

// connectionScope identifies the backing store a configuration points at. It
// also namespaces the schema coordinator's bookkeeping so distinct stores
// never share initialization state.
func connectionScope(cfg PersistenceConfig) string {
	return fmt.Sprintf("conn:%s|url:%s|db:%t",
		cfg.Connection.Type,
		cfg.Connection.URL,
		cfg.Database != nil,
	)
}

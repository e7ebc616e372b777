package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/metaline-dev/metaline/db"
)

// SnapshotTable is the best-effort system table the registry mirrors itself
// into for external inspection. The in-memory registry built at process start
// is always authoritative; nothing is ever bootstrapped from this table.
const SnapshotTable = "_registry"

// SnapshotEntry is one row of the snapshot table: a type name and its
// JSON-serialized manifest.
type SnapshotEntry struct {
	ClassName string
	Manifest  ObjectMetadata
}

// PersistSnapshot writes the current registry contents into the snapshot
// table, creating it when missing and replacing any prior row per type.
func (r *Registry) PersistSnapshot(ctx context.Context, database db.Database) error {
	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (class_name TEXT PRIMARY KEY, manifest TEXT)",
		SnapshotTable,
	)
	if err := database.Exec(ctx, create); err != nil {
		return fmt.Errorf("creating snapshot table: %w", err)
	}

	upsert := fmt.Sprintf(
		"INSERT INTO %s (class_name, manifest) VALUES (?, ?) ON CONFLICT(class_name) DO UPDATE SET manifest = excluded.manifest",
		SnapshotTable,
	)
	for _, meta := range r.GetAllObjectMetadata() {
		payload, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("serializing manifest for %s: %w", meta.Name, err)
		}
		if err := database.Exec(ctx, upsert, meta.Name, string(payload)); err != nil {
			return fmt.Errorf("persisting snapshot for %s: %w", meta.Name, err)
		}
	}
	return nil
}

// LoadSnapshot reads the snapshot table back for inspection. A missing table
// yields an empty result, not an error; rows with unreadable manifests are
// returned with their name and a zero manifest.
func (r *Registry) LoadSnapshot(ctx context.Context, database db.Database) ([]SnapshotEntry, error) {
	exists, err := database.TableExists(ctx, SnapshotTable)
	if err != nil {
		return nil, fmt.Errorf("checking snapshot table: %w", err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := database.Query(ctx,
		fmt.Sprintf("SELECT class_name, manifest FROM %s ORDER BY class_name", SnapshotTable))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot table: %w", err)
	}

	entries := make([]SnapshotEntry, 0, len(rows))
	for _, row := range rows {
		entry := SnapshotEntry{}
		if name, ok := row["class_name"].(string); ok {
			entry.ClassName = name
		}
		if manifest, ok := row["manifest"].(string); ok {
			// Best effort: an unreadable manifest still yields the row.
			_ = json.Unmarshal([]byte(manifest), &entry.Manifest)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

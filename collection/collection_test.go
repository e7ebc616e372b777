package collection

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productCollection(t *testing.T, store *fakeStore) *Collection {
	t.Helper()
	cache := NewCache(storeRegistry(t), nil, nil)
	col, err := cache.GetCollection(context.Background(), "Product", PersistenceConfig{Database: store})
	require.NoError(t, err)
	return col
}

func TestInsertGeneratesID(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	stored, err := col.Insert(context.Background(), map[string]interface{}{
		"title": "Widget",
	})
	require.NoError(t, err)

	id, ok := stored["id"].(string)
	require.True(t, ok, "missing primary key is filled in")
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated keys are UUIDs")

	last := store.execs[len(store.execs)-1]
	assert.Equal(t, `INSERT INTO "products" ("id", "title") VALUES (?, ?)`, last.query)
	assert.Equal(t, []interface{}{id, "Widget"}, last.args)
}

func TestInsertKeepsProvidedID(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	stored, err := col.Insert(context.Background(), map[string]interface{}{
		"id":    "p-1",
		"title": "Widget",
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", stored["id"])
}

func TestInsertIgnoresUnknownColumns(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	_, err := col.Insert(context.Background(), map[string]interface{}{
		"id":      "p-1",
		"title":   "Widget",
		"unknown": "dropped",
	})
	require.NoError(t, err)

	last := store.execs[len(store.execs)-1]
	assert.NotContains(t, last.query, "unknown")
}

func TestInsertWithNoKnownColumns(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	// Every provided key misses; the generated key alone is inserted.
	_, err := col.Insert(context.Background(), map[string]interface{}{"nope": 1})
	require.NoError(t, err)
	last := store.execs[len(store.execs)-1]
	assert.Contains(t, last.query, `INSERT INTO "products" ("id") VALUES (?)`)
}

func TestGet(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	t.Run("absent id yields nil", func(t *testing.T) {
		record, err := col.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("present id yields the row", func(t *testing.T) {
		store.rows = []map[string]interface{}{{"id": "p-1", "title": "Widget"}}
		record, err := col.Get(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, "Widget", record["title"])
	})
}

func TestCount(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	for _, row := range []map[string]interface{}{
		{"n": int64(3)},
		{"n": 3},
		{"n": 3.0},
		{"n": "3"},
	} {
		store.rows = []map[string]interface{}{row}
		n, err := col.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n, "count value %#v", row["n"])
	}
}

func TestDeleteByID(t *testing.T) {
	store := newFakeStore()
	col := productCollection(t, store)

	require.NoError(t, col.DeleteByID(context.Background(), "p-1"))

	last := store.execs[len(store.execs)-1]
	assert.Equal(t, `DELETE FROM "products" WHERE "id" = ?`, last.query)
	assert.Equal(t, []interface{}{"p-1"}, last.args)
}

package mongo

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running MongoDB; set MONGO_TEST_URI to enable.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	database := "dandi_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	store, err := New(ctx, uri, database)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.client.Database(database).Drop(context.Background())
		store.Close()
	})
	return store
}

func TestStore_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.InsertKey(ctx, &domain.NewKey{Name: "first", Type: domain.KeyTypeDev, Secret: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
	require.NoError(t, err)
	second, err := store.InsertKey(ctx, &domain.NewKey{Name: "second", Type: domain.KeyTypeProd, Secret: "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"})
	require.NoError(t, err)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, second.ID, keys[0].ID)

	_, err = store.InsertKey(ctx, &domain.NewKey{Name: "dup", Type: domain.KeyTypeDev, Secret: first.Secret})
	assert.ErrorIs(t, err, domain.ErrDuplicateSecret)

	name := "renamed"
	updated, err := store.UpdateKey(ctx, first.ID, domain.KeyUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	used, err := store.IncrementUsage(ctx, first.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, used.Usage)

	found, err := store.FindKeyBySecret(ctx, first.Secret)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	require.NoError(t, store.DeleteKey(ctx, first.ID))
	assert.ErrorIs(t, store.DeleteKey(ctx, first.ID), domain.ErrNotFound)

	_, err = store.UpdateKey(ctx, first.ID, domain.KeyUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := store.CountKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

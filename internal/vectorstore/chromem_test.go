package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemStoreAddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "a", Content: "first", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "second", Embedding: []float32{0, 1, 0}},
		{ID: "c", Content: "third", Embedding: []float32{0.9, 0.1, 0}},
	}
	require.NoError(t, store.AddDocuments(ctx, docs))

	results, err := store.SearchByVector(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemStoreSearchEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.SearchByVector(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStoreCapsKAtCollectionSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []Document{
		{ID: "only", Content: "doc", Embedding: []float32{1, 0, 0}},
	}))

	results, err := store.SearchByVector(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemStoreRejectsMissingEmbedding(t *testing.T) {
	store := newTestStore(t)

	err := store.AddDocuments(context.Background(), []Document{
		{ID: "x", Content: "no vector"},
	})
	assert.ErrorIs(t, err, ErrMissingEmbedding)
}

func TestChromemStoreRejectsEmptyBatch(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.AddDocuments(context.Background(), nil), ErrEmptyDocuments)
}

func TestChromemStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []Document{
		{ID: "a", Content: "first", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "second", Embedding: []float32{0, 1, 0}},
	}))

	require.NoError(t, store.DeleteDocuments(ctx, []string{"a"}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewChromemStore(ChromemConfig{Path: dir}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(ctx, []Document{
		{ID: "a", Content: "persisted", Embedding: []float32{1, 0, 0}},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir}, zap.NewNop())
	require.NoError(t, err)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

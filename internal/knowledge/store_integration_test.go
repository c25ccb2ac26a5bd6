//go:build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/log"
	"github.com/docchat/docchat/internal/testutil"
)

// setupStore creates a Store backed by a real pgvector container with a
// deterministic fake embedder.
func setupStore(t *testing.T) *Store {
	t.Helper()

	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := New(tdb.Pool, testutil.NewFakeEmbedder(int(VectorDimension)), log.NewNop())
	require.NoError(t, err)
	return store
}

func sampleChunks() []Chunk {
	return []Chunk{
		{ID: "guide-0", Source: "guide.txt", ChunkIndex: 0, Content: "Go is a statically typed language designed at Google."},
		{ID: "guide-1", Source: "guide.txt", ChunkIndex: 1, Content: "Goroutines are lightweight threads managed by the runtime."},
		{ID: "faq-0", Source: "faq.md", ChunkIndex: 0, Content: "The support desk is open weekdays from nine to five.", Metadata: map[string]string{"ext": ".md"}},
	}
}

func TestStore_AddBatchAndCount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBatch(ctx, sampleChunks()))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	bySource, err := store.CountBySource(ctx)
	require.NoError(t, err)
	require.Len(t, bySource, 2)
	assert.Equal(t, SourceCount{Source: "faq.md", Chunks: 1}, bySource[0])
	assert.Equal(t, SourceCount{Source: "guide.txt", Chunks: 2}, bySource[1])
}

func TestStore_AddBatch_UpsertsExistingID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, Chunk{ID: "c1", Source: "a.txt", ChunkIndex: 0, Content: "first version"}))
	require.NoError(t, store.Add(ctx, Chunk{ID: "c1", Source: "a.txt", ChunkIndex: 0, Content: "second version"}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Search(ctx, "second version", WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Chunk.Content)
}

func TestStore_Search(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBatch(ctx, sampleChunks()))

	// The fake embedder maps equal text to equal vectors, so querying with a
	// stored chunk's exact content must rank that chunk first.
	results, err := store.Search(ctx, "Goroutines are lightweight threads managed by the runtime.")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "guide-1", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.001)

	// Results are ordered by similarity descending.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestStore_Search_SourceFilter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBatch(ctx, sampleChunks()))

	results, err := store.Search(ctx, "anything at all", WithSource("faq.md"), WithTopK(10))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "faq-0", results[0].Chunk.ID)
	assert.Equal(t, map[string]string{"ext": ".md"}, results[0].Chunk.Metadata)
}

func TestStore_Search_EmptyQuery(t *testing.T) {
	store := setupStore(t)

	results, err := store.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_DeleteSourceAndClear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddBatch(ctx, sampleChunks()))

	deleted, err := store.DeleteSource(ctx, "guide.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Clear(ctx))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_AddBatch_EmbedderFailureLeavesNoRows(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	emb := testutil.NewFakeEmbedder(int(VectorDimension))
	emb.Err = assert.AnError

	store, err := New(tdb.Pool, emb, log.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, store.AddBatch(ctx, sampleChunks()))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

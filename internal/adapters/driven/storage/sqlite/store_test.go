package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func saveTestDocument(t *testing.T, store *Store, id string, docType domain.DocumentType) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), &domain.Document{
		ID:          id,
		Title:       "Test Work " + id,
		Type:        docType,
		StoragePath: "/tmp/" + id + ".txt",
		Status:      domain.StatusQueued,
		OwnerID:     "admin-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func saveTestChunks(t *testing.T, store *Store, docID string, contents ...string) []domain.Chunk {
	t.Helper()
	chunks := make([]domain.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = domain.Chunk{
			ID:         docID + "-c" + string(rune('0'+i)),
			DocumentID: docID,
			Position:   i,
			Content:    content,
			Citation: domain.Citation{
				Kind: domain.DocumentTypeTreatise,
				Work: "Test Work",
				Page: i + 1,
			},
			WordCount: domain.CountWords(content),
		}
	}
	require.NoError(t, store.DocumentStore().SaveChunks(context.Background(), chunks))
	return chunks
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeScripture)

	doc, err := store.DocumentStore().GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeScripture, doc.Type)
	assert.Equal(t, domain.StatusQueued, doc.Status)
	assert.Equal(t, "admin-1", doc.OwnerID)

	_, err = store.DocumentStore().GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := store.DocumentStore().ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStoreStatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeTreatise)
	ds := store.DocumentStore()

	require.NoError(t, ds.UpdateStatus(ctx, "d1", domain.StatusProcessing, ""))
	require.NoError(t, ds.UpdateStatus(ctx, "d1", domain.StatusFailed, "embedding failed at chunk position 4"))

	doc, err := ds.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "embedding failed at chunk position 4", doc.Error)

	// Illegal transitions are rejected at the store boundary too.
	err = ds.UpdateStatus(ctx, "d1", domain.StatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, ds.UpdateStatus(ctx, "d1", domain.StatusQueued, ""))
}

func TestStoreChunkRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeTreatise)
	saveTestChunks(t, store, "d1", "first chunk text", "second chunk text")
	ds := store.DocumentStore()

	chunks, err := ds.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, "Test Work", chunks[0].Citation.Work)
	assert.Equal(t, 1, chunks[0].Citation.Page)
	assert.False(t, chunks[0].HasEmbedding())

	vec := []float32{0.25, -0.5, 1.0}
	require.NoError(t, ds.AttachEmbedding(ctx, chunks[0].ID, vec))

	got, err := ds.GetChunk(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, vec, got.Embedding)

	require.NoError(t, ds.MarkChunkFailed(ctx, chunks[1].ID))
	got, err = ds.GetChunk(ctx, chunks[1].ID)
	require.NoError(t, err)
	assert.True(t, got.EmbedFailed)

	assert.ErrorIs(t, ds.AttachEmbedding(ctx, "missing", vec), domain.ErrNotFound)
}

func TestStoreDeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeTreatise)
	chunks := saveTestChunks(t, store, "d1", "text")

	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "d1"))

	_, err := store.DocumentStore().GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The FTS trigger must have removed the cascaded row as well.
	hits, err := store.LexicalIndex().Search(ctx, "text", driven.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalSearchRanksAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeTreatise)
	saveTestDocument(t, store, "d2", domain.DocumentTypeScripture)
	saveTestChunks(t, store, "d1", "grace and peace be multiplied", "the law of works")
	saveTestChunks(t, store, "d2", "by grace you have been saved through faith")

	x := store.LexicalIndex()

	hits, err := x.Search(ctx, "grace", driven.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = x.Search(ctx, "grace", driven.SearchFilter{
		DocumentTypes: []domain.DocumentType{domain.DocumentTypeScripture},
	}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d2-c0", hits[0].ChunkID)

	hits, err = x.Search(ctx, "grace", driven.SearchFilter{DocumentIDs: []string{"d1"}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1-c0", hits[0].ChunkID)

	// Punctuation must not inject FTS syntax.
	_, err = x.Search(ctx, `grace" OR "law`, driven.SearchFilter{}, 10)
	require.NoError(t, err)
}

func TestVectorSearchScansEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "d1", domain.DocumentTypeTreatise)
	chunks := saveTestChunks(t, store, "d1", "a", "b", "c")
	ds := store.DocumentStore()

	require.NoError(t, ds.AttachEmbedding(ctx, chunks[0].ID, []float32{1, 0, 0}))
	require.NoError(t, ds.AttachEmbedding(ctx, chunks[1].ID, []float32{0.9, 0.1, 0}))
	require.NoError(t, ds.AttachEmbedding(ctx, chunks[2].ID, []float32{0, 1, 0}))

	hits, err := store.VectorIndex().Search(ctx, []float32{1, 0, 0}, driven.SearchFilter{}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2, "orthogonal vector must fall below the floor")
	assert.Equal(t, chunks[0].ID, hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

	hits, err = store.VectorIndex().Search(ctx, []float32{1, 0, 0}, driven.SearchFilter{}, 0.5, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, chunks[0].ID, hits[0].ChunkID)
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	got := bytesToFloat32Slice(float32SliceToBytes(vec))
	assert.Equal(t, vec, got)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

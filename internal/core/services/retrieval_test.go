package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exegete-labs/exegete/internal/adapters/driven/storage/memory"
	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

func seedChunks(t *testing.T, store *memory.DocumentStore, ids ...string) {
	t.Helper()
	chunks := make([]domain.Chunk, len(ids))
	for i, id := range ids {
		chunks[i] = domain.Chunk{
			ID:         id,
			DocumentID: "d1",
			Position:   i,
			Content:    "content of " + id,
			Citation:   domain.Citation{Kind: domain.DocumentTypeTreatise, Work: "Institutes", Page: i + 1},
		}
	}
	require.NoError(t, store.SaveChunks(context.Background(), chunks))
}

func TestRetrieveFusesBothPrimitives(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1", "c2", "c3")

	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{ChunkID: "c1", Score: 3.0},
		{ChunkID: "c2", Score: 1.0},
	}}
	vector := &mockVectorIndex{hits: []driven.VectorHit{
		{ChunkID: "c2", Similarity: 0.9},
		{ChunkID: "c3", Similarity: 0.6},
	}}
	svc := NewRetrievalService(store, lexical, vector, &mockEmbedder{vector: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)

	// c2 appears in both lists and must outrank single-source hits.
	assert.Equal(t, "c2", result.Chunks[0].Chunk.ID)
	for _, c := range result.Chunks {
		assert.Equal(t, domain.RankSourceFused, c.Source)
	}
}

func TestRetrieveDegradesWhenLexicalFails(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1")

	lexical := &mockLexicalIndex{searchErr: errors.New("index corrupt")}
	vector := &mockVectorIndex{hits: []driven.VectorHit{{ChunkID: "c1", Similarity: 0.8}}}
	svc := NewRetrievalService(store, lexical, vector, &mockEmbedder{vector: []float32{1, 0}}, nil)

	result, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, domain.RankSourceSemantic, result.Chunks[0].Source)
}

func TestRetrieveDegradesWhenEmbeddingFails(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1")

	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{{ChunkID: "c1", Score: 2.0}}}
	vector := &mockVectorIndex{}
	embedder := &mockEmbedder{embedErr: errors.New("provider down")}
	svc := NewRetrievalService(store, lexical, vector, embedder, nil)

	result, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, domain.RankSourceLexical, result.Chunks[0].Source)
}

func TestRetrieveFailsWhenBothPrimitivesFail(t *testing.T) {
	store := memory.NewDocumentStore()
	lexical := &mockLexicalIndex{searchErr: errors.New("lexical down")}
	vector := &mockVectorIndex{searchErr: errors.New("vector down")}
	svc := NewRetrievalService(store, lexical, vector, &mockEmbedder{vector: []float32{1}}, nil)

	_, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	svc := NewRetrievalService(memory.NewDocumentStore(), &mockLexicalIndex{}, &mockVectorIndex{},
		&mockEmbedder{vector: []float32{1}}, nil)

	_, err := svc.Retrieve(context.Background(), "   ", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieveSkipsDeletedChunks(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1")

	// c9 was deleted from the store after being indexed.
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{ChunkID: "c1", Score: 2.0},
		{ChunkID: "c9", Score: 1.0},
	}}
	svc := NewRetrievalService(store, lexical, &mockVectorIndex{}, &mockEmbedder{vector: []float32{1}}, nil)

	result, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "c1", result.Chunks[0].Chunk.ID)
}

func TestRetrieveUsesEmbeddingCache(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1")

	embedder := &mockEmbedder{vector: []float32{1, 0}}
	cache := newMockCache()
	vector := &mockVectorIndex{hits: []driven.VectorHit{{ChunkID: "c1", Similarity: 0.9}}}
	svc := NewRetrievalService(store, &mockLexicalIndex{}, vector, embedder, cache)

	_, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)
	_, err = svc.Retrieve(context.Background(), "grace", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls, "second identical query must be served from cache")
}

func TestRetrieveHonoursTopK(t *testing.T) {
	store := memory.NewDocumentStore()
	seedChunks(t, store, "c1", "c2", "c3", "c4")

	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{ChunkID: "c1", Score: 4},
		{ChunkID: "c2", Score: 3},
		{ChunkID: "c3", Score: 2},
		{ChunkID: "c4", Score: 1},
	}}
	vector := &mockVectorIndex{}
	svc := NewRetrievalService(store, lexical, vector, &mockEmbedder{vector: []float32{1}}, nil)

	result, err := svc.Retrieve(context.Background(), "grace", domain.QueryOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 2)
}

func TestReciprocalRankFusionDeterminism(t *testing.T) {
	list1 := []scoredChunk{{chunkID: "a"}, {chunkID: "b"}}
	list2 := []scoredChunk{{chunkID: "b"}, {chunkID: "c"}}

	first := reciprocalRankFusion(list1, list2, 60)
	second := reciprocalRankFusion(list1, list2, 60)
	assert.Equal(t, first, second, "identical inputs must fuse identically")

	require.Len(t, first, 3)
	assert.Equal(t, "b", first[0].chunkID)
	// b's score is the sum of both contributions.
	assert.InDelta(t, 1.0/62+1.0/61, first[0].score, 1e-9)
}

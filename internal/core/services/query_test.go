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

// queryFixture wires a full query pipeline over in-memory collaborators.
type queryFixture struct {
	store    *memory.DocumentStore
	lexical  *mockLexicalIndex
	vector   *mockVectorIndex
	embedder *mockEmbedder
	reranker *mockReranker
	primary  *mockLLM
	svc      *QueryService
}

func newQueryFixture(t *testing.T, chunkIDs ...string) *queryFixture {
	t.Helper()
	f := &queryFixture{
		store:    memory.NewDocumentStore(),
		lexical:  &mockLexicalIndex{},
		vector:   &mockVectorIndex{},
		embedder: &mockEmbedder{vector: []float32{1, 0}},
		reranker: &mockReranker{},
		primary:  &mockLLM{responses: []string{"Answer [1]."}},
	}
	seedChunks(t, f.store, chunkIDs...)
	for i, id := range chunkIDs {
		f.lexical.hits = append(f.lexical.hits, driven.LexicalHit{ChunkID: id, Score: float64(len(chunkIDs) - i)})
	}

	retrieval := NewRetrievalService(f.store, f.lexical, f.vector, f.embedder, nil)
	generator := NewGenerator(f.primary, nil, mockPrompts{})
	f.svc = NewQueryService(retrieval, f.reranker, generator)
	return f
}

func TestAskFullPipeline(t *testing.T) {
	f := newQueryFixture(t, "c1", "c2")

	answer, err := f.svc.Ask(context.Background(), "What is grace?", nil, domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.reranker.calls)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "c1", answer.Citations[0].ChunkID)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newQueryFixture(t, "c1")
	_, err := f.svc.Ask(context.Background(), "  ", nil, domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskRerankerFailureKeepsFusedOrder(t *testing.T) {
	f := newQueryFixture(t, "c1", "c2", "c3")
	f.reranker.err = errors.New("rerank provider down")

	answer, err := f.svc.Ask(context.Background(), "What is grace?", nil, domain.QueryOptions{RerankTo: 2})
	require.NoError(t, err)

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "c1", answer.Citations[0].ChunkID, "fused order must survive rerank failure")
}

func TestAskNoCandidatesReturnsInsufficiency(t *testing.T) {
	f := newQueryFixture(t) // no chunks at all

	answer, err := f.svc.Ask(context.Background(), "What is grace?", nil, domain.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, answer.Insufficient)
	assert.Empty(t, f.primary.prompts)
}

func TestAskHistoryFlowsIntoEmbeddingAndPrompt(t *testing.T) {
	f := newQueryFixture(t, "c1")
	f.vector.hits = []driven.VectorHit{{ChunkID: "c1", Similarity: 0.9}}

	history := []domain.Exchange{
		{Question: "Who wrote Romans?", Answer: "Paul."},
	}
	_, err := f.svc.Ask(context.Background(), "What about chapter eight?", history, domain.QueryOptions{})
	require.NoError(t, err)

	require.Len(t, f.primary.prompts, 1)
	assert.Contains(t, f.primary.prompts[0], "Who wrote Romans?")
}

func TestAskHistoryWindowTruncates(t *testing.T) {
	f := newQueryFixture(t, "c1")

	history := make([]domain.Exchange, 10)
	for i := range history {
		history[i] = domain.Exchange{Question: "q", Answer: "a"}
	}
	history[0].Question = "oldest question"
	history[9].Question = "newest question"

	_, err := f.svc.Ask(context.Background(), "follow-up", history, domain.QueryOptions{})
	require.NoError(t, err)

	require.Len(t, f.primary.prompts, 1)
	assert.Contains(t, f.primary.prompts[0], "newest question")
	assert.NotContains(t, f.primary.prompts[0], "oldest question")
}

func TestAskRetrievalFailurePropagates(t *testing.T) {
	f := newQueryFixture(t, "c1")
	f.lexical.searchErr = errors.New("lexical down")
	f.vector.searchErr = errors.New("vector down")

	_, err := f.svc.Ask(context.Background(), "question", nil, domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrRetrieval)
}

func TestEmbedInput(t *testing.T) {
	assert.Equal(t, "q", embedInput("q", nil))

	got := embedInput("follow-up", []domain.Exchange{{Question: "first", Answer: "reply"}})
	assert.Contains(t, got, "first")
	assert.Contains(t, got, "reply")
	assert.Contains(t, got, "follow-up")
	assert.Greater(t, len(got), len("follow-up"))
}

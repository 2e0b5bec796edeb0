package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
)

// Retrieval defaults.
const (
	// DefaultTopK is the hybrid candidate budget.
	DefaultTopK = 20

	// DefaultMinSimilarity is the semantic similarity floor applied when
	// the request does not supply one.
	DefaultMinSimilarity = 0.25

	// rrfK dampens the contribution of top ranks during fusion so one
	// list cannot dominate the other.
	rrfK = 60
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// scoredChunk holds intermediate search results before hydration.
type scoredChunk struct {
	chunkID string
	score   float64
	source  domain.RankSource
}

// RetrievalService runs hybrid retrieval: lexical and semantic search in
// parallel, fused with reciprocal rank fusion.
type RetrievalService struct {
	docStore      driven.DocumentStore
	lexical       driven.LexicalIndex
	vector        driven.VectorIndex
	embedder      driven.EmbeddingService
	cache         driven.EmbeddingCache
	minSimilarity float64
}

// RetrievalOption configures the retrieval service.
type RetrievalOption func(*RetrievalService)

// WithMinSimilarity sets the default semantic similarity floor.
func WithMinSimilarity(min float64) RetrievalOption {
	return func(s *RetrievalService) {
		if min > 0 {
			s.minSimilarity = min
		}
	}
}

// NewRetrievalService creates a retrieval service. The cache may be nil,
// in which case query embeddings are computed on every call.
func NewRetrievalService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	cache driven.EmbeddingCache,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		docStore:      docStore,
		lexical:       lexical,
		vector:        vector,
		embedder:      embedder,
		cache:         cache,
		minSimilarity: DefaultMinSimilarity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns the fused candidate set for a query. Both search
// primitives use the query text itself; callers that carry conversation
// context use RetrieveFor.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.QueryOptions,
) (*domain.RetrievalResult, error) {
	return s.RetrieveFor(ctx, query, query, opts)
}

// RetrieveFor runs hybrid retrieval with distinct texts for the two
// primitives: lexicalQuery feeds keyword search, embedText feeds the
// query embedding. Conversational callers prepend recent exchanges to
// embedText so follow-up questions embed with their context.
func (s *RetrievalService) RetrieveFor(
	ctx context.Context, lexicalQuery, embedText string, opts domain.QueryOptions,
) (*domain.RetrievalResult, error) {
	logger.Section("Hybrid Retrieval")

	lexicalQuery = strings.TrimSpace(lexicalQuery)
	embedText = strings.TrimSpace(embedText)
	if lexicalQuery == "" && embedText == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	filter := driven.SearchFilter{
		DocumentTypes: opts.Filters.DocumentTypes,
		DocumentIDs:   opts.Filters.DocumentIDs,
	}
	minSim := s.minSimilarity
	if opts.Filters.MinSimilarity > 0 {
		// The request-supplied floor wins over the configured default.
		minSim = opts.Filters.MinSimilarity
	}
	logger.Debug("Query: %q, topK=%d, minSimilarity=%.2f", lexicalQuery, topK, minSim)

	var lexicalHits, semanticHits []scoredChunk
	var lexicalErr, semanticErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexicalHits, lexicalErr = s.lexicalSearch(ctx, lexicalQuery, filter, topK)
	}()
	go func() {
		defer wg.Done()
		semanticHits, semanticErr = s.semanticSearch(ctx, embedText, filter, minSim, topK)
	}()
	wg.Wait()

	// One primitive failing degrades the result; both failing fails the
	// query.
	var fused []scoredChunk
	switch {
	case lexicalErr != nil && semanticErr != nil:
		return nil, fmt.Errorf("%w: lexical: %w; semantic: %w",
			domain.ErrRetrieval, lexicalErr, semanticErr)
	case lexicalErr != nil:
		logger.Warn("Lexical search failed, semantic results only: %v", lexicalErr)
		fused = semanticHits
	case semanticErr != nil:
		logger.Warn("Semantic search failed, lexical results only: %v", semanticErr)
		fused = lexicalHits
	default:
		logger.Debug("Fusing %d lexical + %d semantic hits", len(lexicalHits), len(semanticHits))
		fused = reciprocalRankFusion(lexicalHits, semanticHits, rrfK)
	}

	if len(fused) > topK {
		fused = fused[:topK]
	}

	chunks, err := s.hydrate(ctx, fused)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrate: %w", domain.ErrRetrieval, err)
	}
	logger.Info("Retrieved %d candidates", len(chunks))

	return &domain.RetrievalResult{Query: lexicalQuery, Chunks: chunks}, nil
}

// lexicalSearch runs full-text search over the chunk index.
func (s *RetrievalService) lexicalSearch(
	ctx context.Context, query string, filter driven.SearchFilter, limit int,
) ([]scoredChunk, error) {
	if s.lexical == nil {
		return nil, errors.New("lexical index unavailable")
	}
	if query == "" {
		// Nothing for keyword search to match on.
		return nil, nil
	}

	hits, err := s.lexical.Search(ctx, query, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	logger.Debug("Lexical search: %d hits", len(hits))

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   hit.Score,
			source:  domain.RankSourceLexical,
		}
	}
	return results, nil
}

// semanticSearch embeds the query and scans the vector index.
func (s *RetrievalService) semanticSearch(
	ctx context.Context, text string, filter driven.SearchFilter, minSim float64, limit int,
) ([]scoredChunk, error) {
	if s.vector == nil || s.embedder == nil {
		return nil, errors.New("semantic search unavailable")
	}
	if text == "" {
		return nil, nil
	}

	embedding, err := s.queryEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vector.Search(ctx, embedding, filter, minSim, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Semantic search: %d hits", len(hits))

	results := make([]scoredChunk, len(hits))
	for i, hit := range hits {
		results[i] = scoredChunk{
			chunkID: hit.ChunkID,
			score:   hit.Similarity,
			source:  domain.RankSourceSemantic,
		}
	}
	return results, nil
}

// queryEmbedding returns the embedding for text, consulting the cache
// first. Repeated questions in a session skip the provider round trip.
func (s *RetrievalService) queryEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := EmbeddingCacheKey(s.embedder.ModelName(), text)
	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, key); ok {
			logger.Debug("Query embedding served from cache")
			return vec, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, vec)
	}
	return vec, nil
}

// EmbeddingCacheKey derives the cache key for a model/text pair. The
// model name participates so switching models never serves stale vectors.
func EmbeddingCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// reciprocalRankFusion merges two ranked lists. Each list contributes
// 1/(k+rank+1) per chunk; chunks found by both primitives accumulate both
// contributions and rise above single-source hits of similar rank.
func reciprocalRankFusion(list1, list2 []scoredChunk, k int) []scoredChunk {
	scores := make(map[string]float64)
	order := make([]string, 0, len(list1)+len(list2))

	accumulate := func(list []scoredChunk) {
		for rank, chunk := range list {
			if _, seen := scores[chunk.chunkID]; !seen {
				order = append(order, chunk.chunkID)
			}
			scores[chunk.chunkID] += 1.0 / float64(k+rank+1)
		}
	}
	accumulate(list1)
	accumulate(list2)

	results := make([]scoredChunk, 0, len(order))
	for _, id := range order {
		results = append(results, scoredChunk{
			chunkID: id,
			score:   scores[id],
			source:  domain.RankSourceFused,
		})
	}

	// Stable so equal scores keep first-seen order and identical inputs
	// reproduce identical output.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	return results
}

// hydrate converts chunk IDs to full retrieval candidates. Chunks deleted
// since they were indexed are skipped rather than failing the query.
func (s *RetrievalService) hydrate(ctx context.Context, hits []scoredChunk) ([]domain.RetrievedChunk, error) {
	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.chunkID, err)
		}
		results = append(results, domain.RetrievedChunk{
			Chunk:  *chunk,
			Score:  hit.score,
			Source: hit.source,
		})
	}
	return results, nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
)

// Query pipeline defaults.
const (
	// DefaultRerankTo is the precision pass output size.
	DefaultRerankTo = 5

	// DefaultHistoryWindow is how many recent exchanges accompany a new
	// question into embedding and generation.
	DefaultHistoryWindow = 4

	// Per-stage deadlines. A stuck stage fails its query rather than
	// wedging the surface that issued it.
	DefaultRetrieveTimeout = 15 * time.Second
	DefaultRerankTimeout   = 20 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
)

// Ensure QueryService implements the interface.
var _ driving.AnswerService = (*QueryService)(nil)

// QueryTimeouts bounds each pipeline stage.
type QueryTimeouts struct {
	Retrieve time.Duration
	Rerank   time.Duration
	Generate time.Duration
}

// QueryService runs the full question pipeline: hybrid retrieval, a
// re-ranking precision pass and grounded generation.
type QueryService struct {
	retrieval     *RetrievalService
	reranker      driven.Reranker
	generator     *Generator
	timeouts      QueryTimeouts
	historyWindow int
}

// QueryOption configures the query service.
type QueryOption func(*QueryService)

// WithTimeouts overrides the per-stage deadlines. Zero fields keep their
// defaults.
func WithTimeouts(t QueryTimeouts) QueryOption {
	return func(s *QueryService) {
		if t.Retrieve > 0 {
			s.timeouts.Retrieve = t.Retrieve
		}
		if t.Rerank > 0 {
			s.timeouts.Rerank = t.Rerank
		}
		if t.Generate > 0 {
			s.timeouts.Generate = t.Generate
		}
	}
}

// WithHistoryWindow sets how many recent exchanges travel with a
// question.
func WithHistoryWindow(n int) QueryOption {
	return func(s *QueryService) {
		if n >= 0 {
			s.historyWindow = n
		}
	}
}

// NewQueryService creates a query service. reranker may be nil, in which
// case the fused order is used directly.
func NewQueryService(
	retrieval *RetrievalService,
	reranker driven.Reranker,
	generator *Generator,
	opts ...QueryOption,
) *QueryService {
	s := &QueryService{
		retrieval: retrieval,
		reranker:  reranker,
		generator: generator,
		timeouts: QueryTimeouts{
			Retrieve: DefaultRetrieveTimeout,
			Rerank:   DefaultRerankTimeout,
			Generate: DefaultGenerateTimeout,
		},
		historyWindow: DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask answers a question against the corpus. history is the full
// conversation; only the most recent window accompanies the question.
func (s *QueryService) Ask(
	ctx context.Context, question string, history []domain.Exchange, opts domain.QueryOptions,
) (*domain.GroundedAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	recent := s.recentHistory(history)

	start := time.Now()
	candidates, err := s.retrieve(ctx, question, recent, opts)
	if err != nil {
		return nil, err
	}
	logger.Timing("retrieval", time.Since(start))

	rerankTo := opts.RerankTo
	if rerankTo <= 0 {
		rerankTo = DefaultRerankTo
	}
	start = time.Now()
	candidates = s.rerank(ctx, question, candidates, rerankTo)
	logger.Timing("re-ranking", time.Since(start))

	genCtx, cancel := context.WithTimeout(ctx, s.timeouts.Generate)
	defer cancel()
	start = time.Now()
	answer, err := s.generator.Generate(genCtx, question, recent, candidates)
	if err != nil {
		return nil, err
	}
	logger.Timing("generation", time.Since(start))
	return answer, nil
}

// retrieve runs hybrid retrieval with the history-aware embedding text.
func (s *QueryService) retrieve(
	ctx context.Context, question string, recent []domain.Exchange, opts domain.QueryOptions,
) ([]domain.RetrievedChunk, error) {
	retrieveCtx, cancel := context.WithTimeout(ctx, s.timeouts.Retrieve)
	defer cancel()

	result, err := s.retrieval.RetrieveFor(retrieveCtx, question, embedInput(question, recent), opts)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}

// rerank applies the precision pass. Re-ranking is a quality enhancement:
// on any error the fused order is kept, truncated to k.
func (s *QueryService) rerank(
	ctx context.Context, question string, candidates []domain.RetrievedChunk, k int,
) []domain.RetrievedChunk {
	if len(candidates) == 0 {
		return candidates
	}
	if s.reranker == nil {
		return truncate(candidates, k)
	}

	rerankCtx, cancel := context.WithTimeout(ctx, s.timeouts.Rerank)
	defer cancel()

	reranked, err := s.reranker.Rerank(rerankCtx, question, candidates, k)
	if err != nil {
		logger.Warn("Re-ranking failed, keeping fused order: %v", err)
		return truncate(candidates, k)
	}
	return truncate(reranked, k)
}

// recentHistory returns the trailing window of exchanges.
func (s *QueryService) recentHistory(history []domain.Exchange) []domain.Exchange {
	if s.historyWindow == 0 || len(history) <= s.historyWindow {
		return history
	}
	return history[len(history)-s.historyWindow:]
}

// embedInput builds the text the query embedding is computed from:
// recent exchanges first, then the question, so follow-ups like "what
// about verse five?" embed with the subject they refer to.
func embedInput(question string, recent []domain.Exchange) string {
	if len(recent) == 0 {
		return question
	}
	var sb strings.Builder
	for _, ex := range recent {
		sb.WriteString(ex.Question)
		sb.WriteByte('\n')
		sb.WriteString(ex.Answer)
		sb.WriteByte('\n')
	}
	sb.WriteString(question)
	return sb.String()
}

func truncate(chunks []domain.RetrievedChunk, k int) []domain.RetrievedChunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}

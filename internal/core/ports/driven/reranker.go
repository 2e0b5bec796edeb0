package driven

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// Reranker applies a second, more discriminating relevance judgment to the
// top candidates from hybrid retrieval. It is intentionally a precision
// pass over a small candidate set, never the full corpus.
//
// Implementations must be stable under ties: equal-scored candidates keep
// their incoming relative order so identical inputs reproduce identical
// output. Re-ranking is a quality enhancement, not a correctness
// requirement; on error callers fall back to the input order.
type Reranker interface {
	// Rerank reorders candidates by second-pass relevance and returns at
	// most k of them, best first.
	Rerank(ctx context.Context, query string, candidates []domain.RetrievedChunk, k int) ([]domain.RetrievedChunk, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}

package driving

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// AnswerService answers natural-language questions with generated text
// constrained to retrieved sources.
type AnswerService interface {
	// Ask runs the full query pipeline: hybrid retrieval, re-ranking and
	// grounded generation. history is the conversation context window;
	// its most recent exchanges are prepended to the query's embedding
	// input and to the prompt.
	Ask(ctx context.Context, question string, history []domain.Exchange, opts domain.QueryOptions) (*domain.GroundedAnswer, error)
}

// RetrievalService exposes hybrid retrieval without generation, for
// callers that want ranked sources rather than an answer.
type RetrievalService interface {
	// Retrieve returns the fused, re-ranked candidate set for a query.
	Retrieve(ctx context.Context, query string, opts domain.QueryOptions) (*domain.RetrievalResult, error)
}

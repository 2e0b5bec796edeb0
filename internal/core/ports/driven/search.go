package driven

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// SearchFilter restricts a search primitive to a subset of the corpus.
// Filters are applied before ranking so the result budget is not wasted
// on matches that would be discarded anyway.
type SearchFilter struct {
	// DocumentTypes limits matches to chunks of these document types.
	DocumentTypes []domain.DocumentType

	// DocumentIDs limits matches to specific documents.
	DocumentIDs []string
}

// LexicalHit is one full-text search result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the term-frequency relevance score (higher is better).
	Score float64
}

// LexicalIndex provides full-text keyword search over chunk text.
type LexicalIndex interface {
	// Index adds or updates a chunk in the index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// Delete removes a chunk from the index.
	Delete(ctx context.Context, chunkID string) error

	// Search returns the top matching chunk IDs with scores, best first.
	Search(ctx context.Context, query string, filter SearchFilter, limit int) ([]LexicalHit, error)

	// Close releases resources.
	Close() error
}

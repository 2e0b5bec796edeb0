package driven

import "context"

// VectorHit is one similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score in [0, 1].
	Similarity float64
}

// VectorIndex provides semantic similarity search over chunk embeddings.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk ID.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k nearest neighbours to the query vector.
	// minSimilarity is applied during the scan, before ranking; hits
	// below it never consume the result budget.
	Search(ctx context.Context, query []float32, filter SearchFilter, minSimilarity float64, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

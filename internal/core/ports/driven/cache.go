package driven

import "context"

// EmbeddingCache caches embedding vectors keyed by content hash.
// It is an explicit injected collaborator, never ambient global state,
// so tests can substitute a no-op cache. Implementations define their own
// eviction policy (e.g. TTL).
type EmbeddingCache interface {
	// Get returns the cached vector for key, if present.
	Get(ctx context.Context, key string) ([]float32, bool)

	// Set stores a vector under key.
	Set(ctx context.Context, key string, embedding []float32)
}

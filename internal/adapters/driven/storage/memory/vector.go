package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// chunkMeta is the metadata filtered searches need per chunk.
type chunkMeta struct {
	documentID string
	docType    string
}

// VectorIndex is an in-memory brute-force cosine similarity index.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string][]float32

	// meta is optional filter metadata registered via SetMetadata.
	meta map[string]chunkMeta
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		entries: make(map[string][]float32),
		meta:    make(map[string]chunkMeta),
	}
}

// Add inserts or replaces the vector for the given chunk ID.
func (x *VectorIndex) Add(_ context.Context, chunkID string, embedding []float32) error {
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[chunkID] = vec
	return nil
}

// SetMetadata registers the document ID and type for a chunk so filtered
// searches can exclude it. Unregistered chunks pass every filter.
func (x *VectorIndex) SetMetadata(chunkID, documentID, docType string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.meta[chunkID] = chunkMeta{documentID: documentID, docType: docType}
}

// Delete removes a vector from the index.
func (x *VectorIndex) Delete(_ context.Context, chunkID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, chunkID)
	delete(x.meta, chunkID)
	return nil
}

// Search scans all vectors and returns the k most similar above the
// floor. The floor is applied during the scan so rejected vectors never
// consume the result budget.
func (x *VectorIndex) Search(_ context.Context, query []float32, filter driven.SearchFilter, minSimilarity float64, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []driven.VectorHit
	for id, vec := range x.entries {
		if !x.metaMatches(id, filter) {
			continue
		}
		sim := CosineSimilarity(query, vec)
		if sim < minSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases resources. A no-op for the in-memory index.
func (x *VectorIndex) Close() error {
	return nil
}

func (x *VectorIndex) metaMatches(chunkID string, filter driven.SearchFilter) bool {
	m, ok := x.meta[chunkID]
	if !ok {
		return true
	}
	if len(filter.DocumentTypes) > 0 {
		found := false
		for _, t := range filter.DocumentTypes {
			if m.docType == string(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.DocumentIDs) > 0 {
		found := false
		for _, id := range filter.DocumentIDs {
			if m.documentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// clamped to [0, 1]. Mismatched dimensions score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

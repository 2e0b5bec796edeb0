package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure LexicalIndex implements the interface.
var _ driven.LexicalIndex = (*LexicalIndex)(nil)

// indexedChunk is one chunk's lexical index entry.
type indexedChunk struct {
	documentID string
	docType    domain.DocumentType
	terms      map[string]int
	length     int
}

// LexicalIndex is an in-memory term-frequency index. Scoring is plain
// normalised term frequency, a stand-in for the SQLite FTS5 bm25 ranking
// with the same ordering behaviour on small corpora.
type LexicalIndex struct {
	mu     sync.RWMutex
	chunks map[string]indexedChunk
}

// NewLexicalIndex creates an empty in-memory lexical index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{chunks: make(map[string]indexedChunk)}
}

// Index adds or updates a chunk.
func (x *LexicalIndex) Index(_ context.Context, chunk domain.Chunk) error {
	terms := tokenize(chunk.Content)
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks[chunk.ID] = indexedChunk{
		documentID: chunk.DocumentID,
		docType:    chunk.Citation.Kind,
		terms:      counts,
		length:     len(terms),
	}
	return nil
}

// Delete removes a chunk from the index.
func (x *LexicalIndex) Delete(_ context.Context, chunkID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.chunks, chunkID)
	return nil
}

// Search returns the best matching chunks for the query terms.
func (x *LexicalIndex) Search(_ context.Context, query string, filter driven.SearchFilter, limit int) ([]driven.LexicalHit, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || limit <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []driven.LexicalHit
	for id, entry := range x.chunks {
		if !matchesFilter(entry, filter) {
			continue
		}
		score := 0.0
		for _, term := range queryTerms {
			if n := entry.terms[term]; n > 0 {
				score += float64(n) / float64(entry.length)
			}
		}
		if score > 0 {
			hits = append(hits, driven.LexicalHit{ChunkID: id, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases resources. A no-op for the in-memory index.
func (x *LexicalIndex) Close() error {
	return nil
}

func matchesFilter(entry indexedChunk, filter driven.SearchFilter) bool {
	if len(filter.DocumentTypes) > 0 {
		found := false
		for _, t := range filter.DocumentTypes {
			if entry.docType == t {
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
			if entry.documentID == id {
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

// tokenize lowercases and splits on non-letter, non-digit runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r < 128
	})
}

package driven

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// Chunker splits raw document text into citation-addressable chunks.
//
// Citations are derived purely from the source structure. If the structure
// is malformed such that a citation cannot be derived, the chunker fails
// the whole document rather than emitting uncited chunks.
type Chunker interface {
	// Type returns the document type this chunker handles.
	Type() domain.DocumentType

	// Chunk splits text into ordered chunks with derived citations.
	// Positions are assigned sequentially from zero.
	Chunk(ctx context.Context, doc *domain.Document, text string) ([]domain.Chunk, error)
}

// ChunkerRegistry selects the chunker for a document type.
type ChunkerRegistry interface {
	// ForType returns the chunker registered for t.
	ForType(t domain.DocumentType) (Chunker, error)
}

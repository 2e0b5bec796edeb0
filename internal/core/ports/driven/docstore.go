package driven

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata, chunk text and embeddings.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document, cascading deletion of its
	// chunks.
	DeleteDocument(ctx context.Context, id string) error

	// UpdateStatus records a lifecycle transition and its error detail.
	// Implementations reject transitions domain.DocumentStatus forbids.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, detail string) error

	// SaveChunks stores chunks for a document in one transaction.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// AttachEmbedding sets the vector for a single chunk.
	AttachEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// MarkChunkFailed records a permanent embedding failure for a chunk
	// without affecting its siblings.
	MarkChunkFailed(ctx context.Context, chunkID string) error

	// GetChunks retrieves a document's chunks ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)
}

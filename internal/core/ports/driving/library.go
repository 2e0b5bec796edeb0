package driving

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// LibraryService manages the document library on behalf of admin surfaces.
type LibraryService interface {
	// Add registers an uploaded source file and returns the queued
	// document. It does not start ingestion; callers enqueue separately.
	Add(ctx context.Context, path string, docType domain.DocumentType, title, ownerID string) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and all its chunks from the store and
	// both indexes.
	Delete(ctx context.Context, documentID string) error

	// Reingest resets a failed document to queued so it can be
	// re-triggered. Failed documents are never retried automatically.
	Reingest(ctx context.Context, documentID string) error
}

package driving

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// IngestStatus is a snapshot of one document's ingestion progress.
type IngestStatus struct {
	// DocumentID identifies the document.
	DocumentID string

	// Status is the current lifecycle state.
	Status domain.DocumentStatus

	// ChunksTotal is the number of chunks produced, once chunking has
	// run.
	ChunksTotal int

	// ChunksEmbedded is the number of chunks with vectors attached.
	ChunksEmbedded int

	// Error holds the failure detail when Status is failed.
	Error string
}

// IngestOrchestrator runs the ingestion pipeline on a background worker
// pool, one document's pipeline instance per task. Multiple documents
// process concurrently; chunks within one document are processed in
// position order so partial-failure reporting can point at a specific
// offset.
type IngestOrchestrator interface {
	// Start launches the worker pool. Workers run until Close.
	Start(ctx context.Context) error

	// Enqueue schedules a document for ingestion. The document must be
	// in the queued state, or failed (an admin re-trigger).
	Enqueue(ctx context.Context, documentID string) error

	// Status returns the current ingestion status for a document.
	Status(ctx context.Context, documentID string) (*IngestStatus, error)

	// Events returns the status channel. Every lifecycle transition is
	// pushed to it; collaborators stream it to the admin surface.
	Events() <-chan IngestStatus

	// Close stops the workers after in-flight documents finish.
	Close() error
}

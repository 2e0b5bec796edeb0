package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService manages the document library: registration, listing,
// deletion and the admin re-trigger for failed ingestions.
type LibraryService struct {
	docStore driven.DocumentStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
}

// NewLibraryService creates a library service.
func NewLibraryService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
) *LibraryService {
	return &LibraryService{docStore: docStore, lexical: lexical, vector: vector}
}

// Add registers a source file as a queued document. Ingestion does not
// start here; the caller enqueues the returned document separately.
func (s *LibraryService) Add(
	ctx context.Context, path string, docType domain.DocumentType, title, ownerID string,
) (*domain.Document, error) {
	if !docType.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidInput, docType)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: source file: %w", domain.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          uuid.New().String(),
		Title:       title,
		Type:        docType,
		StoragePath: path,
		Status:      domain.StatusQueued,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("Registered %s document %q (%s)", docType, title, doc.ID)
	return doc, nil
}

// Get retrieves a document by ID.
func (s *LibraryService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all documents.
func (s *LibraryService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Delete removes a document from the store and evicts its chunks from
// both indexes. Deletion is the only exit from a terminal state.
func (s *LibraryService) Delete(ctx context.Context, documentID string) error {
	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load chunks for deletion: %w", err)
	}

	for _, chunk := range chunks {
		if err := s.lexical.Delete(ctx, chunk.ID); err != nil {
			return fmt.Errorf("evict chunk %s from lexical index: %w", chunk.ID, err)
		}
		if err := s.vector.Delete(ctx, chunk.ID); err != nil {
			return fmt.Errorf("evict chunk %s from vector index: %w", chunk.ID, err)
		}
	}

	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Info("Deleted document %s and %d chunks", documentID, len(chunks))
	return nil
}

// Reingest resets a failed document to queued. Only failed documents are
// eligible; nothing re-runs a completed ingestion.
func (s *LibraryService) Reingest(ctx context.Context, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusFailed {
		return fmt.Errorf("%w: cannot re-trigger a %s document", domain.ErrInvalidTransition, doc.Status)
	}
	if err := s.docStore.UpdateStatus(ctx, documentID, domain.StatusQueued, ""); err != nil {
		return fmt.Errorf("reset to queued: %w", err)
	}
	logger.Info("Document %s reset to queued for re-ingestion", documentID)
	return nil
}

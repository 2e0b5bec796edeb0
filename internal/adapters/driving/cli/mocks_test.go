package cli

import (
	"context"
	"errors"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
)

// setupTestServices swaps the package-level service handles for mocks
// and returns a cleanup that restores them.
func setupTestServices() func() {
	oldAnswer := answerService
	oldRetrieval := retrievalService
	oldLibrary := libraryService
	oldIngest := ingestService

	answerService = &mockAnswerService{}
	retrievalService = &mockRetrievalService{}
	libraryService = &mockLibraryService{}
	ingestService = &mockIngestService{}

	return func() {
		answerService = oldAnswer
		retrievalService = oldRetrieval
		libraryService = oldLibrary
		ingestService = oldIngest
	}
}

type mockAnswerService struct {
	lastQuestion string
	lastOpts     domain.QueryOptions
}

func (m *mockAnswerService) Ask(_ context.Context, question string, _ []domain.Exchange, opts domain.QueryOptions) (*domain.GroundedAnswer, error) {
	m.lastQuestion = question
	m.lastOpts = opts
	return &domain.GroundedAnswer{
		Text: "Justification is by faith [1].",
		Citations: []domain.CitedChunk{
			{
				Marker:  1,
				ChunkID: "chunk-1",
				Citation: domain.Citation{
					Kind:       domain.DocumentTypeScripture,
					Version:    "KJV",
					Book:       "Romans",
					Chapter:    5,
					VerseStart: 1,
					VerseEnd:   1,
				},
			},
		},
		ModelName: "test-model",
	}, nil
}

type mockAnswerServiceError struct{}

func (m *mockAnswerServiceError) Ask(context.Context, string, []domain.Exchange, domain.QueryOptions) (*domain.GroundedAnswer, error) {
	return nil, errors.New("mock answer error")
}

type mockRetrievalService struct {
	lastQuery string
	lastOpts  domain.QueryOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts domain.QueryOptions) (*domain.RetrievalResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return &domain.RetrievalResult{
		Query: query,
		Chunks: []domain.RetrievedChunk{
			{
				Chunk: domain.Chunk{
					ID:         "chunk-1",
					DocumentID: "doc-1",
					Content:    "Therefore being justified by faith, we have peace with God.",
					Citation: domain.Citation{
						Kind:       domain.DocumentTypeScripture,
						Version:    "KJV",
						Book:       "Romans",
						Chapter:    5,
						VerseStart: 1,
						VerseEnd:   1,
					},
				},
				Score:  0.95,
				Source: domain.RankSourceFused,
			},
		},
	}, nil
}

type mockRetrievalServiceError struct{}

func (m *mockRetrievalServiceError) Retrieve(context.Context, string, domain.QueryOptions) (*domain.RetrievalResult, error) {
	return nil, errors.New("mock retrieval error")
}

type mockLibraryService struct {
	docs       []domain.Document
	deletedIDs []string
	reingested []string
}

func (m *mockLibraryService) Add(_ context.Context, path string, docType domain.DocumentType, title, ownerID string) (*domain.Document, error) {
	doc := domain.Document{
		ID:          "doc-new",
		Type:        docType,
		Title:       title,
		StoragePath: path,
		OwnerID:     ownerID,
		Status:      domain.StatusQueued,
	}
	if doc.Title == "" {
		doc.Title = "untitled"
	}
	m.docs = append(m.docs, doc)
	return &doc, nil
}

func (m *mockLibraryService) Get(_ context.Context, documentID string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == documentID {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockLibraryService) List(context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockLibraryService) Delete(_ context.Context, documentID string) error {
	m.deletedIDs = append(m.deletedIDs, documentID)
	return nil
}

func (m *mockLibraryService) Reingest(_ context.Context, documentID string) error {
	m.reingested = append(m.reingested, documentID)
	return nil
}

// mockIngestService completes every enqueued document immediately so
// commands that stream Events do not block.
type mockIngestService struct {
	enqueued []string
	events   chan driving.IngestStatus
}

func (m *mockIngestService) Start(context.Context) error { return nil }

func (m *mockIngestService) Enqueue(_ context.Context, documentID string) error {
	m.enqueued = append(m.enqueued, documentID)
	if m.events == nil {
		m.events = make(chan driving.IngestStatus, 16)
	}
	m.events <- driving.IngestStatus{
		DocumentID:     documentID,
		Status:         domain.StatusCompleted,
		ChunksTotal:    3,
		ChunksEmbedded: 3,
	}
	return nil
}

func (m *mockIngestService) Status(_ context.Context, documentID string) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{DocumentID: documentID, Status: domain.StatusCompleted}, nil
}

func (m *mockIngestService) Events() <-chan driving.IngestStatus {
	if m.events == nil {
		m.events = make(chan driving.IngestStatus, 16)
	}
	return m.events
}

func (m *mockIngestService) Close() error { return nil }

// failingIngestService fails every enqueued document immediately.
type failingIngestService struct {
	events chan driving.IngestStatus
}

func (m *failingIngestService) Start(context.Context) error { return nil }

func (m *failingIngestService) Enqueue(_ context.Context, documentID string) error {
	if m.events == nil {
		m.events = make(chan driving.IngestStatus, 16)
	}
	m.events <- driving.IngestStatus{
		DocumentID: documentID,
		Status:     domain.StatusFailed,
		Error:      "no verse markers found",
	}
	return nil
}

func (m *failingIngestService) Status(_ context.Context, documentID string) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{DocumentID: documentID, Status: domain.StatusFailed}, nil
}

func (m *failingIngestService) Events() <-chan driving.IngestStatus {
	if m.events == nil {
		m.events = make(chan driving.IngestStatus, 16)
	}
	return m.events
}

func (m *failingIngestService) Close() error { return nil }

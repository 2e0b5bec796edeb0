package mcp

import (
	"context"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.GroundedAnswer
	err    error

	question string
	opts     domain.QueryOptions
}

func (m *mockAnswerService) Ask(
	_ context.Context,
	question string,
	_ []domain.Exchange,
	opts domain.QueryOptions,
) (*domain.GroundedAnswer, error) {
	m.question = question
	m.opts = opts
	return m.answer, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error

	opts domain.QueryOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.QueryOptions,
) (*domain.RetrievalResult, error) {
	m.opts = opts
	return m.result, m.err
}

// mockLibraryService is a mock implementation of driving.LibraryService.
type mockLibraryService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockLibraryService) Add(
	_ context.Context, _ string, _ domain.DocumentType, _, _ string,
) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockLibraryService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockLibraryService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockLibraryService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockLibraryService) Reingest(_ context.Context, _ string) error {
	return m.err
}

package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "exegete://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleLibraryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil library service returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		req := makeReadResourceRequest("exegete://library")
		result, err := server.handleLibraryResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns documents successfully", func(t *testing.T) {
		mockLibrary := &mockLibraryService{
			documents: []domain.Document{
				{
					ID:     "doc-1",
					Title:  "Institutes of the Christian Religion",
					Type:   domain.DocumentTypeTreatise,
					Status: domain.StatusCompleted,
				},
				{
					ID:     "doc-2",
					Title:  "KJV",
					Type:   domain.DocumentTypeScripture,
					Status: domain.StatusFailed,
					Error:  "chunking failed",
				},
			},
		}
		server := newTestServer(t, &Ports{Library: mockLibrary})

		req := makeReadResourceRequest("exegete://library")
		result, err := server.handleLibraryResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "Institutes of the Christian Religion")
		assert.Contains(t, result.Contents[0].Text, "completed")
		assert.Contains(t, result.Contents[0].Text, "chunking failed")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		mockLibrary := &mockLibraryService{err: errors.New("store offline")}
		server := newTestServer(t, &Ports{Library: mockLibrary})

		req := makeReadResourceRequest("exegete://library")
		_, err := server.handleLibraryResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store offline")
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil library service returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		req := makeReadResourceRequest("exegete://documents/doc-1")
		_, err := server.handleDocumentResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns document status", func(t *testing.T) {
		mockLibrary := &mockLibraryService{
			document: &domain.Document{
				ID:     "doc-1",
				Title:  "Confessions",
				Type:   domain.DocumentTypeTreatise,
				Status: domain.StatusProcessing,
			},
		}
		server := newTestServer(t, &Ports{Library: mockLibrary})

		req := makeReadResourceRequest("exegete://documents/doc-1")
		result, err := server.handleDocumentResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "Confessions")
		assert.Contains(t, result.Contents[0].Text, "processing")
	})

	t.Run("malformed URI returns not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Library: &mockLibraryService{}})

		req := makeReadResourceRequest("exegete://library/doc-1")
		_, err := server.handleDocumentResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns error on get failure", func(t *testing.T) {
		mockLibrary := &mockLibraryService{err: errors.New("not found")}
		server := newTestServer(t, &Ports{Library: mockLibrary})

		req := makeReadResourceRequest("exegete://documents/doc-1")
		_, err := server.handleDocumentResource(ctx, req)

		require.Error(t, err)
	})
}

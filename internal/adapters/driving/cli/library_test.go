package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

func TestLibraryCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range libraryCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"add", "list", "remove", "reingest"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestLibraryAddCmd_RequiresTypeFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"library", "add", "/tmp/kjv.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "type")
}

func TestLibraryAddCmd_RegistersQueuedDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"library", "add", "--type", "scripture", "--title", "KJV Bible", "/tmp/kjv.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
		libraryAddType = ""
		libraryAddTitle = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Added scripture document "KJV Bible"`)
	assert.Contains(t, buf.String(), "exegete ingest")

	mock := libraryService.(*mockLibraryService)
	require.Len(t, mock.docs, 1)
	assert.Equal(t, domain.DocumentTypeScripture, mock.docs[0].Type)
	assert.Equal(t, domain.StatusQueued, mock.docs[0].Status)
}

func TestLibraryListCmd_EmptyLibrary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"library", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Library is empty")
}

func TestLibraryListCmd_ShowsFailedError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	libraryService.(*mockLibraryService).docs = []domain.Document{
		{ID: "doc-1", Type: domain.DocumentTypeTreatise, Title: "Institutes", Status: domain.StatusFailed, Error: "chunking failed at offset 10"},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"library", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Institutes")
	assert.Contains(t, buf.String(), "error: chunking failed at offset 10")
}

func TestLibraryRemoveCmd_DeletesDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"library", "remove", "doc-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Removed document doc-1")
	assert.Equal(t, []string{"doc-1"}, libraryService.(*mockLibraryService).deletedIDs)
}

func TestLibraryReingestCmd_ResetsDocument(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"library", "reingest", "doc-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "queued for re-ingestion")
	assert.Equal(t, []string{"doc-1"}, libraryService.(*mockLibraryService).reingested)
}

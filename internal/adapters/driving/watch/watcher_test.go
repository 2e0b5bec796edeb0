package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
)

type recordingLibrary struct {
	mu    sync.Mutex
	added []addCall
	err   error
}

type addCall struct {
	path    string
	docType domain.DocumentType
}

func (r *recordingLibrary) Add(_ context.Context, path string, docType domain.DocumentType, _, _ string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.added = append(r.added, addCall{path: path, docType: docType})
	return &domain.Document{ID: "doc-" + filepath.Base(path), Title: filepath.Base(path)}, nil
}

func (r *recordingLibrary) Get(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingLibrary) List(_ context.Context) ([]domain.Document, error) { return nil, nil }
func (r *recordingLibrary) Delete(_ context.Context, _ string) error          { return nil }
func (r *recordingLibrary) Reingest(_ context.Context, _ string) error        { return nil }

func (r *recordingLibrary) calls() []addCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]addCall, len(r.added))
	copy(out, r.added)
	return out
}

type recordingIngest struct {
	mu       sync.Mutex
	enqueued []string
}

func (r *recordingIngest) Start(_ context.Context) error { return nil }

func (r *recordingIngest) Enqueue(_ context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, documentID)
	return nil
}

func (r *recordingIngest) Status(_ context.Context, _ string) (*driving.IngestStatus, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingIngest) Events() <-chan driving.IngestStatus { return nil }
func (r *recordingIngest) Close() error                        { return nil }

func (r *recordingIngest) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.enqueued))
	copy(out, r.enqueued)
	return out
}

func intakeDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "scripture"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "treatise"), 0755))
	return root
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcherRegistersAndQueuesNewFile(t *testing.T) {
	root := intakeDirs(t)
	library := &recordingLibrary{}
	ingest := &recordingIngest{}

	w, err := NewWatcher(root, "admin", library, ingest)
	require.NoError(t, err)
	defer w.Stop()
	w.Start(context.Background())

	path := filepath.Join(root, "treatise", "confessions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Of Memory"), 0644))

	waitFor(t, func() bool { return len(ingest.ids()) == 1 })

	calls := library.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, path, calls[0].path)
	assert.Equal(t, domain.DocumentTypeTreatise, calls[0].docType)
	assert.Equal(t, []string{"doc-confessions.txt"}, ingest.ids())
}

func TestWatcherTypeFromSubdirectory(t *testing.T) {
	root := intakeDirs(t)
	library := &recordingLibrary{}
	ingest := &recordingIngest{}

	w, err := NewWatcher(root, "admin", library, ingest)
	require.NoError(t, err)
	defer w.Stop()
	w.Start(context.Background())

	path := filepath.Join(root, "scripture", "kjv.txt")
	require.NoError(t, os.WriteFile(path, []byte("Genesis 1:1 In the beginning"), 0644))

	waitFor(t, func() bool { return len(library.calls()) == 1 })
	assert.Equal(t, domain.DocumentTypeScripture, library.calls()[0].docType)
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	root := intakeDirs(t)
	library := &recordingLibrary{}
	ingest := &recordingIngest{}

	w, err := NewWatcher(root, "admin", library, ingest)
	require.NoError(t, err)
	defer w.Stop()
	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(root, "treatise", "notes.pdf"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "treatise", "real.txt"), []byte("x"), 0644))

	waitFor(t, func() bool { return len(library.calls()) == 1 })
	assert.Equal(t, filepath.Join(root, "treatise", "real.txt"), library.calls()[0].path)
}

func TestWatcherDebouncesWriteBursts(t *testing.T) {
	root := intakeDirs(t)
	library := &recordingLibrary{}
	ingest := &recordingIngest{}

	w, err := NewWatcher(root, "admin", library, ingest)
	require.NoError(t, err)
	defer w.Stop()
	w.Start(context.Background())

	path := filepath.Join(root, "treatise", "institutes.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chapter text\n")
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	waitFor(t, func() bool { return len(library.calls()) >= 1 })
	// The burst of writes collapses into a single intake.
	time.Sleep(debounceDelay + 500*time.Millisecond)
	assert.Len(t, library.calls(), 1)
}

func TestNewWatcherMissingTypeDirFails(t *testing.T) {
	root := t.TempDir() // no scripture/ or treatise/ subdirectories

	_, err := NewWatcher(root, "admin", &recordingLibrary{}, &recordingIngest{})
	require.Error(t, err)
}

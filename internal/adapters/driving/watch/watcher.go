// Package watch provides a filesystem intake watcher. Files dropped into
// the intake directory are registered in the library and queued for
// ingestion automatically, with the document type taken from the
// subdirectory the file lands in.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
)

// debounceDelay is how long a file must be quiet before intake. Uploads
// arrive as a burst of write events; acting on the last one avoids
// ingesting half-copied files.
const debounceDelay = 2 * time.Second

// Subdirectory names map to document types.
var typeDirs = map[string]domain.DocumentType{
	"scripture": domain.DocumentTypeScripture,
	"treatise":  domain.DocumentTypeTreatise,
	"other":     domain.DocumentTypeOther,
}

// intakeExtensions are the file types accepted from the intake directory.
var intakeExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Watcher monitors the intake directory and feeds new files into the
// library and the ingestion queue.
type Watcher struct {
	watcher  *fsnotify.Watcher
	library  driving.LibraryService
	ingest   driving.IngestOrchestrator
	rootDir  string
	ownerID  string
	stopChan chan struct{}

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// NewWatcher creates a watcher over rootDir. The directory must contain
// one subdirectory per document type ("scripture", "treatise", "other");
// files
// dropped directly into rootDir are ignored.
func NewWatcher(rootDir, ownerID string, library driving.LibraryService, ingest driving.IngestOrchestrator) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		library:  library,
		ingest:   ingest,
		rootDir:  rootDir,
		ownerID:  ownerID,
		stopChan: make(chan struct{}),
		debounce: make(map[string]*time.Timer),
	}

	for dir := range typeDirs {
		path := filepath.Join(rootDir, dir)
		if err := fsWatcher.Add(path); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}

	return w, nil
}

// Start launches the watch loop. It returns immediately; events are
// handled on a background goroutine until Stop.
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
	logger.Info("Watching intake directory %s", w.rootDir)
}

// Stop ends the watch loop and releases the filesystem watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.watcher.Close()
	logger.Info("Stopped intake watcher")
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !intakeExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Intake watcher error: %v", err)
		}
	}
}

// schedule (re)arms the debounce timer for a path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.debounce[path]; exists {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.intake(ctx, path)
	})
}

// intake registers one settled file and queues it for ingestion.
func (w *Watcher) intake(ctx context.Context, path string) {
	docType, ok := typeDirs[filepath.Base(filepath.Dir(path))]
	if !ok {
		logger.Warn("Ignoring %s: not in a typed intake subdirectory", path)
		return
	}

	doc, err := w.library.Add(ctx, path, docType, "", w.ownerID)
	if err != nil {
		logger.Warn("Intake of %s failed: %v", path, err)
		return
	}
	logger.Info("Registered %s document %q (%s)", docType, doc.Title, doc.ID)

	if err := w.ingest.Enqueue(ctx, doc.ID); err != nil {
		logger.Warn("Queueing document %s failed: %v", doc.ID, err)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
	"github.com/exegete-labs/exegete/internal/logger"
	"github.com/exegete-labs/exegete/internal/retry"
)

// Ingestion defaults.
const (
	// DefaultWorkers is the number of concurrent document pipelines.
	DefaultWorkers = 2

	// DefaultEmbedBatchSize is the number of chunk texts sent to the
	// embedding provider per request. Providers cap batch sizes; 100 is
	// within every supported provider's limit.
	DefaultEmbedBatchSize = 100

	// queueCapacity bounds the pending-document queue.
	queueCapacity = 64

	// eventBuffer bounds the status event channel. Events beyond the
	// buffer are dropped rather than blocking the pipeline.
	eventBuffer = 256
)

// Ensure IngestService implements the interface.
var _ driving.IngestOrchestrator = (*IngestService)(nil)

// IngestService runs the ingestion pipeline on a background worker pool.
// Each worker owns one document's pipeline instance end to end: read,
// chunk, embed, index. Multiple documents process concurrently; chunks
// within a document are processed in position order so failure reporting
// can name a specific offset.
type IngestService struct {
	docStore    driven.DocumentStore
	chunkers    driven.ChunkerRegistry
	embedder    driven.EmbeddingService
	cache       driven.EmbeddingCache
	lexical     driven.LexicalIndex
	vector      driven.VectorIndex
	normalisers driven.NormaliserRegistry
	policy      retry.Policy
	workers     int
	batchSize   int

	jobs   chan string
	events chan driving.IngestStatus

	mu       sync.Mutex
	enqueued map[string]bool

	wg      sync.WaitGroup
	started bool
	cancel  context.CancelFunc
}

// IngestOption configures the orchestrator.
type IngestOption func(*IngestService)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithEmbedBatchSize sets the embedding request batch size.
func WithEmbedBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetryPolicy overrides the embedding retry policy.
func WithRetryPolicy(p retry.Policy) IngestOption {
	return func(s *IngestService) { s.policy = p }
}

// WithNormalisers sets the source-text cleanup registry. Without one,
// raw file contents go to the chunker untouched.
func WithNormalisers(r driven.NormaliserRegistry) IngestOption {
	return func(s *IngestService) { s.normalisers = r }
}

// NewIngestService creates the ingestion orchestrator. cache may be nil.
func NewIngestService(
	docStore driven.DocumentStore,
	chunkers driven.ChunkerRegistry,
	embedder driven.EmbeddingService,
	cache driven.EmbeddingCache,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:  docStore,
		chunkers:  chunkers,
		embedder:  embedder,
		cache:     cache,
		lexical:   lexical,
		vector:    vector,
		policy:    retry.Default(),
		workers:   DefaultWorkers,
		batchSize: DefaultEmbedBatchSize,
		jobs:      make(chan string, queueCapacity),
		events:    make(chan driving.IngestStatus, eventBuffer),
		enqueued:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the worker pool.
func (s *IngestService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("ingest orchestrator already started")
	}
	s.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx, i)
	}
	logger.Info("Ingestion pool started with %d workers", s.workers)
	return nil
}

// Enqueue schedules a document for ingestion. The document must be
// queued, or failed for an admin re-trigger; a failed document is reset
// to queued before scheduling.
func (s *IngestService) Enqueue(ctx context.Context, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	switch doc.Status {
	case domain.StatusQueued:
	case domain.StatusFailed:
		if err := s.docStore.UpdateStatus(ctx, documentID, domain.StatusQueued, ""); err != nil {
			return fmt.Errorf("reset failed document: %w", err)
		}
	default:
		return fmt.Errorf("%w: document %s is %s", domain.ErrIngestInProgress, documentID, doc.Status)
	}

	s.mu.Lock()
	if s.enqueued[documentID] {
		s.mu.Unlock()
		return fmt.Errorf("%w: document %s already scheduled", domain.ErrIngestInProgress, documentID)
	}
	s.enqueued[documentID] = true
	s.mu.Unlock()

	select {
	case s.jobs <- documentID:
		logger.Debug("Enqueued document %s", documentID)
		return nil
	case <-ctx.Done():
		s.clearEnqueued(documentID)
		return ctx.Err()
	}
}

// Status returns the current ingestion status for a document.
func (s *IngestService) Status(ctx context.Context, documentID string) (*driving.IngestStatus, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	status := &driving.IngestStatus{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Error:      doc.Error,
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	status.ChunksTotal = len(chunks)
	for i := range chunks {
		if chunks[i].HasEmbedding() {
			status.ChunksEmbedded++
		}
	}
	return status, nil
}

// Events returns the status channel. Every lifecycle transition is
// pushed to it.
func (s *IngestService) Events() <-chan driving.IngestStatus {
	return s.events
}

// Close stops the workers after in-flight documents finish.
func (s *IngestService) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	close(s.jobs)
	s.wg.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	close(s.events)
	return nil
}

// worker drains the job queue until it closes.
func (s *IngestService) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	for documentID := range s.jobs {
		if ctx.Err() != nil {
			s.clearEnqueued(documentID)
			continue
		}
		logger.Debug("Worker %d picked up document %s", id, documentID)
		s.process(ctx, documentID)
		s.clearEnqueued(documentID)
	}
}

func (s *IngestService) clearEnqueued(documentID string) {
	s.mu.Lock()
	delete(s.enqueued, documentID)
	s.mu.Unlock()
}

// process runs one document's pipeline end to end. Any stage failure
// moves the document to failed with a detail naming what broke; it never
// stays in processing.
func (s *IngestService) process(ctx context.Context, documentID string) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		logger.Warn("Ingest: document %s vanished before processing: %v", documentID, err)
		return
	}

	if err := s.transition(ctx, doc, domain.StatusProcessing, ""); err != nil {
		logger.Warn("Ingest: cannot start %s: %v", documentID, err)
		return
	}

	chunks, err := s.chunkDocument(ctx, doc)
	if err != nil {
		s.fail(ctx, doc, fmt.Sprintf("chunking: %v", err))
		return
	}
	s.emit(driving.IngestStatus{
		DocumentID:  doc.ID,
		Status:      domain.StatusProcessing,
		ChunksTotal: len(chunks),
	})

	embedded, err := s.embedChunks(ctx, doc, chunks)
	if err != nil {
		s.fail(ctx, doc, err.Error())
		return
	}

	if err := s.transition(ctx, doc, domain.StatusCompleted, ""); err != nil {
		logger.Warn("Ingest: completion transition for %s failed: %v", doc.ID, err)
		return
	}
	s.emit(driving.IngestStatus{
		DocumentID:     doc.ID,
		Status:         domain.StatusCompleted,
		ChunksTotal:    len(chunks),
		ChunksEmbedded: embedded,
	})
	logger.Info("Document %s completed: %d chunks embedded", doc.ID, embedded)
}

// chunkDocument reads the source and splits it. A re-triggered document
// that already has chunks keeps them; only missing vectors are recomputed.
func (s *IngestService) chunkDocument(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	existing, err := s.docStore.GetChunks(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load existing chunks: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Document %s already has %d chunks, reusing", doc.ID, len(existing))
		return existing, nil
	}

	chunker, err := s.chunkers.ForType(doc.Type)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	text := string(raw)
	if s.normalisers != nil {
		text, err = s.normalisers.ForPath(doc.StoragePath).Normalise(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("normalise source: %w", err)
		}
	}

	chunks, err := chunker.Chunk(ctx, doc, text)
	if err != nil {
		return nil, err
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}
	logger.Debug("Document %s chunked into %d pieces", doc.ID, len(chunks))
	return chunks, nil
}

// embedChunks embeds every chunk lacking a vector, in position order and
// provider-sized batches, then indexes each chunk in both indexes. A
// batch that fails after retries fails the document, naming the first
// affected position. Cancellation is honoured between batches so a
// shutdown never abandons a half-written batch.
func (s *IngestService) embedChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (int, error) {
	pending := make([]int, 0, len(chunks))
	embedded := 0
	for i := range chunks {
		if chunks[i].HasEmbedding() {
			embedded++
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += s.batchSize {
		if ctx.Err() != nil {
			return embedded, fmt.Errorf("embedding interrupted at position %d: %w",
				chunks[pending[start]].Position, ctx.Err())
		}

		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		vectors, err := s.embedBatch(ctx, batch, chunks)
		if err != nil {
			pos := chunks[batch[0]].Position
			for _, idx := range batch {
				if markErr := s.docStore.MarkChunkFailed(ctx, chunks[idx].ID); markErr != nil {
					logger.Warn("Mark chunk %s failed: %v", chunks[idx].ID, markErr)
				}
			}
			return embedded, fmt.Errorf("embedding failed at chunk position %d: %v", pos, err)
		}

		for bi, idx := range batch {
			chunk := &chunks[idx]
			chunk.Embedding = vectors[bi]
			if err := s.docStore.AttachEmbedding(ctx, chunk.ID, vectors[bi]); err != nil {
				return embedded, fmt.Errorf("attach embedding at position %d: %v", chunk.Position, err)
			}
			if err := s.vector.Add(ctx, chunk.ID, vectors[bi]); err != nil {
				return embedded, fmt.Errorf("vector index at position %d: %v", chunk.Position, err)
			}
			if err := s.lexical.Index(ctx, *chunk); err != nil {
				return embedded, fmt.Errorf("lexical index at position %d: %v", chunk.Position, err)
			}
			embedded++
		}
		s.emit(driving.IngestStatus{
			DocumentID:     doc.ID,
			Status:         domain.StatusProcessing,
			ChunksTotal:    len(chunks),
			ChunksEmbedded: embedded,
		})
	}
	return embedded, nil
}

// embedBatch embeds one batch under the retry policy, serving individual
// texts from the cache where possible.
func (s *IngestService) embedBatch(ctx context.Context, batch []int, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(batch))
	missing := make([]int, 0, len(batch))
	texts := make([]string, 0, len(batch))

	model := s.embedder.ModelName()
	for bi, idx := range batch {
		if s.cache != nil {
			if vec, ok := s.cache.Get(ctx, EmbeddingCacheKey(model, chunks[idx].Content)); ok {
				vectors[bi] = vec
				continue
			}
		}
		missing = append(missing, bi)
		texts = append(texts, chunks[idx].Content)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	var fresh [][]float32
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		fresh, embedErr = s.embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(fresh) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			domain.ErrEmbedding, len(fresh), len(texts))
	}

	for i, bi := range missing {
		vectors[bi] = fresh[i]
		if s.cache != nil {
			s.cache.Set(ctx, EmbeddingCacheKey(model, chunks[batch[bi]].Content), fresh[i])
		}
	}
	return vectors, nil
}

// transition records a lifecycle change and emits the event.
func (s *IngestService) transition(ctx context.Context, doc *domain.Document, next domain.DocumentStatus, detail string) error {
	if err := s.docStore.UpdateStatus(ctx, doc.ID, next, detail); err != nil {
		return err
	}
	doc.Status = next
	doc.Error = detail
	s.emit(driving.IngestStatus{DocumentID: doc.ID, Status: next, Error: detail})
	return nil
}

// fail moves a document to failed with the given detail.
func (s *IngestService) fail(ctx context.Context, doc *domain.Document, detail string) {
	logger.Warn("Document %s failed: %s", doc.ID, detail)
	if err := s.transition(ctx, doc, domain.StatusFailed, detail); err != nil {
		logger.Warn("Failure transition for %s did not persist: %v", doc.ID, err)
	}
}

// emit pushes a status event without ever blocking the pipeline.
func (s *IngestService) emit(event driving.IngestStatus) {
	select {
	case s.events <- event:
	default:
		logger.Debug("Event buffer full, dropping status for %s", event.DocumentID)
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/exegete-labs/exegete/internal/adapters/driven/ai"
	"github.com/exegete-labs/exegete/internal/adapters/driven/cache/memory"
	configfile "github.com/exegete-labs/exegete/internal/adapters/driven/config/file"
	rerankllm "github.com/exegete-labs/exegete/internal/adapters/driven/reranker/llm"
	"github.com/exegete-labs/exegete/internal/adapters/driven/storage/sqlite"
	"github.com/exegete-labs/exegete/internal/chunkers"
	"github.com/exegete-labs/exegete/internal/chunkers/scripture"
	"github.com/exegete-labs/exegete/internal/chunkers/treatise"
	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/core/services"
	"github.com/exegete-labs/exegete/internal/normalisers"
	"github.com/exegete-labs/exegete/internal/normalisers/markdown"
	"github.com/exegete-labs/exegete/internal/normalisers/plaintext"
)

// Wired resources that need explicit shutdown.
var (
	wiredStore  *sqlite.Store
	wiredIngest *services.IngestService
)

// wireServices is the composition root: it reads configuration and
// assembles the full service stack behind the package-level port
// variables.
func wireServices(ctx context.Context) error {
	config, err := configfile.NewConfigStore(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	prompts, err := configfile.NewPromptStore(promptDir(config))
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}

	store, err := sqlite.NewStore(flagDataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	wiredStore = store

	embedder, err := ai.NewEmbedder(config)
	if err != nil {
		store.Close()
		return err
	}
	primary, fallback, err := ai.NewLLMs(config)
	if err != nil {
		store.Close()
		return err
	}

	cache := memory.NewEmbeddingCache()

	retrieval := services.NewRetrievalService(
		store.DocumentStore(),
		store.LexicalIndex(),
		store.VectorIndex(),
		embedder,
		cache,
		retrievalOptions(config)...,
	)
	generator := services.NewGenerator(primary, fallback, prompts)
	reranker := rerankllm.New(primary, prompts)

	retrievalService = retrieval
	answerService = services.NewQueryService(retrieval, reranker, generator)
	libraryService = services.NewLibraryService(
		store.DocumentStore(),
		store.LexicalIndex(),
		store.VectorIndex(),
	)

	registry := chunkers.NewRegistry(
		scripture.New(),
		treatise.New(),
		treatise.New(treatise.WithDocumentType(domain.DocumentTypeOther)),
	)
	fallbackNorm := plaintext.New()
	normaliserRegistry := normalisers.NewRegistry(fallbackNorm, fallbackNorm, markdown.New())

	opts := append(
		ingestOptions(config),
		services.WithNormalisers(normaliserRegistry),
	)
	ingest := services.NewIngestService(
		store.DocumentStore(),
		registry,
		embedder,
		cache,
		store.LexicalIndex(),
		store.VectorIndex(),
		opts...,
	)
	if err := ingest.Start(ctx); err != nil {
		store.Close()
		return fmt.Errorf("starting ingestion workers: %w", err)
	}
	wiredIngest = ingest
	ingestService = ingest

	return nil
}

// closeServices shuts down wired resources in reverse order.
func closeServices() {
	if wiredIngest != nil {
		wiredIngest.Close()
		wiredIngest = nil
	}
	if wiredStore != nil {
		wiredStore.Close()
		wiredStore = nil
	}
}

// promptDir resolves the prompt directory from flags or config.
func promptDir(config driven.ConfigStore) string {
	if dir := config.GetString("prompts.dir"); dir != "" {
		return dir
	}
	return "" // PromptStore falls back to ~/.exegete/prompts
}

// retrievalOptions maps config onto retrieval service options.
func retrievalOptions(config driven.ConfigStore) []services.RetrievalOption {
	var opts []services.RetrievalOption
	if floor := config.GetFloat("retrieval.min_similarity"); floor > 0 {
		opts = append(opts, services.WithMinSimilarity(floor))
	}
	return opts
}

// ingestOptions maps config onto ingestion service options.
func ingestOptions(config driven.ConfigStore) []services.IngestOption {
	var opts []services.IngestOption
	if workers := config.GetInt("ingest.workers"); workers > 0 {
		opts = append(opts, services.WithWorkers(workers))
	}
	if batch := config.GetInt("ingest.embed_batch_size"); batch > 0 {
		opts = append(opts, services.WithEmbedBatchSize(batch))
	}
	return opts
}

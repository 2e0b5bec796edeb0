package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates an illegal document lifecycle
	// transition was attempted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// Pipeline error kinds. Each stage failure wraps one of these so
	// callers can distinguish them with errors.Is.

	// ErrChunking indicates the source structure is malformed and a
	// citation could not be derived. The whole document fails; no
	// partial chunks are persisted.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding indicates embedding failed permanently for a chunk
	// after retries were exhausted. Sibling chunks are unaffected.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates the store was unavailable at query time.
	// The query fails fast; no partial results reach the generator.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates both the primary and fallback generation
	// services failed. Surfaced as "temporarily unavailable", never
	// silently downgraded to an ungrounded answer.
	ErrGeneration = errors.New("generation failed")

	// ErrGenerationTimeout indicates retrieval succeeded but the
	// generator exceeded its share of the query's timeout budget.
	// Distinct from ErrRetrieval so callers can tell "no answer" from
	// "slow answer".
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGroundingViolation indicates the generator emitted a citation
	// that was not present in its context, even after one regeneration.
	ErrGroundingViolation = errors.New("grounding violation")

	// ErrIngestInProgress indicates an ingestion run is already active
	// for the document.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// Service availability errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic search and ingestion are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates no generation service is configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

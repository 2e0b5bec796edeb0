package domain

import (
	"strings"
	"time"
	"unicode"
)

// DocumentType classifies an uploaded source and selects its chunking
// strategy.
type DocumentType string

// Recognised document types.
const (
	// DocumentTypeScripture is a structured scripture text with
	// book/chapter/verse markers.
	DocumentTypeScripture DocumentType = "scripture"

	// DocumentTypeTreatise is a long-form work with page or section
	// boundaries.
	DocumentTypeTreatise DocumentType = "treatise"

	// DocumentTypeOther is an unclassified source; it is chunked like a
	// treatise.
	DocumentTypeOther DocumentType = "other"
)

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeScripture, DocumentTypeTreatise, DocumentTypeOther:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// DocumentStatus is the ingestion lifecycle state of a document.
type DocumentStatus string

// Lifecycle states. The permitted transitions are
// queued -> processing -> completed and queued -> processing -> failed,
// plus failed -> queued for an explicit admin re-trigger. Completed is
// final; failed documents are never retried automatically.
const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transition is permitted except
// deletion.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		// Admin re-trigger only. Nothing moves a failed document back
		// to the queue on its own.
		return next == StatusQueued
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents an uploaded theological source.
// It is created on upload and mutated only by the ingestion orchestrator;
// query-time code treats it as read-only.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable name of the work.
	Title string

	// Type selects the chunking strategy.
	Type DocumentType

	// StoragePath is where the raw uploaded text lives on disk.
	StoragePath string

	// Status is the ingestion lifecycle state.
	Status DocumentStatus

	// Error holds the failure detail when Status is failed.
	Error string

	// OwnerID identifies the admin who uploaded the document.
	OwnerID string

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed state.
	UpdatedAt time.Time
}

// Chunk is an atomic retrievable unit belonging to exactly one document.
// It is created by the chunker, its embedding is populated by the embedder,
// and it is immutable thereafter.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// Position is the sequence index, unique within the document.
	Position int

	// Content is the raw text of this chunk.
	Content string

	// Citation locates the chunk in the original source. It is derived
	// purely from source structure, never guessed.
	Citation Citation

	// Embedding is the vector representation. Nil until embedding
	// succeeds.
	Embedding []float32

	// WordCount is the number of words in Content.
	WordCount int

	// EmbedFailed records that embedding this chunk failed permanently.
	// Sibling chunks are unaffected.
	EmbedFailed bool
}

// HasEmbedding returns true once a vector has been attached.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// CountWords returns the number of whitespace-separated words in s.
func CountWords(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

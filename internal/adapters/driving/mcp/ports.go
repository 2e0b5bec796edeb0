package mcp

import (
	"github.com/exegete-labs/exegete/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer runs the full grounded question-answering pipeline.
	Answer driving.AnswerService

	// Retrieval exposes hybrid retrieval without generation.
	Retrieval driving.RetrievalService

	// Library manages the document library. Optional; the library
	// resources degrade to empty listings without it.
	Library driving.LibraryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}

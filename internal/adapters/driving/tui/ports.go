// Package tui provides an interactive chat terminal interface for Exegete.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/exegete-labs/exegete/internal/core/ports/driving"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("tui: answer service is required")

// Ports aggregates the driving port interfaces required by the chat TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer runs the grounded question-answering pipeline.
	Answer driving.AnswerService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}

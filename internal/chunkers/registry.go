package chunkers

import (
	"fmt"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ChunkerRegistry = (*Registry)(nil)

// Registry maps document types to chunkers.
type Registry struct {
	byType map[domain.DocumentType]driven.Chunker
}

// NewRegistry creates a registry from the given chunkers, keyed by their
// declared type.
func NewRegistry(chunkers ...driven.Chunker) *Registry {
	r := &Registry{byType: make(map[domain.DocumentType]driven.Chunker, len(chunkers))}
	for _, c := range chunkers {
		r.byType[c.Type()] = c
	}
	return r
}

// ForType returns the chunker registered for t.
func (r *Registry) ForType(t domain.DocumentType) (driven.Chunker, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidInput, t)
	}
	c, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: no chunker for document type %q", domain.ErrInvalidInput, t)
	}
	return c, nil
}

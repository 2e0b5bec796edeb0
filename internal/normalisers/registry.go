package normalisers

import (
	"path/filepath"
	"strings"

	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps file extensions to normalisers.
type Registry struct {
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates a registry from the given normalisers, keyed by
// their declared extensions. fallback handles everything unrecognised.
func NewRegistry(fallback driven.Normaliser, normalisers ...driven.Normaliser) *Registry {
	r := &Registry{
		byExt:    make(map[string]driven.Normaliser),
		fallback: fallback,
	}
	for _, n := range normalisers {
		for _, ext := range n.Extensions() {
			r.byExt[ext] = n
		}
	}
	return r
}

// ForPath returns the normaliser for the file's extension.
func (r *Registry) ForPath(path string) driven.Normaliser {
	ext := strings.ToLower(filepath.Ext(path))
	if n, ok := r.byExt[ext]; ok {
		return n
	}
	return r.fallback
}

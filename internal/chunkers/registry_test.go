package chunkers

import (
	"errors"
	"testing"

	"github.com/exegete-labs/exegete/internal/chunkers/scripture"
	"github.com/exegete-labs/exegete/internal/chunkers/treatise"
	"github.com/exegete-labs/exegete/internal/core/domain"
)

// fullRegistry builds the registry the way the composition root does:
// one chunker per valid document type.
func fullRegistry() *Registry {
	return NewRegistry(
		scripture.New(),
		treatise.New(),
		treatise.New(treatise.WithDocumentType(domain.DocumentTypeOther)),
	)
}

func TestRegistryCoversEveryValidDocumentType(t *testing.T) {
	r := fullRegistry()
	for _, dt := range []domain.DocumentType{
		domain.DocumentTypeScripture,
		domain.DocumentTypeTreatise,
		domain.DocumentTypeOther,
	} {
		c, err := r.ForType(dt)
		if err != nil {
			t.Fatalf("ForType(%q): %v", dt, err)
		}
		if got := c.Type(); got != dt {
			t.Errorf("ForType(%q) returned chunker of type %q", dt, got)
		}
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	r := fullRegistry()
	if _, err := r.ForType("sermon"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestRegistryReportsMissingChunker(t *testing.T) {
	r := NewRegistry(scripture.New())
	_, err := r.ForType(domain.DocumentTypeOther)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unregistered type, got %v", err)
	}
}

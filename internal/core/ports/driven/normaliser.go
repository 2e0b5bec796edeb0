package driven

import "context"

// Normaliser cleans raw source text before chunking. It removes
// formatting noise (markup, stray control characters, inconsistent line
// endings) without touching the structural markers the chunkers derive
// citations from.
type Normaliser interface {
	// Extensions returns the file extensions this normaliser handles,
	// lower-case with the leading dot.
	Extensions() []string

	// Normalise returns the cleaned text.
	Normalise(ctx context.Context, text string) (string, error)
}

// NormaliserRegistry selects the normaliser for a source file.
type NormaliserRegistry interface {
	// ForPath returns the normaliser for the file's extension. A
	// fallback is always available; ForPath never returns nil.
	ForPath(path string) Normaliser
}

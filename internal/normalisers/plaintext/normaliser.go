// Package plaintext provides the fallback source normaliser. It fixes
// line endings and strips control noise while preserving the markers
// the chunkers derive citations from: verse numbers, "## " section
// headings and form-feed page breaks.
package plaintext

import (
	"context"
	"regexp"
	"strings"

	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text sources.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt"}
}

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Normalise fixes line endings, drops the BOM and removes control
// characters. Newlines, tabs and form feeds survive; form feeds are
// page boundaries.
func (n *Normaliser) Normalise(_ context.Context, text string) (string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\f' {
			continue
		}
		b.WriteRune(r)
	}

	return excessBlankLines.ReplaceAllString(b.String(), "\n\n"), nil
}

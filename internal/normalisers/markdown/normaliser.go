// Package markdown provides the Markdown source normaliser. It strips
// inline markup that would pollute embeddings and keyword indexes while
// keeping the document's structure intact: every heading is rewritten
// to the "## " form the section chunker recognises.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown sources.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquotes  = regexp.MustCompile(`(?m)^>\s*`)
	rules        = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	excessBlanks = regexp.MustCompile(`\n{3,}`)
)

// Normalise strips Markdown formatting. Heading lines of any level are
// rewritten to "## "; numbered list lines are left alone because a
// leading number is a verse marker in scripture sources.
func (n *Normaliser) Normalise(_ context.Context, text string) (string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = codeBlock.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = images.ReplaceAllString(text, "")
	text = links.ReplaceAllString(text, "$1")
	text = headings.ReplaceAllString(text, "## ")
	text = blockquotes.ReplaceAllString(text, "")
	text = rules.ReplaceAllString(text, "")
	text = listMarkers.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "*", "")

	return strings.TrimSpace(excessBlanks.ReplaceAllString(text, "\n\n")), nil
}

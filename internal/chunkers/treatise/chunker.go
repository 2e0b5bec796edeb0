// Package treatise provides the fixed-size window chunker for long-form
// works.
//
// Two source structures are recognised. Texts containing form-feed
// characters are in page mode: each form feed starts a new page, numbered
// from one. Texts that open with a "## " heading are in section mode:
// each heading names the section that follows it. A text with neither
// structure is a single page.
//
// Windows are 1000 characters with a 200-character overlap. The overlap
// never splits a citation unit: when a page or section boundary falls
// inside the overlap region the window is truncated to that boundary and
// the next window starts fresh at it.
package treatise

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// DefaultWindowSize is the window size in characters.
const DefaultWindowSize = 1000

// DefaultOverlap is the number of characters consecutive windows share.
const DefaultOverlap = 200

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits long-form works into character windows.
type Chunker struct {
	docType    domain.DocumentType
	windowSize int
	overlap    int
}

// Option configures the treatise chunker.
type Option func(*Chunker)

// WithWindowSize sets the window size in characters.
func WithWindowSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.windowSize = size
		}
	}
}

// WithOverlap sets the overlap between windows in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithDocumentType changes the type the chunker registers under. Sources
// of type "other" share this strategy.
func WithDocumentType(t domain.DocumentType) Option {
	return func(c *Chunker) {
		if t.IsValid() {
			c.docType = t
		}
	}
}

// New creates a treatise chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		docType:    domain.DocumentTypeTreatise,
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.windowSize {
		c.overlap = c.windowSize / 4
	}
	return c
}

// Type returns the document type this chunker handles.
func (c *Chunker) Type() domain.DocumentType {
	return c.docType
}

// unit is one citation unit: a page or a named section.
type unit struct {
	section string
	page    int
	start   int
	end     int
}

// Chunk splits the text into windows that respect unit boundaries.
func (c *Chunker) Chunk(_ context.Context, doc *domain.Document, text string) ([]domain.Chunk, error) {
	body, units, err := parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}

	work := doc.Title
	if work == "" {
		return nil, fmt.Errorf("%w: document has no title to cite", domain.ErrChunking)
	}

	var chunks []domain.Chunk
	position := 0
	start := 0

	for start < len(body) {
		end := start + c.windowSize
		truncated := false
		if end >= len(body) {
			end = len(body)
		} else {
			// A unit boundary inside the overlap region truncates
			// the window so the overlap cannot split it.
			for _, u := range units {
				if u.end > end-c.overlap && u.end < end {
					end = u.end
					truncated = true
					break
				}
			}
		}

		content := strings.TrimSpace(body[start:end])
		if content != "" {
			u := unitAt(units, start)
			cit := domain.Citation{
				Kind: c.docType,
				Work: work,
			}
			if u.section != "" {
				cit.Section = u.section
			} else {
				cit.Page = u.page
			}
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				Position:   position,
				Content:    content,
				Citation:   cit,
				WordCount:  domain.CountWords(content),
			})
			position++
		}

		if end == len(body) {
			break
		}
		next := end - c.overlap
		if truncated || next <= start {
			next = end
		}
		start = next
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: source is empty", domain.ErrChunking)
	}
	return chunks, nil
}

// parse extracts the citation units from the raw text. The returned body
// is the text with structural markers removed; unit offsets index into it.
func parse(text string) (string, []unit, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("source is empty")
	}

	if strings.ContainsRune(text, '\f') {
		return parsePages(text)
	}
	if hasSectionHeading(text) {
		return parseSections(text)
	}

	// No internal structure: the whole work is page one.
	return text, []unit{{page: 1, start: 0, end: len(text)}}, nil
}

// hasSectionHeading reports whether any line of the text is a "## "
// section heading.
func hasSectionHeading(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if isHeadingLine(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// isHeadingLine reports whether a trimmed line is a section heading,
// including the degenerate nameless form.
func isHeadingLine(trimmed string) bool {
	return trimmed == "##" || strings.HasPrefix(trimmed, "## ")
}

// parsePages splits on form feeds; pages are numbered from one.
func parsePages(text string) (string, []unit, error) {
	pages := strings.Split(text, "\f")
	var body strings.Builder
	units := make([]unit, 0, len(pages))

	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		start := body.Len()
		body.WriteString(page)
		// The form feed separated the pages in the source; keep a
		// newline in its place so adjacent pages do not run together.
		if !strings.HasSuffix(page, "\n") {
			body.WriteByte('\n')
		}
		units = append(units, unit{page: i + 1, start: start, end: body.Len()})
	}
	if len(units) == 0 {
		return "", nil, fmt.Errorf("no page content found")
	}
	return body.String(), units, nil
}

// parseSections splits on "## " heading lines; each heading names the
// unit that follows. Content before the first heading has no derivable
// citation and fails the document.
func parseSections(text string) (string, []unit, error) {
	var body strings.Builder
	var units []unit
	var currentName string
	var currentStart int
	sawHeading := false

	flush := func() error {
		if !sawHeading {
			return nil
		}
		if body.Len() == currentStart {
			return fmt.Errorf("section %q is empty", currentName)
		}
		units = append(units, unit{section: currentName, start: currentStart, end: body.Len()})
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isHeadingLine(trimmed) {
			if err := flush(); err != nil {
				return "", nil, err
			}
			currentName = strings.TrimSpace(strings.TrimPrefix(trimmed, "##"))
			if currentName == "" {
				return "", nil, fmt.Errorf("empty section heading")
			}
			sawHeading = true
			currentStart = body.Len()
			continue
		}
		if !sawHeading {
			if trimmed != "" {
				return "", nil, fmt.Errorf("content precedes the first section heading")
			}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := flush(); err != nil {
		return "", nil, err
	}
	if len(units) == 0 {
		return "", nil, fmt.Errorf("no sections found")
	}
	return body.String(), units, nil
}

// unitAt returns the unit containing offset.
func unitAt(units []unit, offset int) unit {
	for _, u := range units {
		if offset >= u.start && offset < u.end {
			return u
		}
	}
	return units[len(units)-1]
}

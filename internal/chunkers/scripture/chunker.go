// Package scripture provides the verse-window chunker for structured
// scripture texts.
//
// The expected source format is line-oriented:
//
//	#version KJV      optional translation header
//	# John            book heading
//	## 3              chapter heading
//	1 In the ...      verse line: number, space, text
//	2 The same ...
//
// Lines that carry neither a heading nor a verse number continue the
// previous verse. Verses are grouped into windows of five with a
// one-verse stride overlap: consecutive windows from the same chapter
// share exactly one verse. A trailing window shorter than five verses is
// kept rather than dropped or padded.
package scripture

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// DefaultWindowSize is the number of verses per chunk.
const DefaultWindowSize = 5

// DefaultOverlap is the number of verses consecutive windows share.
const DefaultOverlap = 1

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits scripture text into verse windows.
type Chunker struct {
	windowSize int
	overlap    int
}

// Option configures the scripture chunker.
type Option func(*Chunker)

// WithWindowSize sets the number of verses per window.
func WithWindowSize(size int) Option {
	return func(c *Chunker) {
		if size > 1 {
			c.windowSize = size
		}
	}
}

// WithOverlap sets the number of verses shared by consecutive windows.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a scripture chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.windowSize {
		c.overlap = c.windowSize - 1
	}
	return c
}

// Type returns the document type this chunker handles.
func (c *Chunker) Type() domain.DocumentType {
	return domain.DocumentTypeScripture
}

// verse is one parsed verse line.
type verse struct {
	number int
	text   string
}

// chapter is a parsed chapter with its verses in order.
type chapter struct {
	book   string
	number int
	verses []verse
}

// Chunk parses the source structure and emits verse windows.
// Any structural defect that would leave a chunk without a derivable
// citation fails the whole document.
func (c *Chunker) Chunk(_ context.Context, doc *domain.Document, text string) ([]domain.Chunk, error) {
	version, chapters, err := parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChunking, err)
	}

	var chunks []domain.Chunk
	position := 0
	stride := c.windowSize - c.overlap

	for _, ch := range chapters {
		total := len(ch.verses)
		for start := 0; start < total; start += stride {
			end := start + c.windowSize
			if end > total {
				end = total
			}
			window := ch.verses[start:end]

			var sb strings.Builder
			for i, v := range window {
				if i > 0 {
					sb.WriteByte('\n')
				}
				fmt.Fprintf(&sb, "%d %s", v.number, v.text)
			}
			content := sb.String()

			chunks = append(chunks, domain.Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				Position:   position,
				Content:    content,
				Citation: domain.Citation{
					Kind:       domain.DocumentTypeScripture,
					Version:    version,
					Book:       ch.book,
					Chapter:    ch.number,
					VerseStart: window[0].number,
					VerseEnd:   window[len(window)-1].number,
				},
				WordCount: domain.CountWords(content),
			})
			position++

			if end == total {
				break
			}
		}
	}

	return chunks, nil
}

// parse reads the line-oriented scripture format into chapters.
func parse(text string) (version string, chapters []chapter, err error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var book string
	var current *chapter
	line := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		if len(current.verses) == 0 {
			return fmt.Errorf("chapter %d of %s has no verses", current.number, current.book)
		}
		chapters = append(chapters, *current)
		current = nil
		return nil
	}

	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), " \t")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#version "):
			version = strings.TrimSpace(strings.TrimPrefix(trimmed, "#version "))

		case strings.HasPrefix(trimmed, "## "):
			if book == "" {
				return "", nil, fmt.Errorf("line %d: chapter heading before any book heading", line)
			}
			if err := flush(); err != nil {
				return "", nil, err
			}
			num, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")))
			if convErr != nil || num < 1 {
				return "", nil, fmt.Errorf("line %d: malformed chapter heading %q", line, trimmed)
			}
			current = &chapter{book: book, number: num}

		case strings.HasPrefix(trimmed, "# "):
			if err := flush(); err != nil {
				return "", nil, err
			}
			book = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			if book == "" {
				return "", nil, fmt.Errorf("line %d: empty book heading", line)
			}

		default:
			num, rest, ok := splitVerseLine(trimmed)
			if !ok {
				// Continuation of the previous verse.
				if current == nil || len(current.verses) == 0 {
					return "", nil, fmt.Errorf("line %d: text outside any verse", line)
				}
				last := &current.verses[len(current.verses)-1]
				last.text += " " + trimmed
				continue
			}
			if current == nil {
				return "", nil, fmt.Errorf("line %d: verse before any chapter heading", line)
			}
			want := len(current.verses) + 1
			if num != want {
				return "", nil, fmt.Errorf("line %d: verse %d out of sequence in %s %d (expected %d)",
					line, num, current.book, current.number, want)
			}
			current.verses = append(current.verses, verse{number: num, text: rest})
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return "", nil, scanErr
	}
	if err := flush(); err != nil {
		return "", nil, err
	}
	if len(chapters) == 0 {
		return "", nil, fmt.Errorf("no chapters found")
	}
	return version, chapters, nil
}

// splitVerseLine splits "3 For God so loved" into (3, "For God so loved").
func splitVerseLine(s string) (int, string, bool) {
	idx := strings.IndexByte(s, ' ')
	if idx <= 0 {
		return 0, "", false
	}
	num, err := strconv.Atoi(s[:idx])
	if err != nil || num < 1 {
		return 0, "", false
	}
	rest := strings.TrimSpace(s[idx+1:])
	if rest == "" {
		return 0, "", false
	}
	return num, rest, true
}

package domain

import "fmt"

// Citation locates a chunk in its original source. Exactly one of the two
// shapes is populated: scripture citations carry version/book/chapter and a
// verse range, treatise citations carry the work name and a page or section.
//
// A citation must be derivable from the source structure alone. A chunk
// whose citation cannot be derived is a chunking error, not a best-effort
// label.
type Citation struct {
	// Kind matches the owning document's type.
	Kind DocumentType

	// Version is the scripture translation identifier (e.g. "KJV").
	Version string

	// Book is the scripture book name.
	Book string

	// Chapter is the scripture chapter number.
	Chapter int

	// VerseStart and VerseEnd delimit the inclusive verse range.
	VerseStart int
	VerseEnd   int

	// Work is the treatise name.
	Work string

	// Section is the treatise section heading, when the source has
	// section structure.
	Section string

	// Page is the treatise page number, when the source has page
	// structure.
	Page int
}

// IsZero returns true if the citation carries no location at all.
func (c Citation) IsZero() bool {
	return c.Book == "" && c.Work == ""
}

// Valid reports whether the citation is complete for its kind.
func (c Citation) Valid() bool {
	switch c.Kind {
	case DocumentTypeScripture:
		return c.Book != "" && c.Chapter > 0 && c.VerseStart > 0 && c.VerseEnd >= c.VerseStart
	case DocumentTypeTreatise, DocumentTypeOther:
		return c.Work != "" && (c.Section != "" || c.Page > 0)
	default:
		return false
	}
}

// String renders the citation the way it appears in answers, e.g.
// "John 3:1-5 (KJV)" or "Institutes, p. 12" or "Confessions, Of Memory".
func (c Citation) String() string {
	switch c.Kind {
	case DocumentTypeScripture:
		ref := fmt.Sprintf("%s %d:%d", c.Book, c.Chapter, c.VerseStart)
		if c.VerseEnd > c.VerseStart {
			ref = fmt.Sprintf("%s-%d", ref, c.VerseEnd)
		}
		if c.Version != "" {
			ref = fmt.Sprintf("%s (%s)", ref, c.Version)
		}
		return ref
	default:
		if c.Section != "" {
			return fmt.Sprintf("%s, %s", c.Work, c.Section)
		}
		return fmt.Sprintf("%s, p. %d", c.Work, c.Page)
	}
}

// Package domain defines the core business entities for Exegete.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an uploaded theological source with its ingestion lifecycle
//   - Chunk: a citation-addressable retrievable unit within a document
//   - Citation: the verse-range or page/section descriptor of a chunk
//   - RetrievalResult: the ranked candidate set produced for one query
//   - GroundedAnswer: generated text plus the chunks it actually cites
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

// Package chunkers provides the document-type specific chunking
// strategies and the registry that selects between them.
//
// Each chunker derives a citation for every chunk purely from the source
// structure. A source whose structure cannot support citations fails as a
// whole; partial, uncited chunks silently erode citation fidelity
// downstream and are never emitted.
//
// Subpackages:
//   - scripture: verse windows over book/chapter/verse structure
//   - treatise: fixed-size character windows over page/section structure
package chunkers

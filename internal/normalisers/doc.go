// Package normalisers provides source-text cleanup adapters that run
// before chunking. Each normaliser handles a set of file extensions;
// the registry selects one per source file with plain text as the
// fallback.
package normalisers

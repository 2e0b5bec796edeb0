// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: document and chunk persistence
//   - LexicalIndex: full-text term-frequency search over chunk text
//   - VectorIndex: cosine similarity search over chunk embeddings
//   - EmbeddingService: vector generation for chunks and queries
//   - Chunker / ChunkerRegistry: document-type specific chunking
//   - LLMService: generation (a primary and an optional fallback)
//
// # Optional Interfaces
//
//   - Reranker: second-pass relevance; queries degrade to fused order
//   - EmbeddingCache: content-hash keyed cache; a no-op cache is valid
//   - PromptStore: user-editable prompt templates with embedded defaults
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or chunker package
package driven

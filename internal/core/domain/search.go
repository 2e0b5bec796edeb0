package domain

// RankSource tags which search primitive produced a retrieval score.
type RankSource string

// Rank source tags.
const (
	// RankSourceLexical marks a score from full-text keyword search.
	RankSourceLexical RankSource = "lexical"

	// RankSourceSemantic marks a score from vector similarity search.
	RankSourceSemantic RankSource = "semantic"

	// RankSourceFused marks a score produced by reciprocal rank fusion.
	RankSourceFused RankSource = "fused"

	// RankSourceReranked marks a score assigned by the re-ranking pass.
	RankSourceReranked RankSource = "reranked"
)

// RetrievedChunk is one ranked candidate in a retrieval result.
type RetrievedChunk struct {
	// Chunk is the retrieved unit.
	Chunk Chunk

	// Score is the relevance score under Source's scheme.
	Score float64

	// Source tags which ranking produced the score.
	Source RankSource
}

// RetrievalResult is the ordered candidate set for one query. It is
// ephemeral: produced and consumed entirely within a single query's
// execution and never persisted beyond logging.
type RetrievalResult struct {
	// Query is the text the candidates were retrieved for.
	Query string

	// Chunks is ordered best-first.
	Chunks []RetrievedChunk
}

// QueryFilters restricts which chunks a query may retrieve.
type QueryFilters struct {
	// DocumentTypes limits results to documents of these types.
	// Empty means all types.
	DocumentTypes []DocumentType

	// DocumentIDs limits results to specific documents.
	DocumentIDs []string

	// MinSimilarity is the request-supplied similarity floor for
	// semantic search. Zero means use the configured default; when both
	// are present the request value wins.
	MinSimilarity float64
}

// QueryOptions configures one query's retrieval budget.
type QueryOptions struct {
	// Filters restricts the candidate set.
	Filters QueryFilters

	// TopK is the candidate budget for hybrid retrieval.
	// Zero means the configured default.
	TopK int

	// RerankTo is the size of the precision pass output.
	// Zero means the configured default.
	RerankTo int
}

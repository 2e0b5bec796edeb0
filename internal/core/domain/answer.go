package domain

// Exchange is one question/answer pair from a conversation. The most
// recent exchanges form the context window that is prepended to a new
// query's embedding input and to the generation prompt.
type Exchange struct {
	// Question is the user's message.
	Question string

	// Answer is the system's reply.
	Answer string
}

// CitedChunk records one citation actually used in an answer.
type CitedChunk struct {
	// Marker is the bracketed number emitted in the answer text.
	Marker int

	// ChunkID identifies the cited chunk.
	ChunkID string

	// Citation is the chunk's source descriptor.
	Citation Citation
}

// GroundedAnswer is generated text plus the ordered list of chunks it
// cites. Every cited chunk is guaranteed to be a member of the retrieval
// result the generator was given; the generator never introduces chunks
// that were not retrieved.
type GroundedAnswer struct {
	// Text is the generated answer.
	Text string

	// Citations lists the chunks actually cited, in marker order.
	Citations []CitedChunk

	// Insufficient is true when the answer is the explicit
	// "insufficient source material" response rather than generated
	// content.
	Insufficient bool

	// Degraded is true when the fallback generation provider produced
	// the answer after the primary failed.
	Degraded bool

	// ModelName records which model generated the text.
	ModelName string
}

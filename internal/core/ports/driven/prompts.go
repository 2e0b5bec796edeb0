package driven

// Prompt names for the PromptStore.
const (
	// PromptHermeneutic is the fixed interpretive-constraint preamble
	// placed first in every generation prompt.
	PromptHermeneutic = "hermeneutic"

	// PromptRerank is the relevance-scoring prompt used by the LLM
	// re-ranker.
	PromptRerank = "rerank"

	// PromptRegenerate is the corrective instruction used when an
	// answer cited sources outside its context.
	PromptRegenerate = "regenerate"
)

// PromptStore loads prompt templates.
// Implementations fall back to embedded defaults when a user-edited
// template is unavailable.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}

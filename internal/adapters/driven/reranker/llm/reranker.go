// Package llm provides a re-ranker that scores retrieval candidates with
// a language model.
package llm

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// maxScore is the top of the relevance scale the model is asked to use.
const maxScore = 10

// defaultRerankPrompt is the fallback template when no PromptStore is
// configured. It takes the question followed by the numbered passages.
const defaultRerankPrompt = `Score each numbered passage for how well it answers the question, on a scale of 0 to 10. A passage that directly addresses the question scores high; one that merely shares vocabulary scores low.

Question: %s

Passages:
%s

Reply with one line per passage in the form "n: score" and nothing else.`

// excerptLimit bounds how much of each candidate is shown to the model.
const excerptLimit = 600

// Reranker re-scores retrieval candidates with a single LLM call. Each
// candidate is presented as a numbered passage; the model returns a
// relevance score per number. Candidates the model omits keep a zero
// score, and ties preserve the incoming order.
type Reranker struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// New creates an LLM-backed re-ranker. The prompt store may be nil, in
// which case the embedded default template is used.
func New(llm driven.LLMService, prompts driven.PromptStore) *Reranker {
	return &Reranker{llm: llm, prompts: prompts}
}

// Rerank reorders candidates by model-judged relevance and returns at
// most k of them, best first.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RetrievedChunk, k int) ([]domain.RetrievedChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}

	prompt := r.buildPrompt(query, candidates)
	response, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   8 * len(candidates),
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	scores, err := parseScores(response, len(candidates))
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	reranked := make([]domain.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		reranked[i] = domain.RetrievedChunk{
			Chunk:  c.Chunk,
			Score:  scores[i],
			Source: domain.RankSourceReranked,
		}
	}
	// Stable sort keeps the fused order for equal scores.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked[:k], nil
}

// ModelName returns the model identifier for logging.
func (r *Reranker) ModelName() string {
	return r.llm.ModelName()
}

// buildPrompt renders the scoring prompt with numbered passages.
func (r *Reranker) buildPrompt(query string, candidates []domain.RetrievedChunk) string {
	template := defaultRerankPrompt
	if r.prompts != nil {
		if p, err := r.prompts.Load(driven.PromptRerank); err == nil && p != "" {
			template = p
		}
	}

	var passages strings.Builder
	for i, c := range candidates {
		excerpt := c.Chunk.Content
		if len(excerpt) > excerptLimit {
			excerpt = excerpt[:excerptLimit]
		}
		fmt.Fprintf(&passages, "[%d] %s\n%s\n\n", i+1, c.Chunk.Citation.String(), excerpt)
	}
	return fmt.Sprintf(template, query, strings.TrimRight(passages.String(), "\n"))
}

// parseScores extracts "n: score" lines from the model response. Lines
// that do not match the form are skipped; an in-range passage number with
// an unparseable score is an error, as is a response with no scores at
// all.
func parseScores(response string, n int) ([]float64, error) {
	scores := make([]float64, n)
	found := 0

	scanner := bufio.NewScanner(strings.NewReader(response))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "[")
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimSpace(line[:idx]), "]")
		num, err := strconv.Atoi(numPart)
		if err != nil || num < 1 || num > n {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(line[idx+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable score for passage %d: %q", num, line)
		}
		if score < 0 {
			score = 0
		}
		if score > maxScore {
			score = maxScore
		}
		scores[num-1] = score
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("no scores in model response")
	}
	return scores, nil
}

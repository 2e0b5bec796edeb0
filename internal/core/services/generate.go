package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
	"github.com/exegete-labs/exegete/internal/logger"
)

// InsufficientAnswer is the explicit response returned when the retrieved
// sources cannot support an answer. It is a fixed string so surfaces and
// tests can recognise it.
const InsufficientAnswer = "The available sources do not contain sufficient material to answer this question."

// Generation defaults.
const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2
)

// markerPattern matches the bracketed citation markers the model emits.
var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Generator produces answers constrained to retrieved sources. Every
// citation marker in the output must point at a chunk that was in the
// prompt; an answer that cites outside its context is regenerated once
// and rejected if it still violates.
type Generator struct {
	primary  driven.LLMService
	fallback driven.LLMService
	prompts  driven.PromptStore
}

// NewGenerator creates a grounded generator. fallback may be nil.
func NewGenerator(primary, fallback driven.LLMService, prompts driven.PromptStore) *Generator {
	return &Generator{primary: primary, fallback: fallback, prompts: prompts}
}

// Generate answers question from the given candidates. An empty candidate
// set short-circuits to the insufficiency response without a model call.
func (g *Generator) Generate(
	ctx context.Context,
	question string,
	history []domain.Exchange,
	candidates []domain.RetrievedChunk,
) (*domain.GroundedAnswer, error) {
	logger.Section("Grounded Generation")

	if len(candidates) == 0 {
		logger.Info("No candidates retrieved, returning insufficiency response")
		return &domain.GroundedAnswer{Text: InsufficientAnswer, Insufficient: true}, nil
	}

	prompt, err := g.buildPrompt(question, history, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	text, model, degraded, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	markers, violation := validateMarkers(text, len(candidates))
	if violation != nil {
		logger.Warn("Grounding violation, regenerating once: %v", violation)
		text, model, degraded, err = g.regenerate(ctx, prompt, text, violation)
		if err != nil {
			return nil, err
		}
		markers, violation = validateMarkers(text, len(candidates))
		if violation != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrGroundingViolation, violation)
		}
	}

	answer := &domain.GroundedAnswer{
		Text:      text,
		Degraded:  degraded,
		ModelName: model,
	}
	if isInsufficiency(text) {
		answer.Insufficient = true
		return answer, nil
	}

	for _, m := range markers {
		c := candidates[m-1]
		answer.Citations = append(answer.Citations, domain.CitedChunk{
			Marker:   m,
			ChunkID:  c.Chunk.ID,
			Citation: c.Chunk.Citation,
		})
	}
	logger.Info("Answer generated by %s with %d citations", model, len(answer.Citations))
	return answer, nil
}

// buildPrompt assembles the generation prompt in fixed order: interpretive
// preamble, numbered sources, conversation history, question. The order
// never varies so identical inputs produce identical prompts.
func (g *Generator) buildPrompt(
	question string, history []domain.Exchange, candidates []domain.RetrievedChunk,
) (string, error) {
	preamble, err := g.prompts.Load(driven.PromptHermeneutic)
	if err != nil {
		return "", fmt.Errorf("load preamble: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(preamble))
	sb.WriteString("\n\nSources:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n", i+1, c.Chunk.Citation.String(), c.Chunk.Content)
	}
	fmt.Fprintf(&sb, "\nIf the sources above do not support an answer, reply exactly: %q\n", InsufficientAnswer)

	if len(history) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, ex := range history {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", ex.Question, ex.Answer)
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String(), nil
}

// complete runs the prompt against the primary provider and, on failure,
// the identical prompt against the fallback. It returns the text, the
// producing model and whether the fallback produced it.
func (g *Generator) complete(ctx context.Context, prompt string) (string, string, bool, error) {
	opts := driven.GenerateOptions{
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	text, err := g.primary.Generate(ctx, prompt, opts)
	if err == nil {
		return text, g.primary.ModelName(), false, nil
	}
	if ctxErr := timeoutError(ctx, err); ctxErr != nil {
		return "", "", false, ctxErr
	}
	logger.Warn("Primary provider failed: %v", err)

	if g.fallback == nil {
		return "", "", false, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	text, fbErr := g.fallback.Generate(ctx, prompt, opts)
	if fbErr != nil {
		if ctxErr := timeoutError(ctx, fbErr); ctxErr != nil {
			return "", "", false, ctxErr
		}
		return "", "", false, fmt.Errorf("%w: primary: %w; fallback: %w",
			domain.ErrLLMUnavailable, err, fbErr)
	}
	logger.Info("Fallback provider %s produced the answer", g.fallback.ModelName())
	return text, g.fallback.ModelName(), true, nil
}

// regenerate retries once with a corrective instruction naming the
// violation appended to the original prompt.
func (g *Generator) regenerate(
	ctx context.Context, prompt, badAnswer string, violation error,
) (string, string, bool, error) {
	corrective, err := g.prompts.Load(driven.PromptRegenerate)
	if err != nil {
		return "", "", false, fmt.Errorf("%w: load corrective prompt: %w", domain.ErrGeneration, err)
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nPrevious attempt:\n")
	sb.WriteString(badAnswer)
	fmt.Fprintf(&sb, "\n\n%s\nViolation: %s\n", strings.TrimSpace(corrective), violation)

	return g.complete(ctx, sb.String())
}

// timeoutError maps a deadline expiry to the generation timeout error so
// callers can distinguish slowness from provider failure.
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrGenerationTimeout, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// validateMarkers extracts the citation markers from text and checks each
// one points inside the candidate set. It returns the distinct markers in
// ascending order.
func validateMarkers(text string, candidateCount int) ([]int, error) {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("unparseable citation marker %q", m[0])
		}
		if n < 1 || n > candidateCount {
			return nil, fmt.Errorf("citation marker [%d] outside the %d provided sources", n, candidateCount)
		}
		seen[n] = true
	}

	markers := make([]int, 0, len(seen))
	for n := range seen {
		markers = append(markers, n)
	}
	sort.Ints(markers)
	return markers, nil
}

// isInsufficiency reports whether the model declared the sources
// insufficient.
func isInsufficiency(text string) bool {
	return strings.Contains(text, InsufficientAnswer)
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockLexicalIndex implements driven.LexicalIndex.
type mockLexicalIndex struct {
	mu        sync.Mutex
	hits      []driven.LexicalHit
	searchErr error
	indexErr  error
	indexed   []string
	deleted   []string
}

func (m *mockLexicalIndex) Index(_ context.Context, chunk domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, chunk.ID)
	return nil
}

func (m *mockLexicalIndex) Delete(_ context.Context, chunkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, chunkID)
	return nil
}

func (m *mockLexicalIndex) Search(_ context.Context, _ string, _ driven.SearchFilter, limit int) ([]driven.LexicalHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit < len(m.hits) {
		return m.hits[:limit], nil
	}
	return m.hits, nil
}

func (m *mockLexicalIndex) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex.
type mockVectorIndex struct {
	mu        sync.Mutex
	hits      []driven.VectorHit
	searchErr error
	addErr    error
	added     []string
	deleted   []string
}

func (m *mockVectorIndex) Add(_ context.Context, chunkID string, _ []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, chunkID)
	return nil
}

func (m *mockVectorIndex) Delete(_ context.Context, chunkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, chunkID)
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, _ driven.SearchFilter, _ float64, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k < len(m.hits) {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockEmbedder implements driven.EmbeddingService.
type mockEmbedder struct {
	mu       sync.Mutex
	vector   []float32
	embedErr error
	calls    int
	batches  [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, texts)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.vector
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int              { return len(m.vector) }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM implements driven.LLMService. responses are consumed in order;
// the last one repeats.
type mockLLM struct {
	mu        sync.Mutex
	name      string
	responses []string
	err       error
	prompts   []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock llm: no responses configured")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var last string
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return m.Generate(ctx, last, driven.GenerateOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
}

func (m *mockLLM) ModelName() string {
	if m.name != "" {
		return m.name
	}
	return "mock-llm"
}

func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockReranker implements driven.Reranker.
type mockReranker struct {
	result []domain.RetrievedChunk
	err    error
	calls  int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []domain.RetrievedChunk, k int) ([]domain.RetrievedChunk, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := m.result
	if out == nil {
		out = candidates
	}
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (m *mockReranker) ModelName() string { return "mock-rerank" }

// mockPrompts implements driven.PromptStore with fixed templates.
type mockPrompts struct{}

func (mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptHermeneutic:
		return "Answer only from the sources. Cite with [n].", nil
	case driven.PromptRegenerate:
		return "Cite only the numbered sources above.", nil
	case driven.PromptRerank:
		return "Score each source 0-10 for relevance.", nil
	default:
		return "", fmt.Errorf("unknown prompt %q", name)
	}
}

// mockCache implements driven.EmbeddingCache.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	gets    int
	hitsN   int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]float32)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	vec, ok := m.entries[key]
	if ok {
		m.hitsN++
	}
	return vec, ok
}

func (m *mockCache) Set(_ context.Context, key string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = embedding
}

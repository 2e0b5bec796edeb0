// Package ai selects and validates the embedding and generation
// providers from configuration. It is the single place that knows which
// provider adapters exist.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	embedollama "github.com/exegete-labs/exegete/internal/adapters/driven/embedding/ollama"
	embedopenai "github.com/exegete-labs/exegete/internal/adapters/driven/embedding/openai"
	"github.com/exegete-labs/exegete/internal/adapters/driven/llm/anthropic"
	llmollama "github.com/exegete-labs/exegete/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/exegete-labs/exegete/internal/adapters/driven/llm/openai"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for connectivity validation.
const pingTimeout = 5 * time.Second

// NewEmbedder builds the embedding provider named in the "embedding"
// config section. With no provider set, OpenAI is used when an API key
// is available and local Ollama otherwise.
func NewEmbedder(config driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := config.GetString("embedding.provider")
	apiKey := firstNonEmpty(config.GetString("embedding.api_key"), os.Getenv("OPENAI_API_KEY"))
	if provider == "" {
		if apiKey != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	switch provider {
	case "openai":
		return embedopenai.NewEmbeddingService(embedopenai.Config{
			APIKey:  apiKey,
			BaseURL: config.GetString("embedding.base_url"),
			Model:   config.GetString("embedding.model"),
		})
	case "ollama":
		return embedollama.NewEmbeddingService(embedollama.Config{
			BaseURL: config.GetString("embedding.base_url"),
			Model:   config.GetString("embedding.model"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// NewLLMs builds the primary generation provider from the "llm" config
// section and an optional fallback from "llm_fallback". A missing
// fallback section means no fallback.
func NewLLMs(config driven.ConfigStore) (primary, fallback driven.LLMService, err error) {
	primary, err = NewLLM(config, "llm")
	if err != nil {
		return nil, nil, fmt.Errorf("primary llm: %w", err)
	}
	if config.GetString("llm_fallback.provider") == "" {
		return primary, nil, nil
	}
	fallback, err = NewLLM(config, "llm_fallback")
	if err != nil {
		primary.Close()
		return nil, nil, fmt.Errorf("fallback llm: %w", err)
	}
	return primary, fallback, nil
}

// NewLLM builds one generation provider from the named config section.
func NewLLM(config driven.ConfigStore, section string) (driven.LLMService, error) {
	provider := config.GetString(section + ".provider")
	if provider == "" {
		if firstNonEmpty(config.GetString(section+".api_key"), os.Getenv("OPENAI_API_KEY")) != "" {
			provider = "openai"
		} else {
			provider = "ollama"
		}
	}

	switch provider {
	case "openai":
		return llmopenai.NewLLMService(llmopenai.LLMConfig{
			APIKey:  firstNonEmpty(config.GetString(section+".api_key"), os.Getenv("OPENAI_API_KEY")),
			BaseURL: config.GetString(section + ".base_url"),
			Model:   config.GetString(section + ".model"),
		})
	case "anthropic":
		return anthropic.NewLLMService(anthropic.Config{
			APIKey:  firstNonEmpty(config.GetString(section+".api_key"), os.Getenv("ANTHROPIC_API_KEY")),
			BaseURL: config.GetString(section + ".base_url"),
			Model:   config.GetString(section + ".model"),
		})
	case "ollama":
		return llmollama.NewLLMService(llmollama.LLMConfig{
			BaseURL: config.GetString(section + ".base_url"),
			Model:   config.GetString(section + ".model"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// ValidateEmbedder pings the embedding provider and wraps failures with
// guidance. Remote providers that are down should fail wiring, not the
// first ingestion.
func ValidateEmbedder(ctx context.Context, svc driven.EmbeddingService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider %q unreachable: %w. Check the [embedding] section of the config file", svc.ModelName(), err)
	}
	return nil
}

// ValidateLLM pings a generation provider and wraps failures with
// guidance.
func ValidateLLM(ctx context.Context, svc driven.LLMService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("llm provider %q unreachable: %w. Check the [llm] section of the config file", svc.ModelName(), err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

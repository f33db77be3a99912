package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/avvvet/companion-chat/internal/config"
)

// NewProvider creates the provider named by LLM_PROVIDER. Without an API key
// the returned provider fails every call with ErrNoCredentials, so replies
// and summaries fall back to their local variants.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg.LLMAPIKey == "" {
		log.Printf("⚠️ No API key for LLM provider %s, using local fallbacks", cfg.LLMProvider)
		return disabledProvider{name: cfg.LLMProvider}, nil
	}

	switch cfg.LLMProvider {
	case "deepseek", "langchain", "":
		return NewLangChainProvider(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	case "openai":
		return NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.LLMAPIKey, cfg.LLMModel), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

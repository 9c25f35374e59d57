package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"NewsDigest/internal/config"
	"NewsDigest/internal/infrastructure/ml"
	"NewsDigest/internal/ports"
)

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI  = "openai"
	ProviderClaude  = "claude"
	ProviderGemini  = "gemini"
	ProviderCohere  = "cohere"
	ProviderService = "service"
)

// New builds the configured backend. Every call returns a fresh instance with
// its own limiter.
func New(ctx context.Context, cfg config.LLMConfig, enrich config.EnrichmentConfig) (ports.Summarizer, error) {
	common := []Option{
		WithCallTimeout(enrich.CallTimeout),
		WithPromptLimit(enrich.PromptLimit),
	}
	httpClient := &http.Client{}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingCredentials)
		}
		client := NewChatGPTClient(cfg.OpenAI, httpClient)
		return NewPromptSummarizer(ProviderOpenAI, client, append(common, WithMaxRPM(cfg.OpenAI.MaxRPM))...), nil

	case ProviderClaude:
		if cfg.Claude.APIKey == "" {
			return nil, fmt.Errorf("claude: %w", ErrMissingCredentials)
		}
		client := NewClaudeClient(cfg.Claude, httpClient)
		return NewPromptSummarizer(ProviderClaude, client, append(common, WithMaxRPM(cfg.Claude.MaxRPM))...), nil

	case ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		opts := append(common, WithMaxRPM(cfg.Gemini.MaxRPM), withCloser(client.Close))
		return NewPromptSummarizer(ProviderGemini, client, opts...), nil

	case ProviderCohere:
		client, err := NewCohereClient(cfg.Cohere, httpClient)
		if err != nil {
			return nil, err
		}
		return NewPromptSummarizer(ProviderCohere, client, append(common, WithMaxRPM(cfg.Cohere.MaxRPM))...), nil

	case ProviderService:
		if cfg.Service.Endpoint == "" {
			return nil, fmt.Errorf("service: endpoint is required")
		}
		return ml.NewClient(cfg.Service.Endpoint, cfg.Service.APIKey, cfg.Service.MaxRPM, enrich.CallTimeout), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

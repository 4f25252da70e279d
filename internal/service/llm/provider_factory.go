package llm

import (
	"fmt"

	"chatrelay/internal/config"
	llmSvc "chatrelay/internal/domain/services/llm"
	"chatrelay/internal/service/llm/providers/lorem"
	"chatrelay/internal/service/llm/providers/openai"
)

// ProviderFactory creates completion clients from upstream configuration
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// CreateClient returns a client for one upstream entry
//
// Supported kinds:
//   - "openai" - any OpenAI-compatible chat completions endpoint
//   - "lorem" - mock provider for development (no API key required)
func (f *ProviderFactory) CreateClient(upstream config.UpstreamConfig) (llmSvc.CompletionClient, error) {
	switch upstream.Kind {
	case config.UpstreamKindOpenAI:
		if upstream.APIKey == "" {
			return nil, fmt.Errorf("upstream %q: api key not set", upstream.Name)
		}
		return openai.NewClient(openai.Config{
			Name:    upstream.Name,
			BaseURL: upstream.BaseURL,
			APIKey:  upstream.APIKey,
		}), nil

	case config.UpstreamKindLorem:
		return lorem.NewProvider(upstream.Name), nil

	default:
		return nil, fmt.Errorf("unsupported upstream kind: %s", upstream.Kind)
	}
}

// ParamsFor returns the generation parameters for one upstream entry
func (f *ProviderFactory) ParamsFor(upstream config.UpstreamConfig) GenerationParams {
	model := upstream.Model
	if model == "" {
		model = f.config.UpstreamModel
	}

	headers := make(map[string]string, len(upstream.Headers))
	for k, v := range upstream.Headers {
		headers[k] = v
	}

	return GenerationParams{
		Model:       model,
		Temperature: f.config.Temperature,
		MaxTokens:   f.config.MaxTokens,
		Headers:     headers,
	}
}

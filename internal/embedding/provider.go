package embedding

import (
	"fmt"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewClient creates an embedding client based on the provider name, wrapped
// in a cache when CacheTTL is positive.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(opts Options) (domain.EmbeddingClient, error) {
	var client domain.EmbeddingClient
	switch opts.Provider {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		client = NewOpenAIClient(OpenAIConfig{
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})

	case ProviderMock:
		client = NewMockClient()

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock)", opts.Provider)
	}

	if opts.CacheTTL > 0 {
		return NewCachedClient(client, opts.CacheTTL), nil
	}
	return client, nil
}

package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/sashabaranov/go-openai"
)

const defaultModel = openai.SmallEmbedding3

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OpenAIClient struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := defaultModel
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: cfg.Timeout,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: embedding API returned no data", domain.ErrEmbeddingUnavailable)
	}

	return resp.Data[0].Embedding, nil
}

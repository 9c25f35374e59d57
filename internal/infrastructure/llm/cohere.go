package llm

import (
	"context"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"NewsDigest/internal/config"
)

// CohereClient implements Completer on Cohere chat.
type CohereClient struct {
	client *cohereclient.Client
	model  string
}

var _ Completer = (*CohereClient)(nil)

// NewCohereClient builds a client from configuration.
func NewCohereClient(cfg config.CohereConfig, httpClient *http.Client) (*CohereClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: %w", ErrMissingCredentials)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereClient{client: client, model: cfg.Model}, nil
}

// Complete sends the prompt as a single chat message.
func (c *CohereClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	req := &cohere.ChatRequest{Message: prompt}
	if c.model != "" {
		model := c.model
		req.Model = &model
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		req.MaxTokens = &maxTokens
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: cohere returned empty response", ErrMalformedResponse)
	}
	return resp.Text, nil
}

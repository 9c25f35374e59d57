package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"NewsDigest/internal/config"
)

// GeminiClient implements Completer on Vertex AI.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ Completer = (*GeminiClient)(nil)

// NewGeminiClient opens a Vertex AI client for the configured project.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}
	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Complete generates content for the prompt and joins the text parts of the
// first candidate.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close releases the underlying gRPC connection.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

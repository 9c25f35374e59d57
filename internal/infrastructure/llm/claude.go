package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"NewsDigest/internal/config"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient implements Completer against the Anthropic messages API.
type ClaudeClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Completer = (*ClaudeClient)(nil)

// NewClaudeClient builds a client from configuration.
func NewClaudeClient(cfg config.ClaudeConfig, httpClient *http.Client) *ClaudeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClaudeClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the prompt as a single user turn.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("claude: %w", ErrMissingCredentials)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = summaryMaxTokens
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages":   []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal claude payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode claude response: %v", ErrMalformedResponse, err)
	}

	var b strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: claude returned no text", ErrMalformedResponse)
	}
	return b.String(), nil
}

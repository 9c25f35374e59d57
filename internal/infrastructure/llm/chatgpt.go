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

// ChatGPTClient implements Completer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig, httpClient *http.Client) *ChatGPTClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete posts the prompt as a user message and returns the first choice.
func (c *ChatGPTClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("chatgpt: %w", ErrMissingCredentials)
	}
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	payload := map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "system", Content: safePrompt(c.systemPrompt)},
			{Role: "user", Content: prompt},
		},
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.JSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode chatgpt response: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: chatgpt returned no choices", ErrMalformedResponse)
	}
	return decoded.Choices[0].Message.Content, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a news analyst who writes concise Hebrew summaries."
	}
	return prompt
}

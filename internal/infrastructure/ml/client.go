package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ErrEmptySummary is returned when the service answers without a summary.
var ErrEmptySummary = errors.New("summary service returned no summary")

// Client talks to a self-hosted summarization service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
}

var (
	_ ports.Summarizer       = (*Client)(nil)
	_ ports.ConnectionTester = (*Client)(nil)
)

// NewClient creates a reusable HTTP client. maxRPM <= 0 disables throttling.
func NewClient(endpoint, apiKey string, maxRPM int, timeout time.Duration) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
	if maxRPM > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxRPM)), 1)
	}
	return c
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "service"
}

// Summarize requests a Hebrew brief for the article content.
func (c *Client) Summarize(ctx context.Context, req ports.SummaryRequest) (domain.Enrichment, error) {
	payload := map[string]any{
		"title":    req.Title,
		"content":  req.Content,
		"category": string(req.Category),
	}

	var resp struct {
		TitleHe  string `json:"title_he"`
		Summary  string `json:"summary"`
		Details  string `json:"details"`
		Category string `json:"category"`
	}

	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return domain.Enrichment{}, err
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return domain.Enrichment{}, ErrEmptySummary
	}

	return domain.Enrichment{
		Title:    resp.TitleHe,
		Summary:  resp.Summary,
		Details:  resp.Details,
		Category: domain.Category(resp.Category),
	}, nil
}

// CheckDuplicate asks the service whether both headlines cover one story.
func (c *Client) CheckDuplicate(ctx context.Context, titleA, titleB string) (bool, error) {
	var resp struct {
		Same bool `json:"same"`
	}
	payload := map[string]any{"title_a": titleA, "title_b": titleB}
	if err := c.post(ctx, "/check-duplicate", payload, &resp); err != nil {
		return false, err
	}
	return resp.Same, nil
}

// TestConnection probes the service health endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}

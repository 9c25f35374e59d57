package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

var (
	// ErrMalformedResponse marks a reply that could not be parsed into an
	// enrichment.
	ErrMalformedResponse = errors.New("llm: malformed response")
	// ErrMissingCredentials is returned when the selected provider has no key
	// or project configured.
	ErrMissingCredentials = errors.New("llm: missing credentials")
	// ErrUnknownProvider is returned for provider names the factory does not know.
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	MaxTokens int
	JSON      bool
}

// Completer sends one prompt and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

const summarizePrompt = `You write short Hebrew briefs about artificial intelligence and cybersecurity news.

Article title: %s
Current category: %s

Article text:
%s

Reply with a single JSON object and nothing else:
{
  "title_he": "the headline translated to Hebrew",
  "summary": "two or three Hebrew sentences with the key facts",
  "details": "a longer Hebrew paragraph covering context and impact",
  "category": "ai" or "cyber"
}`

const duplicatePrompt = `Do these two headlines report the same news story?

1. %s
2. %s

Answer with exactly one word: same or different.`

const pingPrompt = "Reply with the single word OK."

func buildSummarizePrompt(req ports.SummaryRequest, limit int) string {
	content := req.Content
	if limit > 0 {
		content = truncateRunes(content, limit)
	}
	if strings.TrimSpace(content) == "" {
		content = req.Title
	}
	return fmt.Sprintf(summarizePrompt, req.Title, req.Category, content)
}

func buildDuplicatePrompt(titleA, titleB string) string {
	return fmt.Sprintf(duplicatePrompt, titleA, titleB)
}

type summaryPayload struct {
	Summary  string `json:"summary"`
	Details  string `json:"details"`
	Category string `json:"category"`
	TitleHe  string `json:"title_he"`
}

// parseSummary decodes a model reply, tolerating a markdown code fence around
// the JSON object.
func parseSummary(reply string) (domain.Enrichment, error) {
	body := stripFence(reply)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return domain.Enrichment{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return domain.Enrichment{}, fmt.Errorf("%w: summary is missing", ErrMalformedResponse)
	}

	return domain.Enrichment{
		Title:    strings.TrimSpace(payload.TitleHe),
		Summary:  strings.TrimSpace(payload.Summary),
		Details:  strings.TrimSpace(payload.Details),
		Category: domain.Category(strings.ToLower(strings.TrimSpace(payload.Category))),
	}, nil
}

func parseVerdict(reply string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(reply)), "same")
}

func stripFence(reply string) string {
	body := strings.TrimSpace(reply)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

package content

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsDigest/internal/ports"
)

const (
	// DefaultLimit caps extracted text, in runes.
	DefaultLimit = 8000

	maxBodyBytes     = 5 << 20
	minReadableRunes = 200
	minParagraphLen  = 40
)

var (
	noiseSelectors   = "script, style, nav, header, footer, aside, noscript, form, iframe"
	// contentSelectors are tried when <article> is missing or too short;
	// the longest match wins.
	contentSelectors = []string{
		"[itemprop='articleBody']",
		"[class*='article-body']",
		"[class*='post-content']",
		"[class*='entry-content']",
		"[class*='story-body']",
		"[class*='article-content']",
		"[class*='content-body']",
		"main",
		"[role='main']",
	}
)

// Fetcher downloads article pages and extracts their readable text.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limit     int
	logger    *slog.Logger
}

var _ ports.ContentFetcher = (*Fetcher)(nil)

// NewFetcher builds a fetcher with a per-request timeout.
func NewFetcher(timeout time.Duration, userAgent string, limit int, logger *slog.Logger) *Fetcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		limit:     limit,
		logger:    logger.With("component", "content_fetcher"),
	}
}

// Fetch returns the page's main text, or "" when nothing usable came back.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) string {
	raw, err := f.download(ctx, pageURL)
	if err != nil {
		f.logger.Debug("content fetch failed", "url", pageURL, "error", err)
		return ""
	}

	text := extract(raw, pageURL)
	return truncate(text, f.limit)
}

func (f *Fetcher) download(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.Status}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

type statusError struct {
	status string
}

func (e *statusError) Error() string {
	return "unexpected status " + e.status
}

// extract prefers readability and falls back to selector scraping when the
// readable text is too short.
func extract(raw []byte, pageURL string) string {
	parsed, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(bytes.NewReader(raw), parsed); err == nil {
		text := normalizeWhitespace(article.TextContent)
		if len([]rune(text)) >= minReadableRunes {
			return text
		}
	}
	return extractWithSelectors(raw)
}

func extractWithSelectors(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelectors).Remove()

	text := normalizeWhitespace(doc.Find("article").First().Text())
	if len([]rune(text)) < minReadableRunes {
		for _, selector := range contentSelectors {
			sel := doc.Find(selector).First()
			if sel.Length() == 0 {
				continue
			}
			if candidate := normalizeWhitespace(sel.Text()); len([]rune(candidate)) > len([]rune(text)) {
				text = candidate
			}
		}
	}

	if len([]rune(text)) >= minReadableRunes {
		return text
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := normalizeWhitespace(s.Text()); len([]rune(p)) > minParagraphLen {
			paragraphs = append(paragraphs, p)
		}
	})
	if joined := strings.Join(paragraphs, "\n\n"); len(joined) > len(text) {
		return joined
	}
	return text
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

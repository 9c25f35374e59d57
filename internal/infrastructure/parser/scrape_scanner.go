package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/scanner"
)

const (
	minTitleLength = 10
	maxTitleLength = 200
)

var linkSelectors = []string{
	"article a[href]",
	"a.post-link",
	".blog-post a[href]",
	".card a[href]",
	"h2 a[href]",
	"h3 a[href]",
}

// ScrapeScanner pulls article links out of a listing page for sources
// without a feed.
type ScrapeScanner struct {
	client    *http.Client
	userAgent string
}

// NewScrapeScanner wires an HTTP client; a nil client gets a 15s timeout.
func NewScrapeScanner(client *http.Client, userAgent string) *ScrapeScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ScrapeScanner{client: client, userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (s *ScrapeScanner) Name() string {
	return "scrape"
}

// Scan fetches the source page and returns the links found by the candidate
// selectors, stamped with the scan time.
func (s *ScrapeScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	base, err := url.Parse(req.Source.URL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("source %s has invalid url %q", req.Source.Name, req.Source.URL)
	}

	doc, err := s.fetchDocument(ctx, base.String())
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.Source.Name, err)
	}

	now := req.Now.UTC()
	stamp := now.Format(time.RFC3339)
	seen := map[string]struct{}{}
	results := make([]domain.Article, 0)

	for _, selector := range linkSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			if req.MaxArticles > 0 && len(results) >= req.MaxArticles {
				return false
			}

			article, ok := parseLink(link, base)
			if !ok {
				return true
			}
			key := domain.NormalizeURL(article.URL)
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}

			article.ID = domain.GenerateID(article.URL, article.TitleOriginal, stamp)
			article.Category = req.Source.Category
			article.Published = now
			article.FetchedAt = now
			results = append(results, article)
			return true
		})
	}

	return results, nil
}

func (s *ScrapeScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseLink resolves the href against the page and picks a usable title,
// falling back to the enclosing heading for short anchor texts.
func parseLink(link *goquery.Selection, base *url.URL) (domain.Article, bool) {
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return domain.Article{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return domain.Article{}, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return domain.Article{}, false
	}

	title := collapseSpaces(link.Text())
	if len([]rune(title)) < minTitleLength {
		title = collapseSpaces(link.Closest("h1, h2, h3, h4").Text())
	}
	if len([]rune(title)) < minTitleLength {
		return domain.Article{}, false
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}

	return domain.Article{TitleOriginal: title, URL: abs.String()}, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category tags the topic of an article.
type Category string

const (
	CategoryAI    Category = "ai"
	CategoryCyber Category = "cyber"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAI, CategoryCyber:
		return true
	default:
		return false
	}
}

// SourceRef names one distinct URL folded into a canonical article.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Article is one discovered item persisted in a day store.
//
// Enrichment fields are pointers: nil means the enrichment pass has not
// produced the field yet, which is what makes re-running enrichment resume
// from the gap instead of reprocessing everything.
type Article struct {
	ID            string    `json:"id"`
	TitleOriginal string    `json:"title_original"`
	URL           string    `json:"url"`
	Description   string    `json:"description"`
	SourceName    string    `json:"source_name"`
	SourceURL     string    `json:"source_url"`
	Category      Category  `json:"category"`
	Published     time.Time `json:"published"`
	FetchedAt     time.Time `json:"fetched_at"`

	TitleHe   *string `json:"title_he,omitempty"`
	SummaryHe *string `json:"summary_he,omitempty"`
	DetailsHe *string `json:"details_he,omitempty"`

	Sources        []SourceRef `json:"sources,omitempty"`
	DuplicateCount int         `json:"duplicate_count,omitempty"`
}

// Summarized reports whether the enrichment pass already handled the article.
func (a Article) Summarized() bool {
	return a.SummaryHe != nil
}

// Enrichment is the set of generated fields written back onto an article.
type Enrichment struct {
	Title    string
	Summary  string
	Details  string
	Category Category
}

// Apply writes the enrichment fields onto the article. An unknown category
// leaves the collector's tag in place.
func (a *Article) Apply(e Enrichment) {
	title, summary, details := e.Title, e.Summary, e.Details
	a.TitleHe = &title
	a.SummaryHe = &summary
	a.DetailsHe = &details
	if e.Category.Valid() {
		a.Category = e.Category
	}
}

// DisplayTitle prefers the generated title over the raw one.
func (a Article) DisplayTitle() string {
	if a.TitleHe != nil && strings.TrimSpace(*a.TitleHe) != "" {
		return *a.TitleHe
	}
	return a.TitleOriginal
}

// GenerateID fingerprints the (url, title, timestamp) triple.
func GenerateID(url, title, timestamp string) string {
	hash := sha256.Sum256([]byte(url + "|" + title + "|" + timestamp))
	return hex.EncodeToString(hash[:])[:16]
}

// NormalizeURL is the comparison key for article URLs: case-insensitive and
// blind to a trailing slash.
func NormalizeURL(raw string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
}

// DayKey formats the UTC calendar date used to key a day store.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

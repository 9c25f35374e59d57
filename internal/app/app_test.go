package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/logging"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>AI Wire</title><link>%[1]s</link>
<item><title>OpenAI releases GPT-5 model</title><link>%[1]s/gpt5</link><pubDate>%[2]s</pubDate></item>
<item><title>OpenAI releases GPT-5 model today</title><link>%[1]s/gpt5-today</link><pubDate>%[2]s</pubDate></item>
<item><title>Critical zero-day in Chrome patched</title><link>%[1]s/chrome</link><pubDate>%[2]s</pubDate></item>
</channel></rss>`

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Config{
		Logging: config.LoggingConfig{Level: "error"},
		Storage: config.StorageConfig{Dir: t.TempDir()},
		Scan: config.ScanConfig{
			RequestTimeout:       5 * time.Second,
			MaxArticlesPerSource: 10,
			MaxAgeHours:          24,
			UserAgent:            "NewsDigest-test",
			MaxDescriptionLength: 200,
		},
		Deduplication: config.DedupConfig{TitleSimilarityThreshold: 0.8},
		Enrichment:    config.EnrichmentConfig{MaxAttempts: 2, CallTimeout: 5 * time.Second},
		Scheduler:     config.SchedulerConfig{CronExpression: "0 6 * * *"},
		Digest:        config.DigestConfig{MaxArticles: 10, SummaryLength: 100},
	}
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()

	a, err := New(context.Background(), cfg, logging.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func TestPipelineRequiresCredentialsForEnrich(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.LLM.Provider = llm.ProviderOpenAI

	a := newApp(t, cfg)

	_, err := a.Pipeline(context.Background(), StageEnrich)
	require.ErrorIs(t, err, llm.ErrMissingCredentials)

	_, err = a.Pipeline(context.Background(), StageScan|StageDedup)
	require.NoError(t, err, "stages without a backend do not need credentials")
}

func TestPipelineBorderlineCheckNeedsBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.LLM.Provider = "mystery"
	cfg.Deduplication.UseLLMCheck = true
	cfg.Deduplication.BorderlineFloor = 0.5

	a := newApp(t, cfg)
	_, err := a.Pipeline(context.Background(), StageDedup)
	require.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)
	var feed *httptest.Server
	feed = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprintf(w, feedTemplate, feed.URL, published)
	}))
	defer feed.Close()

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/summarize":
			var req struct {
				Title string `json:"title"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"title_he": "כותרת: " + req.Title,
				"summary":  "סיכום קצר",
				"details":  "פרטים",
				"category": "ai",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer service.Close()

	cfg := testConfig(t)
	cfg.LLM.Provider = llm.ProviderService
	cfg.LLM.Service = config.ServiceConfig{Endpoint: service.URL}
	cfg.Sources = []config.SourceConfig{{
		Name:     "AI Wire",
		URL:      feed.URL,
		RSSURL:   feed.URL + "/feed",
		Category: "ai",
	}}

	a := newApp(t, cfg)
	p, err := a.Pipeline(context.Background(), StageAll)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, p.Run(context.Background(), now))

	articles, found, err := storage.NewFileStore(cfg.Storage.Dir).Load(context.Background(), domain.DayKey(now))
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, articles, 2, "the two GPT-5 headlines are one story")

	merged := 0
	for _, article := range articles {
		require.True(t, article.Summarized(), article.TitleOriginal)
		assert.Equal(t, "סיכום קצר", *article.SummaryHe)
		if article.DuplicateCount > 1 {
			merged++
			assert.Len(t, article.Sources, 2)
		}
	}
	assert.Equal(t, 1, merged)

	// A second pass finds nothing new and keeps the enrichment.
	require.NoError(t, p.Run(context.Background(), now))
	again, _, err := storage.NewFileStore(cfg.Storage.Dir).Load(context.Background(), domain.DayKey(now))
	require.NoError(t, err)
	assert.Equal(t, articles, again)
}

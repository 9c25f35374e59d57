package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

func newServiceServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/summarize", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["title"] == "empty" {
			_ = json.NewEncoder(w).Encode(map[string]string{"summary": ""})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"title_he": "כותרת",
			"summary":  "תקציר של " + body["category"],
			"details":  "פרטים",
			"category": "cyber",
		})
	})
	mux.HandleFunc("/check-duplicate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]bool{"same": body["title_a"] == body["title_b"]})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestServiceSummarize(t *testing.T) {
	t.Parallel()

	server := newServiceServer(t)
	defer server.Close()

	client := NewClient(server.URL+"/", "token", 0, time.Second)
	got, err := client.Summarize(context.Background(), ports.SummaryRequest{
		Title:    "Patch released",
		Content:  "body",
		Category: domain.CategoryCyber,
	})
	require.NoError(t, err)
	assert.Equal(t, "תקציר של cyber", got.Summary)
	assert.Equal(t, "כותרת", got.Title)
	assert.Equal(t, domain.CategoryCyber, got.Category)

	_, err = client.Summarize(context.Background(), ports.SummaryRequest{Title: "empty"})
	assert.ErrorIs(t, err, ErrEmptySummary)
}

func TestServiceCheckDuplicateAndHealth(t *testing.T) {
	t.Parallel()

	server := newServiceServer(t)
	defer server.Close()

	client := NewClient(server.URL, "token", 0, time.Second)
	ctx := context.Background()

	same, err := client.CheckDuplicate(ctx, "a", "a")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = client.CheckDuplicate(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, same)

	require.NoError(t, client.TestConnection(ctx))
}

func TestServiceErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 0, time.Second)
	_, err := client.Summarize(context.Background(), ports.SummaryRequest{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Error(t, client.TestConnection(context.Background()))
}

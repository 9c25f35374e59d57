package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const (
	summaryMaxTokens   = 1500
	duplicateMaxTokens = 10
	pingMaxTokens      = 5
)

// PromptSummarizer turns any Completer into a ports.Summarizer. Each instance
// owns its own limiter, so two backends never share a request budget.
type PromptSummarizer struct {
	name        string
	completer   Completer
	limiter     *rate.Limiter
	timeout     time.Duration
	promptLimit int
	closeFn     func() error
}

var (
	_ ports.Summarizer       = (*PromptSummarizer)(nil)
	_ ports.ConnectionTester = (*PromptSummarizer)(nil)
)

// Option configures a PromptSummarizer.
type Option func(*PromptSummarizer)

// WithMaxRPM spaces calls so no more than rpm start per minute.
func WithMaxRPM(rpm int) Option {
	return func(s *PromptSummarizer) {
		s.limiter = newLimiter(rpm)
	}
}

// WithCallTimeout bounds every completion call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *PromptSummarizer) {
		s.timeout = d
	}
}

// WithPromptLimit caps the article text embedded in the prompt, in runes.
func WithPromptLimit(n int) Option {
	return func(s *PromptSummarizer) {
		s.promptLimit = n
	}
}

func withCloser(fn func() error) Option {
	return func(s *PromptSummarizer) {
		s.closeFn = fn
	}
}

// NewPromptSummarizer wraps a completer under the given backend name.
func NewPromptSummarizer(name string, completer Completer, opts ...Option) *PromptSummarizer {
	s := &PromptSummarizer{
		name:        name,
		completer:   completer,
		promptLimit: 6000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the backend in logs.
func (s *PromptSummarizer) Name() string {
	return s.name
}

// Summarize asks the model for a Hebrew brief of the article.
func (s *PromptSummarizer) Summarize(ctx context.Context, req ports.SummaryRequest) (domain.Enrichment, error) {
	reply, err := s.call(ctx, buildSummarizePrompt(req, s.promptLimit), CompletionOptions{
		MaxTokens: summaryMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return domain.Enrichment{}, err
	}
	return parseSummary(reply)
}

// CheckDuplicate asks the model whether both headlines cover one story.
func (s *PromptSummarizer) CheckDuplicate(ctx context.Context, titleA, titleB string) (bool, error) {
	reply, err := s.call(ctx, buildDuplicatePrompt(titleA, titleB), CompletionOptions{MaxTokens: duplicateMaxTokens})
	if err != nil {
		return false, err
	}
	return parseVerdict(reply), nil
}

// TestConnection issues a minimal prompt to verify credentials.
func (s *PromptSummarizer) TestConnection(ctx context.Context) error {
	if _, err := s.call(ctx, pingPrompt, CompletionOptions{MaxTokens: pingMaxTokens}); err != nil {
		return fmt.Errorf("%s connection test: %w", s.name, err)
	}
	return nil
}

// Close releases SDK clients held by the backend.
func (s *PromptSummarizer) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func (s *PromptSummarizer) call(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%s rate limit wait: %w", s.name, err)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.completer.Complete(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", s.name, err)
	}
	return reply, nil
}

// newLimiter allows one call per minute/rpm; the first call is immediate.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

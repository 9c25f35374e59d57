package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// MaxMessageLength is the Bot API limit for one message text.
	MaxMessageLength = 4096
)

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return NewNotifierWithBase(defaultAPIBase, botToken, chatID, &http.Client{Timeout: 10 * time.Second})
}

// NewNotifierWithBase points the notifier at another Bot API host.
func NewNotifierWithBase(apiBase, botToken, chatID string, client *http.Client) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   client,
	}
}

// PublishDigest posts the digest as plain text, split into as many messages
// as the length limit requires.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for i, part := range splitMessage(digest, MaxMessageLength) {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break between lines.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		if size+len(runes) > limit {
			flush()
		}
		current.WriteString(string(runes))
		size += len(runes)
	}
	flush()
	return parts
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

// DefaultTelegramBaseURL is the Telegram Bot API root.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string

	client *fetch.Client
}

func (t *TelegramNotifier) Type() string { return TypeTelegram }

func (t *TelegramNotifier) Validate() error {
	if t.BotToken == "" {
		return fmt.Errorf("telegram: bot_token: %w", ErrMissingCredential)
	}
	if t.ChatID == "" {
		return fmt.Errorf("telegram: chat_id: %w", ErrMissingCredential)
	}
	return nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, event live.TransitionEvent) error {
	return t.send(ctx, formatTelegramMessage(RenderLive(event, "")))
}

func (t *TelegramNotifier) Announce(ctx context.Context, a Announcement) error {
	return t.send(ctx, formatTelegramMessage(RenderAnnouncement(a)))
}

func (t *TelegramNotifier) Close() {
	t.client.Close()
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	base := t.BaseURL
	if base == "" {
		base = DefaultTelegramBaseURL
	}

	resp := t.client.Do(ctx, fetch.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(base, "/"), t.BotToken),
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
		Timeout: 10 * time.Second,
	})
	if err := resp.Err(); err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	return nil
}

func formatTelegramMessage(m Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n%s", html.EscapeString(m.Headline), html.EscapeString(m.Summary))

	if m.StreamTitle != "" {
		fmt.Fprintf(&b, "\nTitle: %s", html.EscapeString(m.StreamTitle))
	}
	if m.RoomURL != "" {
		fmt.Fprintf(&b, "\nRoom: %s", html.EscapeString(m.RoomURL))
	}
	if m.CoverURL != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Cover</a>", html.EscapeString(m.CoverURL))
	}
	fmt.Fprintf(&b, "\nTime: %s UTC", m.Timestamp.UTC().Format("2006-01-02 15:04:05"))

	return b.String()
}

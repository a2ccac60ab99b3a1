// Package notify delivers live notifications to chat channels.
//
// A [Notifier] is one delivery channel (Discord, Telegram, generic webhook).
// The poll cycle talks to a [Dispatcher], which bounds every call with a
// timeout, recovers panics and reports failures as [live.DispatchError].
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

// Notifier types accepted by [Build].
const (
	TypeDiscord  = "discord"
	TypeTelegram = "telegram"
	TypeWebhook  = "webhook"
)

// DefaultMention is prepended to live notifications when none is configured.
const DefaultMention = "@everyone"

// Announcement is the optional one-time startup message.
type Announcement struct {
	// Names lists the display names of every monitored entity.
	Names     []string
	StartedAt time.Time
}

// Notifier is the interface that every notification channel implementation must satisfy.
type Notifier interface {
	// Type returns the notifier type identifier (e.g., "discord", "webhook").
	Type() string

	// Validate checks whether the notifier configuration is complete.
	Validate() error

	// Notify delivers a rising-edge event. It returns an error if delivery fails.
	Notify(ctx context.Context, event live.TransitionEvent) error

	// Announce delivers the startup announcement.
	Announce(ctx context.Context, a Announcement) error

	// Close releases idle connections held by the notifier.
	Close()
}

// Config selects and configures a [Notifier].
type Config struct {
	Type      string
	Token     string
	ChannelID string
	ChatID    string
	URL       string
	Method    string
	Mention   string

	// BaseURL overrides the chat platform API root (tests, proxies).
	BaseURL string
}

// Build constructs the Notifier described by cfg and validates it.
// Missing credentials are reported here so the process fails at startup.
func Build(cfg Config, client *fetch.Client) (Notifier, error) {
	if client == nil {
		client = fetch.NewClient("livewatch")
	}

	var n Notifier
	switch cfg.Type {
	case "", TypeDiscord:
		n = &DiscordNotifier{
			Token:     cfg.Token,
			ChannelID: cfg.ChannelID,
			Mention:   mentionOrDefault(cfg.Mention),
			BaseURL:   cfg.BaseURL,
			client:    client,
		}
	case TypeTelegram:
		n = &TelegramNotifier{
			BotToken: cfg.Token,
			ChatID:   firstNonEmpty(cfg.ChatID, cfg.ChannelID),
			BaseURL:  cfg.BaseURL,
			client:   client,
		}
	case TypeWebhook:
		method := cfg.Method
		if method == "" {
			method = "POST"
		}
		n = &WebhookNotifier{
			URL:    cfg.URL,
			Method: method,
			client: client,
		}
	default:
		return nil, fmt.Errorf("unknown notifier type %q (expected discord, telegram or webhook)", cfg.Type)
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// ErrMissingCredential reports incomplete notifier configuration.
var ErrMissingCredential = errors.New("missing notifier credential")

func mentionOrDefault(m string) string {
	switch m {
	case "":
		return DefaultMention
	case "none", "-":
		return ""
	default:
		return m
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

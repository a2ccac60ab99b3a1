package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

// DefaultDiscordBaseURL is the Discord REST API root.
const DefaultDiscordBaseURL = "https://discord.com/api/v10"

const (
	discordColorLive    = 0x00D4FF
	discordColorStartup = 0x00FF00
	discordTimeout      = 10 * time.Second
)

// DiscordNotifier posts messages to a Discord channel as a bot.
type DiscordNotifier struct {
	Token     string
	ChannelID string
	Mention   string
	BaseURL   string

	client *fetch.Client
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordImage struct {
	URL string `json:"url"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Image       *discordImage       `json:"image,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
}

type discordAllowedMentions struct {
	Parse []string `json:"parse"`
}

type discordMessage struct {
	Content         string                 `json:"content"`
	Embeds          []discordEmbed         `json:"embeds"`
	AllowedMentions discordAllowedMentions `json:"allowed_mentions"`
}

func (d *DiscordNotifier) Type() string { return TypeDiscord }

func (d *DiscordNotifier) Validate() error {
	if d.Token == "" {
		return fmt.Errorf("discord: token: %w", ErrMissingCredential)
	}
	if d.ChannelID == "" {
		return fmt.Errorf("discord: channel_id: %w", ErrMissingCredential)
	}
	return nil
}

func (d *DiscordNotifier) Notify(ctx context.Context, event live.TransitionEvent) error {
	msg := RenderLive(event, d.Mention)

	embed := discordEmbed{
		Title:       msg.Headline,
		Description: msg.Description,
		Color:       discordColorLive,
		Fields: []discordEmbedField{
			{Name: "Stream title", Value: msg.StreamTitle},
			{Name: "Room", Value: msg.RoomURL},
		},
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
		Footer:    &discordFooter{Text: msg.Footer},
	}
	if msg.CoverURL != "" {
		embed.Image = &discordImage{URL: msg.CoverURL}
	}

	return d.send(ctx, discordMessage{
		Content:         msg.Summary,
		Embeds:          []discordEmbed{embed},
		AllowedMentions: discordAllowedMentions{Parse: d.allowedMentions()},
	})
}

func (d *DiscordNotifier) Announce(ctx context.Context, a Announcement) error {
	msg := RenderAnnouncement(a)

	return d.send(ctx, discordMessage{
		Content: msg.Summary,
		Embeds: []discordEmbed{{
			Title:       msg.Headline,
			Description: msg.Description,
			Color:       discordColorStartup,
			Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
			Footer:      &discordFooter{Text: msg.Footer},
		}},
		AllowedMentions: discordAllowedMentions{Parse: []string{}},
	})
}

func (d *DiscordNotifier) Close() {
	d.client.Close()
}

// allowedMentions lets Discord expand @everyone/@here only when configured.
func (d *DiscordNotifier) allowedMentions() []string {
	if strings.Contains(d.Mention, "@everyone") || strings.Contains(d.Mention, "@here") {
		return []string{"everyone"}
	}
	return []string{}
}

func (d *DiscordNotifier) send(ctx context.Context, payload discordMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	base := d.BaseURL
	if base == "" {
		base = DefaultDiscordBaseURL
	}

	resp := d.client.Do(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/channels/%s/messages", strings.TrimRight(base, "/"), d.ChannelID),
		Body:   body,
		Headers: map[string]string{
			"Authorization": "Bot " + d.Token,
			"Content-Type":  "application/json",
		},
		Timeout: discordTimeout,
	})
	if err := resp.Err(); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

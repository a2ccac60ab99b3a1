package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/live"
)

// WebhookNotifier posts events as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	URL    string
	Method string

	client *fetch.Client
}

func (w *WebhookNotifier) Type() string { return TypeWebhook }

func (w *WebhookNotifier) Validate() error {
	if w.URL == "" {
		return fmt.Errorf("webhook: url: %w", ErrMissingCredential)
	}
	if w.Method == "" {
		return fmt.Errorf("webhook: method: %w", ErrMissingCredential)
	}
	return nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, event live.TransitionEvent) error {
	payload := map[string]interface{}{
		"type":        "live",
		"event_id":    event.ID,
		"entity_id":   event.Entity.ID,
		"entity_name": event.Entity.Name(),
		"entity_kind": event.Entity.Kind.String(),
		"live":        event.Info.IsLive,
		"title":       event.Info.Title,
		"room_url":    event.Info.RoomURL,
		"room_id":     event.Info.RoomID,
		"cover_url":   event.Info.CoverURL,
		"online":      event.Info.Online,
		"detected_at": event.DetectedAt.Unix(),
	}
	return w.send(ctx, payload)
}

func (w *WebhookNotifier) Announce(ctx context.Context, a Announcement) error {
	payload := map[string]interface{}{
		"type":       "startup",
		"monitored":  a.Names,
		"started_at": a.StartedAt.Unix(),
	}
	return w.send(ctx, payload)
}

func (w *WebhookNotifier) Close() {
	w.client.Close()
}

func (w *WebhookNotifier) send(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	resp := w.client.Do(ctx, fetch.Request{
		Method:  w.Method,
		URL:     w.URL,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
		Timeout: 10 * time.Second,
	})
	if err := resp.Err(); err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	return nil
}

package notify

import (
	"fmt"
	"time"

	"github.com/jpalmerr/livewatch/live"
)

const notAvailable = "n/a"

// Message is the platform-neutral rendering of a live notification.
type Message struct {
	// Headline is the short title, e.g. "🔴 Live now!".
	Headline string

	// Live is the live/offline indicator.
	Live bool

	// Summary is the one-line content, including the mention tag.
	Summary string

	// Description names the streamer.
	Description string

	StreamTitle string
	RoomURL     string

	// CoverURL is empty when no image should be attached.
	CoverURL string

	Footer    string
	Timestamp time.Time
}

// RenderLive builds the message sent for a rising edge.
func RenderLive(event live.TransitionEvent, mention string) Message {
	name := event.Entity.Name()

	summary := fmt.Sprintf("%s is live! Come and watch 🎉", name)
	if mention != "" {
		summary = mention + " " + summary
	}

	roomURL := event.Info.RoomURL
	if roomURL == "" {
		roomURL = notAvailable
	}

	ts := event.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return Message{
		Headline:    "🔴 Live now!",
		Live:        event.Info.IsLive,
		Summary:     summary,
		Description: fmt.Sprintf("**%s** is streaming", name),
		StreamTitle: event.Info.Title,
		RoomURL:     roomURL,
		CoverURL:    event.Info.CoverURL,
		Footer:      "Bilibili live alert",
		Timestamp:   ts,
	}
}

// RenderAnnouncement builds the startup announcement.
func RenderAnnouncement(a Announcement) Message {
	ts := a.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return Message{
		Headline:    "🤖 livewatch started",
		Summary:     fmt.Sprintf("✅ livewatch is running and monitoring %d streamer(s)", len(a.Names)),
		Description: "The bot is up. This is a one-time startup message.",
		Footer:      "livewatch",
		Timestamp:   ts,
	}
}

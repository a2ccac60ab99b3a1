package config

import (
	"log/slog"
	"testing"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/live"
)

func TestBuildEntities(t *testing.T) {
	cfg := &Config{Streamers: []StreamerConfig{
		{ID: "12345", Name: "User", Kind: "user"},
		{ID: "889", Kind: "room"},
	}}

	entities, err := BuildEntities(cfg)
	if err != nil {
		t.Fatalf("BuildEntities() error = %v", err)
	}

	want := []live.Entity{
		{ID: "12345", DisplayName: "User", Kind: live.KindUser},
		{ID: "889", Kind: live.KindRoom},
	}
	for i := range want {
		if entities[i] != want[i] {
			t.Errorf("entities[%d] = %+v, want %+v", i, entities[i], want[i])
		}
	}
}

func TestBuildNotifierConfig(t *testing.T) {
	cfg := &Config{Notifier: NotifierConfig{
		Type: "telegram", Token: "t", ChatID: "c", Mention: "@here",
	}}

	n := BuildNotifierConfig(cfg)
	if n.Type != "telegram" || n.Token != "t" || n.ChatID != "c" || n.Mention != "@here" {
		t.Errorf("BuildNotifierConfig() = %+v", n)
	}
}

func TestBuildOptions(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
keepalive:
  url: https://watch.example.com/
api_base_url: http://127.0.0.1:9
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := BuildOptions(cfg, slog.Default())
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	w, err := livewatch.New(opts...)
	if err != nil {
		t.Fatalf("livewatch.New() error = %v", err)
	}
	if w.Port() != cfg.Port || w.PollInterval() != cfg.PollInterval.Duration() {
		t.Errorf("Port() = %d, PollInterval() = %v", w.Port(), w.PollInterval())
	}
	if len(w.Entities()) != 1 {
		t.Errorf("len(Entities()) = %d, want 1", len(w.Entities()))
	}
}

func TestBuildOptions_InvalidNotifier(t *testing.T) {
	cfg := &Config{
		Notifier:  NotifierConfig{Type: "discord"},
		Streamers: []StreamerConfig{{ID: "1", Kind: "user"}},
	}

	if _, err := BuildOptions(cfg, nil); err == nil {
		t.Error("BuildOptions() error = nil, want notifier credential error")
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for name, want := range tests {
		cfg := &Config{LogLevel: name}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

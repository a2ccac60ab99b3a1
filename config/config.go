// Package config provides configuration loading for livewatch.
//
// Configuration comes either from a YAML file ([Load], [Parse]) or from
// environment variables, optionally seeded from .env files ([FromEnv]).
//
// Example configuration:
//
//	port: 8080
//	poll_interval: 60s
//
//	notifier:
//	  type: discord
//	  token: ${DISCORD_TOKEN}
//	  channel_id: ${CHANNEL_ID}
//
//	streamers:
//	  - id: "12345"
//	    name: Some Streamer
//	  - id: "889"
//	    name: Some Room
//	    kind: room
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/livewatch/live"
)

// minPollInterval is the minimum allowed polling interval.
// The upstream API rate-limits aggressive clients.
const minPollInterval = 10 * time.Second

// Defaults applied by [Parse] and [FromEnv].
const (
	DefaultPort               = 8080
	DefaultLogLevel           = "info"
	DefaultPollInterval       = 60 * time.Second
	DefaultPaceDelay          = time.Second
	DefaultRequestTimeout     = 10 * time.Second
	DefaultStartupNoticeDelay = 5 * time.Second
	DefaultKeepAliveInterval  = 5 * time.Minute
)

// Config is the root configuration structure for livewatch.
//
// It maps directly to the YAML configuration file structure.
type Config struct {
	// Port is the liveness HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// PollInterval is the time between poll cycles. Defaults to 60s.
	PollInterval Duration `yaml:"poll_interval"`

	// PaceDelay is the pause between two streamers within a cycle.
	PaceDelay Duration `yaml:"pace_delay"`

	// RequestTimeout bounds each upstream and notification call.
	RequestTimeout Duration `yaml:"request_timeout"`

	// APIBaseURL overrides the upstream live API host.
	APIBaseURL string `yaml:"api_base_url"`

	// StartupNotice sends a one-time "monitoring started" message.
	// Defaults to true when omitted.
	StartupNotice *bool `yaml:"startup_notice"`

	// StartupNoticeDelay is how long after start the notice is sent.
	StartupNoticeDelay Duration `yaml:"startup_notice_delay"`

	KeepAlive KeepAliveConfig `yaml:"keepalive"`

	Notifier NotifierConfig `yaml:"notifier"`

	// Streamers is the ordered list of monitored entities.
	Streamers []StreamerConfig `yaml:"streamers"`
}

// KeepAliveConfig configures the self-ping.
type KeepAliveConfig struct {
	// URL is pinged periodically. Empty disables the keep-alive.
	URL string `yaml:"url"`

	// Interval defaults to 5m.
	Interval Duration `yaml:"interval"`
}

// NotifierConfig selects the notification channel.
type NotifierConfig struct {
	// Type is discord (default), telegram or webhook.
	Type string `yaml:"type"`

	// Token is the bot token for discord and telegram.
	Token string `yaml:"token"`

	// ChannelID is the Discord channel.
	ChannelID string `yaml:"channel_id"`

	// ChatID is the Telegram chat.
	ChatID string `yaml:"chat_id"`

	// URL is the webhook target.
	URL string `yaml:"url"`

	// Method is the webhook HTTP method. Defaults to POST.
	Method string `yaml:"method"`

	// Mention prefixes live messages. Defaults to @everyone; "none" disables it.
	Mention string `yaml:"mention"`
}

// StreamerConfig defines one monitored entity.
type StreamerConfig struct {
	// ID is the user id or room id.
	ID string `yaml:"id"`

	// Name is the display name. Defaults to the id.
	Name string `yaml:"name"`

	// Kind is user (default) or room.
	Kind string `yaml:"kind"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// StartupNoticeEnabled reports whether the startup notice should be sent.
func (c *Config) StartupNoticeEnabled() bool {
	return c.StartupNotice == nil || *c.StartupNotice
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
//
// Environment variables are expanded in URLs, notifier credentials and
// streamer ids.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.PaceDelay == 0 {
		c.PaceDelay = Duration(DefaultPaceDelay)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.StartupNoticeDelay == 0 {
		c.StartupNoticeDelay = Duration(DefaultStartupNoticeDelay)
	}
	if c.KeepAlive.Interval == 0 {
		c.KeepAlive.Interval = Duration(DefaultKeepAliveInterval)
	}
	if c.Notifier.Type == "" {
		c.Notifier.Type = "discord"
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.PaceDelay.Duration() < 0 {
		return fmt.Errorf("pace_delay cannot be negative, got %s", c.PaceDelay.Duration())
	}
	if c.RequestTimeout.Duration() < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s, got %s", c.RequestTimeout.Duration())
	}
	if c.StartupNoticeDelay.Duration() < 0 {
		return fmt.Errorf("startup_notice_delay cannot be negative, got %s", c.StartupNoticeDelay.Duration())
	}

	var err error
	if c.APIBaseURL != "" {
		if c.APIBaseURL, err = expandURL("api_base_url", c.APIBaseURL); err != nil {
			return err
		}
	}

	if c.KeepAlive.URL != "" {
		if c.KeepAlive.URL, err = expandURL("keepalive.url", c.KeepAlive.URL); err != nil {
			return err
		}
		if c.KeepAlive.Interval.Duration() < time.Minute {
			return fmt.Errorf("keepalive.interval must be at least 1m, got %s", c.KeepAlive.Interval.Duration())
		}
	}

	if err := c.Notifier.expandAndValidate(); err != nil {
		return err
	}

	streamers, err := validateStreamers(c.Streamers)
	if err != nil {
		return err
	}
	c.Streamers = streamers
	return nil
}

func (n *NotifierConfig) expandAndValidate() error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"token", &n.Token},
		{"channel_id", &n.ChannelID},
		{"chat_id", &n.ChatID},
		{"url", &n.URL},
	} {
		expanded, err := expandEnvVars(*f.value)
		if err != nil {
			return fmt.Errorf("notifier.%s: %w", f.name, err)
		}
		*f.value = strings.TrimSpace(expanded)
	}

	switch n.Type {
	case "discord":
		if n.Token == "" {
			return errors.New("notifier: discord requires token")
		}
		if n.ChannelID == "" {
			return errors.New("notifier: discord requires channel_id")
		}
	case "telegram":
		if n.Token == "" {
			return errors.New("notifier: telegram requires token")
		}
		if n.ChatID == "" && n.ChannelID == "" {
			return errors.New("notifier: telegram requires chat_id")
		}
	case "webhook":
		if n.URL == "" {
			return errors.New("notifier: webhook requires url")
		}
		if _, err := expandURL("notifier.url", n.URL); err != nil {
			return err
		}
		if n.Method != "" && n.Method != "POST" && n.Method != "PUT" {
			return fmt.Errorf("notifier: webhook method must be POST or PUT, got %q", n.Method)
		}
	default:
		return fmt.Errorf("notifier: unknown type %q (expected discord, telegram or webhook)", n.Type)
	}
	return nil
}

// validateStreamers expands and checks every streamer. Entries whose id is
// empty after expansion are dropped; the returned list keeps the rest in order.
func validateStreamers(streamers []StreamerConfig) ([]StreamerConfig, error) {
	kept := make([]StreamerConfig, 0, len(streamers))
	seen := make(map[string]int, len(streamers))
	for i, s := range streamers {
		expanded, err := expandEnvVars(s.ID)
		if err != nil {
			return nil, fmt.Errorf("streamers[%d]: id: %w", i, err)
		}
		s.ID = strings.TrimSpace(expanded)

		if s.ID == "" {
			continue
		}
		if !isNumeric(s.ID) {
			return nil, fmt.Errorf("streamers[%d] (%s): id must be numeric", i, s.ID)
		}

		kind, err := live.ParseIDKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("streamers[%d] (%s): %w", i, s.ID, err)
		}
		s.Kind = kind.String()

		if first, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("streamers[%d] (%s): duplicate id, already defined at streamers[%d]", i, s.ID, first)
		}
		seen[s.ID] = i
		kept = append(kept, s)
	}

	if len(kept) == 0 {
		return nil, errors.New("at least one streamer must be defined")
	}
	return kept, nil
}

// expandURL expands environment variables in raw and checks it is an
// absolute http(s) URL.
func expandURL(field, raw string) (string, error) {
	expanded, err := expandEnvVars(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}

	parsed, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("%s: invalid url: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%s: url scheme must be http or https, got %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%s: url must have a host", field)
	}
	return expanded, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

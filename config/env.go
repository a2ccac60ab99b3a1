package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names read by [FromEnv].
const (
	EnvDiscordToken  = "DISCORD_TOKEN"
	EnvChannelID     = "CHANNEL_ID"
	EnvCheckInterval = "CHECK_INTERVAL"
	EnvStartupNotice = "STARTUP_NOTICE"
	EnvPort          = "PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvAPIBaseURL    = "BILIBILI_API_BASE_URL"
	EnvKeepAliveURL  = "KEEPALIVE_URL"

	// Indexed streamer variables, n = 1..maxEnvStreamers.
	envUserIDPrefix   = "BILIBILI_UID_"
	envUserNamePrefix = "BILIBILI_NAME_"
	envRoomIDPrefix   = "BILIBILI_ROOM_"
	envRoomNamePrefix = "BILIBILI_ROOM_NAME_"
)

// maxEnvStreamers bounds the index scan. Gaps are allowed.
const maxEnvStreamers = 50

// DefaultEnvFile is loaded by [LoadEnvFiles] when no file is named.
const DefaultEnvFile = ".env"

// LoadEnvFiles loads variables from .env files without overriding variables
// already present in the process environment.
//
// With no arguments it loads [DefaultEnvFile] if it exists. Named files must
// exist.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
		}
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// FromEnv builds a [Config] from the process environment.
//
// Streamers come from BILIBILI_UID_n / BILIBILI_NAME_n (user ids) and
// BILIBILI_ROOM_n / BILIBILI_ROOM_NAME_n (room ids). Indices whose id is
// unset or empty are skipped. CHECK_INTERVAL is in milliseconds and, like
// poll_interval in a config file, must be at least 10s (10000); shorter
// values are rejected rather than clamped.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		LogLevel:   strings.ToLower(get(EnvLogLevel)),
		APIBaseURL: get(EnvAPIBaseURL),
		KeepAlive:  KeepAliveConfig{URL: get(EnvKeepAliveURL)},
		Notifier: NotifierConfig{
			Type:      "discord",
			Token:     get(EnvDiscordToken),
			ChannelID: get(EnvChannelID),
		},
	}

	if v := get(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Port = port
	}

	if v := get(EnvCheckInterval); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("%s: invalid interval %q (milliseconds)", EnvCheckInterval, v)
		}
		cfg.PollInterval = Duration(time.Duration(ms) * time.Millisecond)
	}

	if v := get(EnvStartupNotice); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid boolean %q", EnvStartupNotice, v)
		}
		cfg.StartupNotice = &enabled
	}

	for i := 1; i <= maxEnvStreamers; i++ {
		n := strconv.Itoa(i)
		if id := get(envUserIDPrefix + n); id != "" {
			cfg.Streamers = append(cfg.Streamers, StreamerConfig{
				ID:   id,
				Name: get(envUserNamePrefix + n),
				Kind: "user",
			})
		}
	}
	for i := 1; i <= maxEnvStreamers; i++ {
		n := strconv.Itoa(i)
		if id := get(envRoomIDPrefix + n); id != "" {
			cfg.Streamers = append(cfg.Streamers, StreamerConfig{
				ID:   id,
				Name: get(envRoomNamePrefix + n),
				Kind: "room",
			})
		}
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

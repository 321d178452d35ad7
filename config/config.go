// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For the Discord bot credentials, use ValidateDiscordReady.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/onnwee/emote-tender/backend/db"
)

// DefaultFetchTimeout bounds a single emote image download.
const DefaultFetchTimeout = 15 * time.Second

type Config struct {
	// Database
	DBDsn string

	// Discord
	DiscordToken   string
	DiscordGuildID string

	// Twitch (anonymous chat read, emote harvesting only)
	TwitchChannel string

	// HTTP
	HTTPAddr string

	// Emote image downloads
	FetchTimeout time.Duration
}

// Load reads environment variables and applies defaults. It doesn't fail if Discord creds are
// missing; use ValidateDiscordReady() when the bot must run. An empty TWITCH_CHANNEL disables
// the Twitch collector.
func Load() (*Config, error) {
	cfg := &Config{}

	// DB
	cfg.DBDsn = os.Getenv("DB_DSN")
	if cfg.DBDsn == "" {
		cfg.DBDsn = db.DefaultDSN
	}

	// Discord
	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.DiscordGuildID = os.Getenv("DISCORD_GUILD_ID")

	// Twitch
	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")

	// HTTP
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.FetchTimeout = DefaultFetchTimeout
	if v := os.Getenv("EMOTE_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EMOTE_FETCH_TIMEOUT (duration, e.g. 10s): %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid EMOTE_FETCH_TIMEOUT: must be positive, got %s", d)
		}
		cfg.FetchTimeout = d
	}

	return cfg, nil
}

// ValidateDiscordReady checks required fields when the Discord bot is enabled.
func (c *Config) ValidateDiscordReady() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN")
	}
	return nil
}

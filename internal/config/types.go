package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mushbot/internal/countdown"
	"mushbot/internal/guildstore"
	"mushbot/pkg/logx"
)

// Config is the full bot configuration. All durations are Go duration
// strings (e.g. "45s", "2h30m").
type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
	Countdown CountdownConfig `json:"countdown,omitempty"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Language  LanguageConfig  `json:"language,omitempty"`
	Lamp      LampConfig      `json:"lamp,omitempty"`
}

type DiscordConfig struct {
	// Token may be omitted in favor of the DISCORD_TOKEN environment
	// variable, so the config file can be committed without secrets.
	Token string `json:"token,omitempty"`

	// CommandGuild registers slash commands on a single guild instead of
	// globally. Guild registration is instant; global takes up to an hour.
	CommandGuild string `json:"command_guild,omitempty"`

	// LogChannel receives warn+ log lines when logging.discord is enabled.
	LogChannel string `json:"log_channel,omitempty"`

	Presence PresenceConfig `json:"presence,omitempty"`
}

type PresenceConfig struct {
	Type   string `json:"type,omitempty"`   // "playing", "watching", "listening"
	Text   string `json:"text,omitempty"`
	Status string `json:"status,omitempty"` // "online", "idle", "dnd"
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so an omitted field means "on" while an explicit
	// false turns it off.
	Console *bool `json:"console,omitempty"`

	File    FileLogConfig    `json:"file,omitempty"`
	Discord DiscordLogConfig `json:"discord,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type DiscordLogConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// ToLogx maps the logging section onto the logx service config.
func (l LoggingConfig) ToLogx() logx.Config {
	console := true
	if l.Console != nil {
		console = *l.Console
	}
	return logx.Config{
		Level:   l.Level,
		Console: console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Discord: logx.DiscordConfig{
			Enabled:    l.Discord.Enabled,
			MinLevel:   l.Discord.MinLevel,
			RatePerSec: l.Discord.RatePerSec,
		},
	}
}

type CountdownConfig struct {
	UpdateInterval string `json:"update_interval,omitempty"` // default "60s"
	SettleDelay    string `json:"settle_delay,omitempty"`    // default "1s"
	AutoDelete     string `json:"auto_delete,omitempty"`     // default "3h"
	SweepLimit     int    `json:"sweep_limit,omitempty"`     // default 100

	// Defaults apply to guilds whose operators have not set their own
	// values yet.
	Defaults GuildDefaults `json:"defaults,omitempty"`
}

type GuildDefaults struct {
	ServerName string `json:"server_name,omitempty"`
	ResetTime  string `json:"reset_time,omitempty"` // "HH:MM:SS"
	UTCOffset  string `json:"utc_offset,omitempty"` // "UTC±N"
}

// Options resolves the countdown section into runtime options. Invalid
// durations were already rejected by Validate, so errors here are ignored
// in favor of the defaults.
func (c CountdownConfig) Options() countdown.Options {
	update, _ := ParseDurationOrDefault("countdown.update_interval", c.UpdateInterval, time.Minute)
	settle, _ := ParseDurationOrDefault("countdown.settle_delay", c.SettleDelay, time.Second)
	autoDel, _ := ParseDurationOrDefault("countdown.auto_delete", c.AutoDelete, 3*time.Hour)
	limit := c.SweepLimit
	if limit <= 0 {
		limit = 100
	}
	return countdown.Options{
		UpdateInterval: update,
		SettleDelay:    settle,
		AutoDelete:     autoDel,
		SweepLimit:     limit,
	}
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "file", "sqlite", "none"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// ToStore maps the storage section onto the guild store config.
func (s *StorageConfig) ToStore() guildstore.Config {
	if s == nil {
		return guildstore.Config{}
	}
	busy, _ := ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	return guildstore.Config{Driver: s.Driver, Path: s.Path, BusyTimeout: busy}
}

type LanguageConfig struct {
	File string `json:"file,omitempty"`
}

type LampConfig struct {
	File string `json:"file,omitempty"`
}

// Validate rejects configs the bot cannot run with. The Discord token is
// checked at startup, not here, because it may come from the environment.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	for _, d := range []struct{ path, raw string }{
		{"countdown.update_interval", c.Countdown.UpdateInterval},
		{"countdown.settle_delay", c.Countdown.SettleDelay},
		{"countdown.auto_delete", c.Countdown.AutoDelete},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	if c.Countdown.SweepLimit < 0 || c.Countdown.SweepLimit > 100 {
		return fmt.Errorf("countdown.sweep_limit: must be 0-100, got %d", c.Countdown.SweepLimit)
	}

	if rt := strings.TrimSpace(c.Countdown.Defaults.ResetTime); rt != "" {
		if _, _, _, err := countdown.ParseTimeOfDay(rt); err != nil {
			return fmt.Errorf("countdown.defaults.reset_time: %w", err)
		}
	}
	if off := strings.TrimSpace(c.Countdown.Defaults.UTCOffset); off != "" {
		if _, err := countdown.ParseUTCOffset(off); err != nil {
			return fmt.Errorf("countdown.defaults.utc_offset: %w", err)
		}
	}

	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	if c.Logging.Discord.Enabled && strings.TrimSpace(c.Discord.LogChannel) == "" {
		return errors.New("logging.discord.enabled requires discord.log_channel")
	}
	return nil
}

// ParseDurationField parses an optional duration string; empty means 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for
// empty/zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

package guildstore

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("guild store disabled")

// Config configures persistence.
//
// Driver values:
//   - "file": JSON snapshot, atomically replaced on every write
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", persistence is disabled and settings live
// only in memory for the process lifetime.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Settings is everything persisted per guild. Zero-valued fields fall back
// to config defaults at read time, so the stored record only carries what
// an operator actually set.
type Settings struct {
	GuildID          string    `json:"guild_id"`
	ChannelID        string    `json:"channel_id,omitempty"`
	ServerName       string    `json:"server_name,omitempty"`
	ResetTime        string    `json:"reset_time,omitempty"`
	UTCOffset        string    `json:"utc_offset,omitempty"`
	NotifyRoleID     string    `json:"notify_role_id,omitempty"`
	WelcomeChannelID string    `json:"welcome_channel_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

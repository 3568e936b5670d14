// Package guildstore persists per-guild settings (announcement channel,
// reset schedule, notify role) across restarts.
package guildstore

import (
	"context"
	"errors"
	"strings"

	"mushbot/pkg/logx"
)

// Store is the persistence API the app layer uses.
type Store interface {
	Get(ctx context.Context, guildID string) (Settings, bool, error)
	Put(ctx context.Context, s Settings) error
	Delete(ctx context.Context, guildID string) error
	All(ctx context.Context) ([]Settings, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if persistence is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown guildstore driver: " + driver)
	}
}

package guildstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mushbot/pkg/logx"
)

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS guild_settings (
  guild_id           TEXT PRIMARY KEY,
  channel_id         TEXT,
  server_name        TEXT,
  reset_time         TEXT,
  utc_offset         TEXT,
  notify_role_id     TEXT,
  welcome_channel_id TEXT,
  updated_at         TEXT NOT NULL
);
`

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("guild store opened", logx.String("driver", "sqlite"), logx.String("path", cfg.Path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, guildID string) (Settings, bool, error) {
	if s == nil || s.db == nil {
		return Settings{}, false, ErrDisabled
	}
	var set Settings
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT guild_id, channel_id, server_name, reset_time, utc_offset, notify_role_id, welcome_channel_id, updated_at
		 FROM guild_settings WHERE guild_id = ?`, guildID,
	).Scan(&set.GuildID, &set.ChannelID, &set.ServerName, &set.ResetTime, &set.UTCOffset,
		&set.NotifyRoleID, &set.WelcomeChannelID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, err
	}
	set.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return set, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, set Settings) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(set.GuildID) == "" {
		return errors.New("guild id required")
	}
	if set.UpdatedAt.IsZero() {
		set.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_settings(guild_id, channel_id, server_name, reset_time, utc_offset, notify_role_id, welcome_channel_id, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(guild_id) DO UPDATE SET
		   channel_id=excluded.channel_id,
		   server_name=excluded.server_name,
		   reset_time=excluded.reset_time,
		   utc_offset=excluded.utc_offset,
		   notify_role_id=excluded.notify_role_id,
		   welcome_channel_id=excluded.welcome_channel_id,
		   updated_at=excluded.updated_at`,
		set.GuildID, set.ChannelID, set.ServerName, set.ResetTime, set.UTCOffset,
		set.NotifyRoleID, set.WelcomeChannelID, set.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, guildID string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id = ?`, guildID)
	return err
}

func (s *sqliteStore) All(ctx context.Context) ([]Settings, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT guild_id, channel_id, server_name, reset_time, utc_offset, notify_role_id, welcome_channel_id, updated_at
		 FROM guild_settings ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Settings
	for rows.Next() {
		var set Settings
		var updatedAt string
		if err := rows.Scan(&set.GuildID, &set.ChannelID, &set.ServerName, &set.ResetTime, &set.UTCOffset,
			&set.NotifyRoleID, &set.WelcomeChannelID, &updatedAt); err != nil {
			return nil, err
		}
		set.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, set)
	}
	return out, rows.Err()
}

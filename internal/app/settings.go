package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"mushbot/internal/config"
	"mushbot/internal/countdown"
	"mushbot/internal/guildstore"
	"mushbot/pkg/logx"
)

// Hard fallbacks for guilds with no stored settings and no config defaults.
const (
	fallbackServerName = "Server"
	fallbackResetTime  = "00:00:00"
	fallbackUTCOffset  = "UTC-4"
)

const storeTimeout = 3 * time.Second

// settingsStore layers per-guild operator settings over config defaults.
// Reads are cached so the countdown manager can resolve settings without a
// context; writes go through to the persistent store when one is enabled.
type settingsStore struct {
	log   logx.Logger
	store guildstore.Store // nil when persistence is disabled

	mu       sync.RWMutex
	defaults config.GuildDefaults
	cache    map[string]guildstore.Settings
}

func newSettingsStore(log logx.Logger, store guildstore.Store, defaults config.GuildDefaults) *settingsStore {
	return &settingsStore{
		log:      log,
		store:    store,
		defaults: defaults,
		cache:    map[string]guildstore.Settings{},
	}
}

// SetDefaults swaps the config-level defaults on reload.
func (s *settingsStore) SetDefaults(d config.GuildDefaults) {
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()
}

// Guild implements countdown.SettingsSource. Every field of the result is
// usable as-is.
func (s *settingsStore) Guild(guildID string) countdown.GuildSettings {
	rec := s.record(guildID)
	s.mu.RLock()
	d := s.defaults
	s.mu.RUnlock()
	return countdown.GuildSettings{
		ChannelID:    rec.ChannelID,
		ServerName:   firstNonEmpty(rec.ServerName, d.ServerName, fallbackServerName),
		ResetTime:    firstNonEmpty(rec.ResetTime, d.ResetTime, fallbackResetTime),
		UTCOffset:    firstNonEmpty(rec.UTCOffset, d.UTCOffset, fallbackUTCOffset),
		NotifyRoleID: rec.NotifyRoleID,
	}
}

// record returns the raw stored record, loading it into the cache on first
// access. A store failure degrades to an empty record so the lifecycle can
// keep running on defaults.
func (s *settingsStore) record(guildID string) guildstore.Settings {
	s.mu.RLock()
	rec, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return rec
	}
	rec = guildstore.Settings{GuildID: guildID}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		stored, found, err := s.store.Get(ctx, guildID)
		if err != nil {
			s.log.Warn("guild settings read failed", logx.String("guild", guildID), logx.Err(err))
			return rec
		}
		if found {
			rec = stored
		}
	}
	s.mu.Lock()
	s.cache[guildID] = rec
	s.mu.Unlock()
	return rec
}

// Update applies mutate to the guild's record, caches it, and persists it.
func (s *settingsStore) Update(ctx context.Context, guildID string, mutate func(*guildstore.Settings)) error {
	rec := s.record(guildID)
	mutate(&rec)
	rec.GuildID = guildID
	rec.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.cache[guildID] = rec
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Put(ctx, rec)
}

// All lists every stored guild record, for resume on startup.
func (s *settingsStore) All(ctx context.Context) ([]guildstore.Settings, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.All(ctx)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

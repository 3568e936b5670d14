package guildstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mushbot/pkg/logx"
)

// fileStore keeps all settings in memory and rewrites a single JSON
// snapshot through a temp-file rename on every mutation. Guild counts are
// small, so the full rewrite is cheaper than a journal.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	guilds map[string]Settings
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("guildstore.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	guilds := map[string]Settings{}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run.
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(raw, &guilds); err != nil {
			return nil, err
		}
	}

	log.Info("guild store opened", logx.String("driver", "file"), logx.String("path", path), logx.Int("guilds", len(guilds)))
	return &fileStore{log: log, path: path, guilds: guilds}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Get(ctx context.Context, guildID string) (Settings, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.guilds[guildID]
	return set, ok, nil
}

func (s *fileStore) Put(ctx context.Context, set Settings) error {
	_ = ctx
	if strings.TrimSpace(set.GuildID) == "" {
		return errors.New("guild id required")
	}
	if set.UpdatedAt.IsZero() {
		set.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[set.GuildID] = set
	return s.persistLocked()
}

func (s *fileStore) Delete(ctx context.Context, guildID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guilds[guildID]; !ok {
		return nil
	}
	delete(s.guilds, guildID)
	return s.persistLocked()
}

func (s *fileStore) All(ctx context.Context) ([]Settings, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Settings, 0, len(s.guilds))
	for _, set := range s.guilds {
		out = append(out, set)
	}
	return out, nil
}

func (s *fileStore) persistLocked() error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.guilds); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

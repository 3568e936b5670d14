// Package lang serves the bot's user-facing text. Templates are flat
// dot-path keys ("countdown.title") loaded from a YAML file and merged
// over compiled-in defaults, so a missing or partial language file never
// leaves a message blank.
package lang

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"mushbot/pkg/logx"
)

// defaults is the compiled-in language pack.
var defaults = map[string]string{
	"countdown.title":       "Daily Reset Countdown",
	"countdown.description": "**{server}** resets in **{remaining}**",
	"countdown.footer":      "Reset at {reset_time}",
	"countdown.color":       "0x3498db",

	"reset.title":       "Daily Reset",
	"reset.description": "**{server}** has reset! ({elapsed})",
	"reset.footer":      "This message disappears {delete_after}h after reset",
	"reset.color":       "0xf1c40f",

	"welcome.title":       "Welcome!",
	"welcome.description": "Welcome to the server, {mention}!",
	"welcome.color":       "0x2ecc71",

	"lamp.result":    "A level {level} lamp averages **{avg}** {kind}. Reaching {target} {kind} takes about **{lamps}** lamps.",
	"lamp.bad_input": "Check the inputs: kind is xp or gold, level is 1-{max_level}, target is a positive number.",

	"commands.countdown_started":   "Countdown started in {channel}.",
	"commands.countdown_failed":    "Could not start the countdown there. Check my permissions in that channel.",
	"commands.channel_moved":       "Countdown moved to {channel}.",
	"commands.reset_sent":          "Reset announcement sent.",
	"commands.reset_send_failed":   "Could not send the reset announcement.",
	"commands.reset_deleted":       "Reset announcement deleted.",
	"commands.reset_none":          "There is no reset announcement to delete.",
	"commands.notify_role_set":     "Reset notifications will mention {role}.",
	"commands.notify_role_cleared": "Reset notifications will no longer mention a role.",
	"commands.welcome_set":         "Welcome messages will go to {channel}.",
	"commands.reloaded":            "Configuration reloaded.",
	"commands.guild_only":          "This command only works inside a server.",
	"commands.admin_only":          "You need the Manage Server permission for this.",
	"commands.unknown":             "Unknown command.",
	"commands.missing_channel":     "Pick a channel first.",
	"commands.internal_error":      "Something went wrong. Try again in a moment.",
}

// Service resolves template text. Safe for concurrent use; Load swaps the
// whole table atomically under the write lock.
type Service struct {
	mu      sync.RWMutex
	log     logx.Logger
	entries map[string]string
}

func New(log logx.Logger) *Service {
	entries := make(map[string]string, len(defaults))
	for k, v := range defaults {
		entries[k] = v
	}
	return &Service{log: log, entries: entries}
}

// Load reads a YAML language file and merges it over the defaults.
// Unknown keys are kept (custom templates are allowed); scalar values of
// any type are stringified. An empty path is a no-op.
func (s *Service) Load(path string) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read language file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse language file %s: %w", path, err)
	}

	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	flatten("", doc, merged)

	s.mu.Lock()
	s.entries = merged
	s.mu.Unlock()
	s.log.Info("language file loaded", logx.String("path", path), logx.Int("keys", len(merged)))
	return nil
}

// flatten walks nested maps into dot-path keys.
func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]any:
			flatten(key, vv, out)
		case nil:
			// Explicit null clears back to nothing.
			delete(out, key)
		default:
			out[key] = fmt.Sprint(vv)
		}
	}
}

// Text returns the template at path, or "" when absent.
func (s *Service) Text(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[path]
}

// Format returns the template at path with every {key} placeholder
// replaced. Placeholders with no replacement stay as-is so a typo is
// visible instead of silently vanishing.
func (s *Service) Format(path string, repl map[string]string) string {
	out := s.Text(path)
	if out == "" {
		return ""
	}
	for k, v := range repl {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

package countdown

import (
	"strconv"
	"strings"
	"time"

	"mushbot/internal/transport"
)

// GuildSettings is the slice of per-guild configuration the lifecycle
// needs. The app layer builds it from the guild store plus config defaults.
type GuildSettings struct {
	ChannelID    string
	ServerName   string
	ResetTime    string // "HH:MM:SS"
	UTCOffset    string // "UTC", "UTC-4", "UTC+8"
	NotifyRoleID string
}

// SettingsSource yields the effective settings for a guild. Defaults are
// already applied, so every field can be used as-is.
type SettingsSource interface {
	Guild(guildID string) GuildSettings
}

// Templates is the language-pack surface the renderer reads. Text returns
// "" for an unknown path; Format substitutes {placeholder} tokens.
type Templates interface {
	Text(path string) string
	Format(path string, repl map[string]string) string
}

const (
	fallbackCountdownTitle = "Daily Reset Countdown"
	fallbackResetTitle     = "Daily Reset"
	defaultCountdownColor  = 0x3498DB
	defaultResetColor      = 0xF1C40F
)

// Renderer produces the countdown and reset message bodies. It is pure:
// everything it needs arrives as arguments, so golden-style tests can pin
// the output for a fixed clock.
type Renderer struct {
	lang Templates
}

func NewRenderer(lang Templates) *Renderer {
	return &Renderer{lang: lang}
}

// CountdownTitle is the embed title countdown messages carry. Sweeps match
// on it to recognize stale bot messages.
func (r *Renderer) CountdownTitle() string {
	if t := r.lang.Text("countdown.title"); t != "" {
		return t
	}
	return fallbackCountdownTitle
}

// ResetTitle is the embed title reset announcements carry.
func (r *Renderer) ResetTitle() string {
	if t := r.lang.Text("reset.title"); t != "" {
		return t
	}
	return fallbackResetTitle
}

// Countdown renders the live countdown body for the given remaining time.
func (r *Renderer) Countdown(set GuildSettings, rem Remaining, now time.Time) transport.Content {
	repl := map[string]string{
		"server":     set.ServerName,
		"remaining":  FormatDuration(rem.Hours, rem.Minutes),
		"reset_time": set.ResetTime + " " + set.UTCOffset,
	}
	desc := r.lang.Format("countdown.description", repl)
	if desc == "" {
		// Malformed or missing template: fall back to a minimal body rather
		// than posting an empty embed.
		desc = "Next reset in " + repl["remaining"]
	}
	return transport.Content{Embed: &transport.Embed{
		Title:       r.CountdownTitle(),
		Description: desc,
		Color:       r.color("countdown.color", defaultCountdownColor),
		Footer:      r.lang.Format("countdown.footer", repl),
	}}
}

// Reset renders the post-reset announcement body. deleteAt is when the
// announcement will be removed.
func (r *Renderer) Reset(set GuildSettings, resetAt, deleteAt, now time.Time) transport.Content {
	repl := map[string]string{
		"server":       set.ServerName,
		"elapsed":      elapsedText(now.Sub(resetAt)),
		"delete_after": strconv.Itoa(int(deleteAt.Sub(resetAt).Round(time.Hour) / time.Hour)),
	}
	desc := r.lang.Format("reset.description", repl)
	if desc == "" {
		desc = "The daily reset has happened!"
	}
	return transport.Content{Embed: &transport.Embed{
		Title:       r.ResetTitle(),
		Description: desc,
		Color:       r.color("reset.color", defaultResetColor),
		Footer:      r.lang.Format("reset.footer", repl),
	}}
}

func (r *Renderer) color(path string, def int) int {
	s := strings.TrimSpace(r.lang.Text(path))
	if s == "" {
		return def
	}
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.TrimPrefix(s, "#")
	n, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return def
	}
	return int(n)
}

// elapsedText renders how long ago the reset happened, at minute
// resolution to match the update cadence.
func elapsedText(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return FormatDuration(h, m) + " ago"
}

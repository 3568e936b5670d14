package countdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mushbot/internal/sched"
	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// Options tune the lifecycle cadence. Zero values are replaced with the
// defaults below.
type Options struct {
	// UpdateInterval is the edit cadence for both the countdown message and
	// the reset announcement.
	UpdateInterval time.Duration
	// SettleDelay is how long a restarted countdown waits before re-posting
	// an in-flight reset announcement, giving the initial send time to land.
	SettleDelay time.Duration
	// AutoDelete is how long a reset announcement stays up.
	AutoDelete time.Duration
	// SweepLimit caps how many recent messages a channel sweep inspects.
	SweepLimit int
}

func (o *Options) fill() {
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = time.Minute
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = time.Second
	}
	if o.AutoDelete <= 0 {
		o.AutoDelete = 3 * time.Hour
	}
	if o.SweepLimit <= 0 {
		o.SweepLimit = 100
	}
}

// Manager drives the full reset lifecycle for every guild.
type Manager struct {
	log      logx.Logger
	tr       transport.Adapter
	timers   sched.Port
	reg      *Registry
	render   *Renderer
	settings SettingsSource

	optsMu sync.RWMutex
	opts   Options

	// now is swappable in tests.
	now func() time.Time
}

func NewManager(log logx.Logger, tr transport.Adapter, timers sched.Port, reg *Registry, render *Renderer, settings SettingsSource, opts Options) *Manager {
	opts.fill()
	return &Manager{
		log:      log,
		tr:       tr,
		timers:   timers,
		reg:      reg,
		render:   render,
		settings: settings,
		opts:     opts,
		now:      time.Now,
	}
}

// SetOptions swaps the cadence options at runtime (config reload). Live
// timers keep their old interval until their lifecycle is next restarted.
func (m *Manager) SetOptions(opts Options) {
	opts.fill()
	m.optsMu.Lock()
	m.opts = opts
	m.optsMu.Unlock()
}

func (m *Manager) options() Options {
	m.optsMu.RLock()
	defer m.optsMu.RUnlock()
	return m.opts
}

func countdownName(guildID string) string { return "countdown:" + guildID }
func resetName(guildID string) string     { return "reset:" + guildID }
func handoffName(guildID string) string   { return "handoff:" + guildID }

// Registry exposes the backing registry for startup cleanup.
func (m *Manager) Registry() *Registry { return m.reg }

// schedule parses the guild's reset time and offset. Unparseable values
// degrade to midnight UTC with a warning instead of killing the lifecycle.
func (m *Manager) schedule(guildID string, set GuildSettings) (hour, minute, sec, offset int) {
	var err error
	hour, minute, sec, err = ParseTimeOfDay(set.ResetTime)
	if err != nil {
		m.log.Warn("bad reset time, using 00:00:00", logx.String("guild", guildID), logx.String("value", set.ResetTime), logx.Err(err))
		hour, minute, sec = 0, 0, 0
	}
	offset, err = ParseUTCOffset(set.UTCOffset)
	if err != nil {
		m.log.Warn("bad utc offset, using UTC", logx.String("guild", guildID), logx.String("value", set.UTCOffset), logx.Err(err))
		offset = 0
	}
	return hour, minute, sec, offset
}

func (m *Manager) remaining(guildID string, set GuildSettings) Remaining {
	h, mi, s, off := m.schedule(guildID, set)
	return TimeRemaining(m.now(), h, mi, s, off)
}

// guard wraps a job so it only runs while the guild's lifecycle generation
// is still the one it was armed under. Stale ticks from a cleared
// lifecycle drop silently.
func (m *Manager) guard(guildID string, gen uint64, job sched.Job) sched.Job {
	return func(ctx context.Context) error {
		if m.reg.Gen(guildID) != gen {
			m.log.Debug("stale timer tick dropped", logx.String("guild", guildID))
			return nil
		}
		return job(ctx)
	}
}

// Start begins (or restarts) the countdown lifecycle for a guild in the
// given channel. Any previous lifecycle for the guild is torn down first.
// It reports whether the initial message was posted.
func (m *Manager) Start(ctx context.Context, guildID, channelID string) bool {
	if guildID == "" || channelID == "" {
		m.log.Error("countdown start missing ids", logx.String("guild", guildID), logx.String("channel", channelID))
		return false
	}
	if _, err := m.tr.ResolveChannel(ctx, channelID); err != nil {
		m.log.Error("countdown channel unavailable", logx.String("guild", guildID), logx.String("channel", channelID), logx.Err(err))
		return false
	}

	m.Sweep(ctx, channelID)

	// Preserve an in-flight reset cycle across the restart: the clear wipes
	// LastReset, so capture it first and re-announce after the countdown is
	// back up.
	var prevReset time.Time
	if st, ok := m.reg.Get(guildID); ok {
		prevReset = st.LastReset
	}
	m.reg.Clear(guildID)
	gen := m.reg.Gen(guildID)

	set := m.settings.Guild(guildID)
	rem := m.remaining(guildID, set)
	ref, err := m.tr.Send(ctx, channelID, m.render.Countdown(set, rem, m.now()))
	if err != nil {
		m.log.Error("countdown send failed", logx.String("guild", guildID), logx.String("channel", channelID), logx.Err(err))
		return false
	}

	m.reg.Update(guildID, func(st *State) {
		st.ChannelID = channelID
		st.CountdownMsg = ref
		st.CountdownTimer = countdownName(guildID)
	})
	if err := m.timers.Every(countdownName(guildID), m.options().UpdateInterval, m.guard(guildID, gen, func(ctx context.Context) error {
		return m.updateCountdown(ctx, guildID)
	})); err != nil {
		m.log.Error("countdown timer arm failed", logx.String("guild", guildID), logx.Err(err))
	}

	if !prevReset.IsZero() {
		at := m.now().Add(m.options().SettleDelay)
		m.reg.Update(guildID, func(st *State) { st.HandoffTimer = handoffName(guildID) })
		resetAt := prevReset
		m.timers.Once(handoffName(guildID), at, m.guard(guildID, gen, func(ctx context.Context) error {
			m.SendAnnouncement(ctx, guildID, channelID, resetAt)
			return nil
		}))
		m.log.Info("countdown restarted with reset cycle pending",
			logx.String("guild", guildID), logx.String("channel", channelID), logx.Time("reset_at", prevReset))
	} else {
		m.log.Info("countdown started",
			logx.String("guild", guildID), logx.String("channel", channelID), logx.Time("next_reset", rem.At))
	}
	return true
}

// StopCountdown cancels the countdown-phase timers and drops the countdown
// message reference. The message itself is left in place; a reset cycle in
// progress keeps running.
func (m *Manager) StopCountdown(guildID string) {
	st, ok := m.reg.Get(guildID)
	if !ok {
		return
	}
	if st.CountdownTimer != "" {
		m.timers.Cancel(st.CountdownTimer)
	}
	if st.HandoffTimer != "" {
		m.timers.Cancel(st.HandoffTimer)
	}
	m.reg.Update(guildID, func(st *State) {
		st.CountdownMsg = transport.MessageRef{}
		st.CountdownTimer = ""
		st.HandoffTimer = ""
	})
	m.log.Info("countdown stopped", logx.String("guild", guildID))
}

// updateCountdown is one recurring tick: recompute, edit, and arm the
// hand-off once the reset is imminent.
func (m *Manager) updateCountdown(ctx context.Context, guildID string) error {
	st, ok := m.reg.Get(guildID)
	if !ok || st.CountdownMsg.IsZero() {
		m.timers.Cancel(countdownName(guildID))
		return nil
	}

	set := m.settings.Guild(guildID)
	rem := m.remaining(guildID, set)

	err := m.tr.Edit(ctx, st.CountdownMsg, m.render.Countdown(set, rem, m.now()))
	if errors.Is(err, transport.ErrMessageNotFound) {
		// Someone deleted the countdown message. Stop the phase rather than
		// editing a ghost; a /countdown restart brings it back.
		m.log.Warn("countdown message gone, stopping updates", logx.String("guild", guildID), logx.String("channel", st.ChannelID))
		m.timers.Cancel(countdownName(guildID))
		m.reg.Update(guildID, func(st *State) {
			st.CountdownMsg = transport.MessageRef{}
			st.CountdownTimer = ""
		})
		return nil
	}
	if err != nil {
		// Transient failure: keep the timer armed and retry next tick.
		return fmt.Errorf("edit countdown for guild %s: %w", guildID, err)
	}

	if rem.Imminent {
		gen := m.reg.Gen(guildID)
		channelID := st.ChannelID
		resetAt := rem.At
		m.reg.Update(guildID, func(st *State) { st.HandoffTimer = handoffName(guildID) })
		m.timers.Once(handoffName(guildID), resetAt, m.guard(guildID, gen, func(ctx context.Context) error {
			m.SendAnnouncement(ctx, guildID, channelID, resetAt)
			return nil
		}))
		m.log.Info("reset imminent, hand-off armed", logx.String("guild", guildID), logx.Time("at", resetAt))
	}
	return nil
}

// Sweep deletes stale countdown/reset messages the bot left behind in a
// channel, e.g. after a crash. Best effort: failures are logged, never
// propagated.
func (m *Manager) Sweep(ctx context.Context, channelID string) {
	msgs, err := m.tr.RecentMessages(ctx, channelID, m.options().SweepLimit)
	if err != nil {
		m.log.Warn("channel sweep listing failed", logx.String("channel", channelID), logx.Err(err))
		return
	}

	cdTitle, rsTitle := m.render.CountdownTitle(), m.render.ResetTitle()
	var refs []transport.MessageRef
	for _, mi := range msgs {
		if mi.FromMe && (mi.EmbedTitle == cdTitle || mi.EmbedTitle == rsTitle) {
			refs = append(refs, mi.Ref)
		}
	}
	if len(refs) == 0 {
		return
	}
	m.log.Info("sweeping stale messages", logx.String("channel", channelID), logx.Int("count", len(refs)))

	err = m.tr.BulkDelete(ctx, channelID, refs)
	if errors.Is(err, transport.ErrBulkDeleteTooOld) {
		// Messages older than the platform's bulk window have to go one by one.
		for _, ref := range refs {
			if derr := m.tr.Delete(ctx, ref); derr != nil && !errors.Is(derr, transport.ErrMessageNotFound) {
				m.log.Warn("stale message delete failed", logx.String("channel", channelID), logx.String("message", ref.MessageID), logx.Err(derr))
			}
		}
		return
	}
	if err != nil {
		m.log.Warn("channel sweep failed", logx.String("channel", channelID), logx.Err(err))
	}
}

package countdown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// SendAnnouncement posts the reset announcement for a guild and arms its
// recurring update timer. resetAt is the instant the reset happened; a zero
// value means "now" (manual trigger). Reports whether the announcement was
// posted.
func (m *Manager) SendAnnouncement(ctx context.Context, guildID, channelID string, resetAt time.Time) bool {
	if m.tr == nil || !m.tr.Ready() {
		m.log.Error("reset announcement skipped, transport not ready", logx.String("guild", guildID))
		return false
	}
	if guildID == "" || channelID == "" {
		m.log.Error("reset announcement missing ids", logx.String("guild", guildID), logx.String("channel", channelID))
		return false
	}
	if _, err := m.tr.ResolveChannel(ctx, channelID); err != nil {
		m.log.Error("reset channel unavailable", logx.String("guild", guildID), logx.String("channel", channelID), logx.Err(err))
		return false
	}

	// Supersede any previous announcement cycle for this guild.
	m.timers.Cancel(resetName(guildID))
	m.reg.Update(guildID, func(st *State) {
		st.ResetMsg = transport.MessageRef{}
		st.ResetTimer = ""
	})

	if resetAt.IsZero() {
		resetAt = m.now()
	}

	set := m.settings.Guild(guildID)
	content := m.render.Reset(set, resetAt, resetAt.Add(m.options().AutoDelete), m.now())

	if set.NotifyRoleID != "" {
		role, err := m.tr.ResolveRole(ctx, guildID, set.NotifyRoleID)
		if err != nil {
			m.log.Warn("notify role unavailable, announcing without mention",
				logx.String("guild", guildID), logx.String("role", set.NotifyRoleID), logx.Err(err))
		} else {
			content.Text = role.Mention
		}
	}

	ref, err := m.tr.Send(ctx, channelID, content)
	if err != nil {
		m.log.Error("reset announcement send failed", logx.String("guild", guildID), logx.String("channel", channelID), logx.Err(err))
		return false
	}

	gen := m.reg.Gen(guildID)
	m.reg.Update(guildID, func(st *State) {
		st.ChannelID = channelID
		st.ResetMsg = ref
		st.ResetTimer = resetName(guildID)
		st.LastReset = resetAt
	})
	if err := m.timers.Every(resetName(guildID), m.options().UpdateInterval, m.guard(guildID, gen, func(ctx context.Context) error {
		return m.updateReset(ctx, guildID)
	})); err != nil {
		m.log.Error("reset timer arm failed", logx.String("guild", guildID), logx.Err(err))
	}

	m.log.Info("reset announcement posted",
		logx.String("guild", guildID), logx.String("channel", channelID),
		logx.Time("reset_at", resetAt), logx.Duration("auto_delete", m.options().AutoDelete))
	return true
}

// updateReset is one recurring tick of a live announcement: refresh the
// elapsed time, or remove the message once the auto-delete deadline passes.
func (m *Manager) updateReset(ctx context.Context, guildID string) error {
	st, ok := m.reg.Get(guildID)
	if !ok || st.LastReset.IsZero() {
		m.timers.Cancel(resetName(guildID))
		return nil
	}

	if m.now().Sub(st.LastReset) >= m.options().AutoDelete {
		if !st.ResetMsg.IsZero() {
			if err := m.tr.Delete(ctx, st.ResetMsg); err != nil && !errors.Is(err, transport.ErrMessageNotFound) {
				m.log.Warn("reset auto-delete failed", logx.String("guild", guildID), logx.String("message", st.ResetMsg.MessageID), logx.Err(err))
			}
		}
		m.timers.Cancel(resetName(guildID))
		m.reg.Update(guildID, func(st *State) {
			st.ResetMsg = transport.MessageRef{}
			st.ResetTimer = ""
			st.LastReset = time.Time{}
		})
		m.log.Info("reset announcement auto-deleted", logx.String("guild", guildID))
		return nil
	}

	if st.ResetMsg.IsZero() {
		m.timers.Cancel(resetName(guildID))
		return nil
	}

	set := m.settings.Guild(guildID)
	content := m.render.Reset(set, st.LastReset, st.LastReset.Add(m.options().AutoDelete), m.now())
	err := m.tr.Edit(ctx, st.ResetMsg, content)
	if errors.Is(err, transport.ErrMessageNotFound) {
		// Announcement deleted out from under us. Drop the cycle; LastReset
		// is cleared too so a later migration does not resurrect it.
		m.log.Warn("reset announcement gone, stopping updates", logx.String("guild", guildID))
		m.timers.Cancel(resetName(guildID))
		m.reg.Update(guildID, func(st *State) {
			st.ResetMsg = transport.MessageRef{}
			st.ResetTimer = ""
			st.LastReset = time.Time{}
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("edit reset announcement for guild %s: %w", guildID, err)
	}
	return nil
}

// StopResetCycle cancels the announcement update timer and drops the
// message reference without deleting the message. LastReset is preserved so
// a migration can re-create the announcement with its elapsed time intact.
func (m *Manager) StopResetCycle(guildID string) {
	st, ok := m.reg.Get(guildID)
	if !ok {
		return
	}
	if st.ResetTimer != "" {
		m.timers.Cancel(st.ResetTimer)
	}
	m.reg.Update(guildID, func(st *State) {
		st.ResetMsg = transport.MessageRef{}
		st.ResetTimer = ""
	})
	m.log.Info("reset cycle stopped", logx.String("guild", guildID))
}

// DeleteResetMessage removes a live announcement immediately (manual
// trigger) and ends the cycle, clearing LastReset so nothing re-creates it.
// Reports whether a message was actually deleted.
func (m *Manager) DeleteResetMessage(ctx context.Context, guildID string) bool {
	st, ok := m.reg.Get(guildID)
	if !ok || st.ResetMsg.IsZero() {
		return false
	}

	deleted := true
	if err := m.tr.Delete(ctx, st.ResetMsg); err != nil {
		if !errors.Is(err, transport.ErrMessageNotFound) {
			m.log.Warn("reset message delete failed", logx.String("guild", guildID), logx.String("message", st.ResetMsg.MessageID), logx.Err(err))
			deleted = false
		}
	}
	m.timers.Cancel(resetName(guildID))
	m.reg.Update(guildID, func(st *State) {
		st.ResetMsg = transport.MessageRef{}
		st.ResetTimer = ""
		st.LastReset = time.Time{}
	})
	if deleted {
		m.log.Info("reset announcement deleted on request", logx.String("guild", guildID))
	}
	return deleted
}

package countdown

import (
	"context"
	"errors"
	"time"

	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// HandleChannelMove migrates a guild's lifecycle to a new channel: the old
// channel is cleaned up (best effort), both controllers are torn down, the
// countdown restarts in the new channel, and an in-flight reset cycle is
// re-announced there with its original reset instant so the elapsed time
// and the auto-delete deadline carry over. Reports whether the countdown is
// live in the new channel.
func (m *Manager) HandleChannelMove(ctx context.Context, guildID, oldChannelID, newChannelID string) bool {
	if guildID == "" || newChannelID == "" {
		m.log.Error("channel move missing ids", logx.String("guild", guildID), logx.String("new_channel", newChannelID))
		return false
	}
	if oldChannelID == newChannelID {
		m.log.Debug("channel move to same channel, restarting in place", logx.String("guild", guildID))
	}

	st, _ := m.reg.Get(guildID)
	captured := st.LastReset

	if oldChannelID != "" && oldChannelID != newChannelID {
		if _, err := m.tr.ResolveChannel(ctx, oldChannelID); err != nil {
			m.log.Warn("old channel unavailable, skipping cleanup",
				logx.String("guild", guildID), logx.String("channel", oldChannelID), logx.Err(err))
		} else {
			if !st.CountdownMsg.IsZero() {
				if derr := m.tr.Delete(ctx, st.CountdownMsg); derr != nil && !transportNotFound(derr) {
					m.log.Warn("old countdown delete failed", logx.String("guild", guildID), logx.Err(derr))
				}
			}
			if !st.ResetMsg.IsZero() {
				if derr := m.tr.Delete(ctx, st.ResetMsg); derr != nil && !transportNotFound(derr) {
					m.log.Warn("old reset delete failed", logx.String("guild", guildID), logx.Err(derr))
				}
			}
			m.Sweep(ctx, oldChannelID)
		}
	}

	m.StopCountdown(guildID)
	m.StopResetCycle(guildID)
	// The re-announcement below owns the in-flight cycle; wipe LastReset so
	// Start does not arm its own settle-delay re-announcement as well.
	m.reg.Update(guildID, func(st *State) { st.LastReset = time.Time{} })

	if !m.Start(ctx, guildID, newChannelID) {
		return false
	}

	if !captured.IsZero() {
		if !m.SendAnnouncement(ctx, guildID, newChannelID, captured) {
			m.log.Warn("reset re-announcement failed after move",
				logx.String("guild", guildID), logx.String("channel", newChannelID))
		}
	}

	m.log.Info("channel move complete",
		logx.String("guild", guildID),
		logx.String("from", oldChannelID), logx.String("to", newChannelID),
		logx.Bool("reset_carried", !captured.IsZero()))
	return true
}

func transportNotFound(err error) bool {
	return errors.Is(err, transport.ErrMessageNotFound) || errors.Is(err, transport.ErrChannelNotFound)
}

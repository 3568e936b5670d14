package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelMoveRestartsCountdown(t *testing.T) {
	fx := newFixture(t, "chan1", "chan2")
	ctx := context.Background()
	require.True(t, fx.m.Start(ctx, "g1", "chan1"))
	old, _ := fx.reg.Get("g1")

	require.True(t, fx.m.HandleChannelMove(ctx, "g1", "chan1", "chan2"))

	assert.True(t, fx.tr.msg(t, old.CountdownMsg).deleted)
	st, _ := fx.reg.Get("g1")
	assert.Equal(t, "chan2", st.ChannelID)
	assert.False(t, st.CountdownMsg.IsZero())
	assert.True(t, fx.tm.has("countdown:g1"))
	// No reset cycle existed, so none was created.
	assert.True(t, st.ResetMsg.IsZero())
	assert.True(t, st.LastReset.IsZero())
}

func TestChannelMovePreservesElapsedResetTime(t *testing.T) {
	fx := newFixture(t, "chan1", "chan2")
	ctx := context.Background()
	require.True(t, fx.m.Start(ctx, "g1", "chan1"))

	resetAt := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	fx.setNow(resetAt)
	require.True(t, fx.m.SendAnnouncement(ctx, "g1", "chan1", resetAt))
	old, _ := fx.reg.Get("g1")

	// Two hours into the three-hour auto-delete window.
	fx.setNow(resetAt.Add(2 * time.Hour))
	require.True(t, fx.m.HandleChannelMove(ctx, "g1", "chan1", "chan2"))

	assert.True(t, fx.tr.msg(t, old.ResetMsg).deleted)

	st, _ := fx.reg.Get("g1")
	assert.Equal(t, "chan2", st.ChannelID)
	require.False(t, st.ResetMsg.IsZero())
	assert.Equal(t, resetAt, st.LastReset, "reset instant carries across the move")
	msg := fx.tr.msg(t, st.ResetMsg)
	assert.Contains(t, msg.content.Embed.Description, "2hrs 0mins ago")

	// One hour later the carried deadline expires on schedule.
	fx.setNow(resetAt.Add(3 * time.Hour))
	require.NoError(t, fx.tm.tick(t, ctx, "reset:g1"))
	assert.True(t, fx.tr.msg(t, st.ResetMsg).deleted)
	after, _ := fx.reg.Get("g1")
	assert.True(t, after.LastReset.IsZero())
}

func TestChannelMoveAnnouncesOnlyOnce(t *testing.T) {
	fx := newFixture(t, "chan1", "chan2")
	ctx := context.Background()
	require.True(t, fx.m.Start(ctx, "g1", "chan1"))
	require.True(t, fx.m.SendAnnouncement(ctx, "g1", "chan1", fx.m.now()))

	require.True(t, fx.m.HandleChannelMove(ctx, "g1", "chan1", "chan2"))

	// The move itself re-announces; Start's settle-delay hand-off must not
	// have been armed on top of it.
	assert.False(t, fx.tm.has("handoff:g1"))

	sends := 0
	for _, ref := range fx.tr.sends {
		if ref.ChannelID == "chan2" {
			sends++
		}
	}
	// One countdown message plus one announcement.
	assert.Equal(t, 2, sends)
}

func TestChannelMoveUnknownOldChannelSkipsCleanup(t *testing.T) {
	fx := newFixture(t, "chan2")
	ctx := context.Background()

	require.True(t, fx.m.HandleChannelMove(ctx, "g1", "gone", "chan2"))

	st, _ := fx.reg.Get("g1")
	assert.Equal(t, "chan2", st.ChannelID)
	assert.Empty(t, fx.tr.deletes)
}

func TestChannelMoveRequiresNewChannel(t *testing.T) {
	fx := newFixture(t, "chan1")
	assert.False(t, fx.m.HandleChannelMove(context.Background(), "g1", "chan1", ""))
}

func TestChannelMoveFailsWhenNewChannelUnavailable(t *testing.T) {
	fx := newFixture(t, "chan1")
	ctx := context.Background()
	require.True(t, fx.m.Start(ctx, "g1", "chan1"))

	assert.False(t, fx.m.HandleChannelMove(ctx, "g1", "chan1", "missing"))

	// Old lifecycle is torn down; the guild needs a fresh start.
	st, _ := fx.reg.Get("g1")
	assert.True(t, st.CountdownMsg.IsZero())
	assert.False(t, fx.tm.has("countdown:g1"))
}

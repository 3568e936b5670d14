package app

import (
	"context"
	"strconv"
	"strings"

	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

const defaultWelcomeColor = 0x2ECC71

// eventLoop routes gateway updates until ctx is cancelled.
func (a *App) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-a.updates:
			if !ok {
				return
			}
			switch u.Kind {
			case transport.UpdateReady:
				a.onReady(ctx)
			case transport.UpdateInteraction:
				if u.Interaction != nil {
					a.handleInteraction(ctx, u.Interaction)
				}
			case transport.UpdateMemberJoin:
				if u.MemberJoin != nil {
					a.handleMemberJoin(ctx, u.MemberJoin)
				}
			}
		}
	}
}

// onReady runs once per process, on the first gateway ready. Reconnects
// re-emit ready but countdown state survives them untouched.
func (a *App) onReady(ctx context.Context) {
	a.readyOnce.Do(func() {
		if err := a.tr.RegisterCommands(ctx, commandDefs()); err != nil {
			a.log.Error("slash command registration failed", logx.Err(err))
		}
		if cfg := a.cfgMgr.Get(); cfg != nil {
			a.setPresence(ctx, cfg)
		}
		a.resume(ctx)
		close(a.readyCh)
	})
}

// resume restarts the countdown for every guild with a stored
// announcement channel.
func (a *App) resume(ctx context.Context) {
	recs, err := a.settings.All(ctx)
	if err != nil {
		a.log.Error("guild resume listing failed", logx.Err(err))
		return
	}
	started := 0
	for _, rec := range recs {
		if rec.ChannelID == "" {
			continue
		}
		if a.manager.Start(ctx, rec.GuildID, rec.ChannelID) {
			started++
		}
	}
	if started > 0 {
		a.log.Info("countdowns resumed", logx.Int("guilds", started))
	}
}

// handleMemberJoin greets new members in the guild's welcome channel, if
// one is configured.
func (a *App) handleMemberJoin(ctx context.Context, mj *transport.MemberJoin) {
	rec := a.settings.record(mj.GuildID)
	if rec.WelcomeChannelID == "" {
		return
	}
	set := a.settings.Guild(mj.GuildID)
	repl := map[string]string{
		"mention": mj.Mention,
		"user":    mj.UserTag,
		"server":  set.ServerName,
	}

	desc := a.lang.Format("welcome.description", repl)
	if desc == "" {
		desc = "Welcome, " + mj.Mention + "!"
	}
	content := transport.Content{
		// Mentions inside embeds do not ping, so the mention rides along as
		// plain text too.
		Text: mj.Mention,
		Embed: &transport.Embed{
			Title:       a.lang.Format("welcome.title", repl),
			Description: desc,
			Color:       parseColor(a.lang.Text("welcome.color"), defaultWelcomeColor),
		},
	}
	if _, err := a.tr.Send(ctx, rec.WelcomeChannelID, content); err != nil {
		a.log.Warn("welcome message failed",
			logx.String("guild", mj.GuildID), logx.String("channel", rec.WelcomeChannelID), logx.Err(err))
	}
}

func parseColor(s string, def int) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "#")
	n, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return def
	}
	return int(n)
}

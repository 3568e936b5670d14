package app

import (
	"context"
	"strconv"
	"time"

	"mushbot/internal/guildstore"
	"mushbot/internal/lamp"
	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// commandDefs is the full slash command surface registered on ready.
func commandDefs() []transport.Command {
	return []transport.Command{
		{
			Name:        "announcement-channel",
			Description: "Set the channel for the daily reset countdown and announcements",
			AdminOnly:   true,
			Options: []transport.CommandOption{
				{Name: "channel", Description: "Channel to post in", Kind: transport.OptionChannel, Required: true},
			},
		},
		{
			Name:        "reset-announcement",
			Description: "Post a reset announcement right now",
			AdminOnly:   true,
		},
		{
			Name:        "reset-delete",
			Description: "Delete the current reset announcement",
			AdminOnly:   true,
		},
		{
			Name:        "reset-notify",
			Description: "Choose a role to mention in reset announcements",
			AdminOnly:   true,
			Options: []transport.CommandOption{
				{Name: "role", Description: "Role to mention; omit to stop mentioning", Kind: transport.OptionRole},
			},
		},
		{
			Name:        "welcome-channel",
			Description: "Set the channel for member welcome messages",
			AdminOnly:   true,
			Options: []transport.CommandOption{
				{Name: "channel", Description: "Channel to welcome new members in", Kind: transport.OptionChannel, Required: true},
			},
		},
		{
			Name:        "lamps",
			Description: "How many lamps it takes to reach an XP or gold target",
			Options: []transport.CommandOption{
				{Name: "kind", Description: "xp or gold", Kind: transport.OptionString, Required: true},
				{Name: "level", Description: "Lamp level", Kind: transport.OptionInteger, Required: true},
				{Name: "target", Description: "Amount to reach", Kind: transport.OptionInteger, Required: true},
			},
		},
		{
			Name:        "reload",
			Description: "Reload the bot configuration from disk",
			AdminOnly:   true,
		},
	}
}

func (a *App) handleInteraction(ctx context.Context, it *transport.Interaction) {
	if it.GuildID == "" && it.Command != "lamps" {
		a.reply(ctx, it, a.lang.Text("commands.guild_only"))
		return
	}

	switch it.Command {
	case "announcement-channel":
		a.cmdAnnouncementChannel(ctx, it)
	case "reset-announcement":
		a.cmdResetAnnouncement(ctx, it)
	case "reset-delete":
		a.cmdResetDelete(ctx, it)
	case "reset-notify":
		a.cmdResetNotify(ctx, it)
	case "welcome-channel":
		a.cmdWelcomeChannel(ctx, it)
	case "lamps":
		a.cmdLamps(ctx, it)
	case "reload":
		a.cmdReload(ctx, it)
	default:
		a.reply(ctx, it, a.lang.Text("commands.unknown"))
	}
}

// requireAdmin rejects the interaction unless the invoker may manage the
// guild. Registration already restricts admin commands platform-side.
func (a *App) requireAdmin(ctx context.Context, it *transport.Interaction) bool {
	if it.Admin {
		return true
	}
	a.reply(ctx, it, a.lang.Text("commands.admin_only"))
	return false
}

func (a *App) cmdAnnouncementChannel(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	channelID := it.Options["channel"]
	if channelID == "" {
		a.reply(ctx, it, a.lang.Text("commands.missing_channel"))
		return
	}

	prev := a.settings.Guild(it.GuildID).ChannelID
	moved := prev != "" && prev != channelID

	var ok bool
	if moved {
		ok = a.manager.HandleChannelMove(ctx, it.GuildID, prev, channelID)
	} else {
		ok = a.manager.Start(ctx, it.GuildID, channelID)
	}
	if !ok {
		a.reply(ctx, it, a.lang.Text("commands.countdown_failed"))
		return
	}

	err := a.settings.Update(ctx, it.GuildID, func(s *guildstore.Settings) { s.ChannelID = channelID })
	if err != nil {
		a.log.Error("announcement channel persist failed", logx.String("guild", it.GuildID), logx.Err(err))
	}

	key := "commands.countdown_started"
	if moved {
		key = "commands.channel_moved"
	}
	a.reply(ctx, it, a.lang.Format(key, map[string]string{"channel": channelMention(channelID)}))
}

func (a *App) cmdResetAnnouncement(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	channelID := a.settings.Guild(it.GuildID).ChannelID
	if channelID == "" {
		a.reply(ctx, it, a.lang.Text("commands.missing_channel"))
		return
	}
	if a.manager.SendAnnouncement(ctx, it.GuildID, channelID, time.Time{}) {
		a.reply(ctx, it, a.lang.Text("commands.reset_sent"))
		return
	}
	a.reply(ctx, it, a.lang.Text("commands.reset_send_failed"))
}

func (a *App) cmdResetDelete(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	if a.manager.DeleteResetMessage(ctx, it.GuildID) {
		a.reply(ctx, it, a.lang.Text("commands.reset_deleted"))
		return
	}
	a.reply(ctx, it, a.lang.Text("commands.reset_none"))
}

func (a *App) cmdResetNotify(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	roleID := it.Options["role"]
	err := a.settings.Update(ctx, it.GuildID, func(s *guildstore.Settings) { s.NotifyRoleID = roleID })
	if err != nil {
		a.log.Error("notify role persist failed", logx.String("guild", it.GuildID), logx.Err(err))
		a.reply(ctx, it, a.lang.Text("commands.internal_error"))
		return
	}
	if roleID == "" {
		a.reply(ctx, it, a.lang.Text("commands.notify_role_cleared"))
		return
	}
	mention := "<@&" + roleID + ">"
	if role, rerr := a.tr.ResolveRole(ctx, it.GuildID, roleID); rerr == nil {
		mention = role.Mention
	}
	a.reply(ctx, it, a.lang.Format("commands.notify_role_set", map[string]string{"role": mention}))
}

func (a *App) cmdWelcomeChannel(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	channelID := it.Options["channel"]
	if channelID == "" {
		a.reply(ctx, it, a.lang.Text("commands.missing_channel"))
		return
	}
	if _, err := a.tr.ResolveChannel(ctx, channelID); err != nil {
		a.reply(ctx, it, a.lang.Text("commands.missing_channel"))
		return
	}
	err := a.settings.Update(ctx, it.GuildID, func(s *guildstore.Settings) { s.WelcomeChannelID = channelID })
	if err != nil {
		a.log.Error("welcome channel persist failed", logx.String("guild", it.GuildID), logx.Err(err))
		a.reply(ctx, it, a.lang.Text("commands.internal_error"))
		return
	}
	a.reply(ctx, it, a.lang.Format("commands.welcome_set", map[string]string{"channel": channelMention(channelID)}))
}

func (a *App) cmdLamps(ctx context.Context, it *transport.Interaction) {
	kind, kerr := lamp.ParseKind(it.Options["kind"])
	level, lerr := strconv.Atoi(it.Options["level"])
	target, terr := strconv.ParseInt(it.Options["target"], 10, 64)
	if kerr != nil || lerr != nil || terr != nil {
		a.replyBadLampInput(ctx, it)
		return
	}
	res, err := a.lamps.LampsNeeded(kind, level, target)
	if err != nil {
		a.replyBadLampInput(ctx, it)
		return
	}
	a.reply(ctx, it, a.lang.Format("lamp.result", map[string]string{
		"kind":   string(res.Kind),
		"level":  strconv.Itoa(res.Level),
		"target": strconv.FormatInt(res.Target, 10),
		"lamps":  strconv.FormatInt(res.LampsNeeded, 10),
		"avg":    strconv.FormatFloat(res.AveragePerLamp, 'f', 1, 64),
	}))
}

func (a *App) replyBadLampInput(ctx context.Context, it *transport.Interaction) {
	a.reply(ctx, it, a.lang.Format("lamp.bad_input", map[string]string{
		"max_level": strconv.Itoa(lamp.MaxLevel),
	}))
}

func (a *App) cmdReload(ctx context.Context, it *transport.Interaction) {
	if !a.requireAdmin(ctx, it) {
		return
	}
	if err := a.cfgMgr.Reload(ctx); err != nil {
		a.log.Warn("manual config reload failed", logx.Err(err))
		a.reply(ctx, it, a.lang.Text("commands.internal_error"))
		return
	}
	a.reply(ctx, it, a.lang.Text("commands.reloaded"))
}

func (a *App) reply(ctx context.Context, it *transport.Interaction, text string) {
	if text == "" {
		text = a.lang.Text("commands.internal_error")
	}
	if err := a.tr.Respond(ctx, it, text); err != nil {
		a.log.Warn("interaction reply failed", logx.String("command", it.Command), logx.Err(err))
	}
}

func channelMention(channelID string) string { return "<#" + channelID + ">" }

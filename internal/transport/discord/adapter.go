// Package discord implements the transport.Adapter contract on top of
// discordgo. All platform error codes are translated to the transport
// sentinel errors at this boundary, so nothing above it imports discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// Discord REST error codes this adapter branches on.
const (
	codeUnknownChannel   = 10003
	codeUnknownRole      = 10011
	codeUnknownMessage   = 10008
	codeBulkDeleteTooOld = 50034
)

// bulkDeleteMax is Discord's per-call bulk delete cap.
const bulkDeleteMax = 100

type Adapter struct {
	log     logx.Logger
	session *discordgo.Session

	// commandGuild scopes slash-command registration to one guild when set.
	commandGuild string

	ready atomic.Bool
	out   chan<- transport.Update
}

var _ transport.Adapter = (*Adapter)(nil)

func New(token, commandGuild string, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages
	s.StateEnabled = true

	return &Adapter{log: log, session: s, commandGuild: commandGuild}, nil
}

// Start registers the gateway handlers and opens the websocket. Events are
// forwarded to out; a full channel drops the event rather than blocking the
// gateway reader.
func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.out = out

	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.ready.Store(true)
		a.log.Info("discord gateway ready",
			logx.String("user", r.User.Username),
			logx.Int("guilds", len(r.Guilds)))
		a.emit(transport.Update{Kind: transport.UpdateReady})
	})
	a.session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		a.ready.Store(false)
		a.log.Warn("discord gateway disconnected")
	})
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		a.emit(transport.Update{Kind: transport.UpdateInteraction, Interaction: a.toInteraction(i)})
	})
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.User == nil || m.User.Bot {
			return
		}
		a.emit(transport.Update{Kind: transport.UpdateMemberJoin, MemberJoin: &transport.MemberJoin{
			GuildID: m.GuildID,
			UserID:  m.User.ID,
			Mention: m.User.Mention(),
			UserTag: m.User.Username,
		}})
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.ready.Store(false)
	return a.session.Close()
}

func (a *Adapter) Ready() bool { return a.ready.Load() }

func (a *Adapter) emit(u transport.Update) {
	if a.out == nil {
		return
	}
	select {
	case a.out <- u:
	default:
		a.log.Warn("update queue full; dropping event", logx.String("kind", string(u.Kind)))
	}
}

func (a *Adapter) toInteraction(i *discordgo.InteractionCreate) *transport.Interaction {
	data := i.ApplicationCommandData()
	opts := make(map[string]string, len(data.Options))
	for _, o := range data.Options {
		switch o.Type {
		case discordgo.ApplicationCommandOptionString:
			opts[o.Name] = o.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			opts[o.Name] = fmt.Sprintf("%d", o.IntValue())
		default:
			// Channel, role and the rest all carry an ID-shaped value.
			opts[o.Name] = fmt.Sprint(o.Value)
		}
	}

	it := &transport.Interaction{
		ID:      i.ID,
		Token:   i.Token,
		GuildID: i.GuildID,
		Command: data.Name,
		Options: opts,
	}
	if i.Member != nil && i.Member.User != nil {
		it.UserID = i.Member.User.ID
		it.UserTag = i.Member.User.Username
		it.Admin = i.Member.Permissions&discordgo.PermissionManageGuild != 0
	} else if i.User != nil {
		it.UserID = i.User.ID
		it.UserTag = i.User.Username
	}
	return it
}

func (a *Adapter) ResolveChannel(ctx context.Context, channelID string) (transport.Channel, error) {
	if strings.TrimSpace(channelID) == "" {
		return transport.Channel{}, transport.ErrChannelNotFound
	}
	ch, err := a.session.State.Channel(channelID)
	if err != nil {
		ch, err = a.session.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil {
		return transport.Channel{}, mapError(err)
	}
	return transport.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

func (a *Adapter) ResolveRole(ctx context.Context, guildID, roleID string) (transport.Role, error) {
	roles, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return transport.Role{}, mapError(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return transport.Role{ID: r.ID, Name: r.Name, Mention: r.Mention()}, nil
		}
	}
	return transport.Role{}, transport.ErrRoleNotFound
}

func (a *Adapter) Send(ctx context.Context, channelID string, c transport.Content) (transport.MessageRef, error) {
	msg := &discordgo.MessageSend{Content: c.Text}
	if c.Embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{toEmbed(c.Embed)}
	}
	m, err := a.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return transport.MessageRef{}, mapError(err)
	}
	return transport.MessageRef{ChannelID: channelID, MessageID: m.ID}, nil
}

func (a *Adapter) Edit(ctx context.Context, ref transport.MessageRef, c transport.Content) error {
	if ref.IsZero() {
		return transport.ErrMessageNotFound
	}
	var embeds []*discordgo.MessageEmbed
	if c.Embed != nil {
		embeds = []*discordgo.MessageEmbed{toEmbed(c.Embed)}
	}
	_, err := a.session.ChannelMessageEditEmbeds(ref.ChannelID, ref.MessageID, embeds, discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) Delete(ctx context.Context, ref transport.MessageRef) error {
	if ref.IsZero() {
		return transport.ErrMessageNotFound
	}
	return mapError(a.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)))
}

func (a *Adapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]transport.MessageInfo, error) {
	if limit <= 0 || limit > bulkDeleteMax {
		limit = bulkDeleteMax
	}
	msgs, err := a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	me := ""
	if a.session.State != nil && a.session.State.User != nil {
		me = a.session.State.User.ID
	}

	out := make([]transport.MessageInfo, 0, len(msgs))
	for _, m := range msgs {
		info := transport.MessageInfo{
			Ref:    transport.MessageRef{ChannelID: channelID, MessageID: m.ID},
			FromMe: m.Author != nil && m.Author.ID == me,
		}
		if len(m.Embeds) > 0 {
			info.EmbedTitle = m.Embeds[0].Title
		}
		out = append(out, info)
	}
	return out, nil
}

func (a *Adapter) BulkDelete(ctx context.Context, channelID string, refs []transport.MessageRef) error {
	if len(refs) == 0 {
		return nil
	}
	// Bulk delete needs at least two messages.
	if len(refs) == 1 {
		return a.Delete(ctx, refs[0])
	}

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.MessageID)
	}
	for len(ids) > 0 {
		chunk := ids
		if len(chunk) > bulkDeleteMax {
			chunk = chunk[:bulkDeleteMax]
		}
		if err := a.session.ChannelMessagesBulkDelete(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return mapError(err)
		}
		ids = ids[len(chunk):]
	}
	return nil
}

func (a *Adapter) RegisterCommands(ctx context.Context, cmds []transport.Command) error {
	appID := ""
	if a.session.State != nil && a.session.State.User != nil {
		appID = a.session.State.User.ID
	}
	if appID == "" {
		return errors.New("cannot register commands before the gateway is ready")
	}

	dcmds := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		dc := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		if c.AdminOnly {
			perms := int64(discordgo.PermissionManageGuild)
			dc.DefaultMemberPermissions = &perms
		}
		for _, o := range c.Options {
			dc.Options = append(dc.Options, &discordgo.ApplicationCommandOption{
				Name:        o.Name,
				Description: o.Description,
				Type:        toOptionType(o.Kind),
				Required:    o.Required,
			})
		}
		dcmds = append(dcmds, dc)
	}

	_, err := a.session.ApplicationCommandBulkOverwrite(appID, a.commandGuild, dcmds, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	scope := "global"
	if a.commandGuild != "" {
		scope = "guild " + a.commandGuild
	}
	a.log.Info("slash commands registered", logx.Int("count", len(dcmds)), logx.String("scope", scope))
	return nil
}

// Respond sends an ephemeral reply to a slash command invocation.
func (a *Adapter) Respond(ctx context.Context, it *transport.Interaction, text string) error {
	if it == nil {
		return errors.New("nil interaction")
	}
	return a.session.InteractionRespond(
		&discordgo.Interaction{ID: it.ID, Token: it.Token},
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
		discordgo.WithContext(ctx),
	)
}

func (a *Adapter) SetPresence(ctx context.Context, p transport.Presence) error {
	_ = ctx
	if p.Text == "" {
		return nil
	}
	switch strings.ToLower(p.Type) {
	case "watching":
		return a.session.UpdateWatchStatus(0, p.Text)
	case "listening":
		return a.session.UpdateListeningStatus(p.Text)
	default:
		return a.session.UpdateGameStatus(0, p.Text)
	}
}

func toEmbed(e *transport.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}

func toOptionType(k transport.CommandOptionKind) discordgo.ApplicationCommandOptionType {
	switch k {
	case transport.OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case transport.OptionChannel:
		return discordgo.ApplicationCommandOptionChannel
	case transport.OptionRole:
		return discordgo.ApplicationCommandOptionRole
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

// mapError translates discordgo REST errors into transport sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case codeUnknownChannel:
			return transport.ErrChannelNotFound
		case codeUnknownMessage:
			return transport.ErrMessageNotFound
		case codeUnknownRole:
			return transport.ErrRoleNotFound
		case codeBulkDeleteTooOld:
			return transport.ErrBulkDeleteTooOld
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return transport.ErrChannelNotFound
	}
	return err
}

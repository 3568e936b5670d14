package transport

import (
	"context"
	"errors"
)

// Sentinel errors the domain layer is allowed to branch on.
// Adapters map platform error codes onto these so callers never
// inspect SDK-specific error types.
var (
	// ErrChannelNotFound: the channel does not exist or the bot cannot see it.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrMessageNotFound: the edit/delete target no longer exists.
	ErrMessageNotFound = errors.New("message not found")
	// ErrBulkDeleteTooOld: the platform refused a bulk delete because one or
	// more messages exceed its bulk-delete age limit. Callers fall back to
	// per-message deletes.
	ErrBulkDeleteTooOld = errors.New("bulk delete rejected for old messages")
	// ErrRoleNotFound: the role is not present in the guild (anymore).
	ErrRoleNotFound = errors.New("role not found")
)

type UpdateKind string

const (
	UpdateInteraction UpdateKind = "interaction"
	UpdateMemberJoin  UpdateKind = "member_join"
	UpdateReady       UpdateKind = "ready"
)

// Update is a platform event delivered to the app loop.
type Update struct {
	Kind        UpdateKind
	Interaction *Interaction
	MemberJoin  *MemberJoin
}

// Interaction is a received slash-command invocation.
type Interaction struct {
	ID      string
	Token   string
	GuildID string
	UserID  string
	UserTag string
	Command string
	Options map[string]string

	// Admin reports whether the invoker may manage the guild. The platform
	// already gates admin commands; this is the second line of defense.
	Admin bool
}

type MemberJoin struct {
	GuildID string
	UserID  string
	Mention string
	UserTag string
}

// MessageRef identifies a message the bot owns.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (r MessageRef) IsZero() bool { return r.MessageID == "" }

// MessageInfo is a listing entry used by channel sweeps.
type MessageInfo struct {
	Ref        MessageRef
	FromMe     bool
	EmbedTitle string // first embed title, "" if none
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the platform-neutral rich message body.
type Embed struct {
	Title       string
	Description string
	Color       int
	Thumbnail   string
	Footer      string
	Fields      []EmbedField
}

// Content is what gets sent or edited: plain text, an embed, or both.
type Content struct {
	Text  string
	Embed *Embed
}

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

type Role struct {
	ID      string
	Name    string
	Mention string
}

// Command describes a slash command to register with the platform.
type Command struct {
	Name        string
	Description string
	AdminOnly   bool
	Options     []CommandOption
}

type CommandOptionKind string

const (
	OptionString  CommandOptionKind = "string"
	OptionInteger CommandOptionKind = "integer"
	OptionChannel CommandOptionKind = "channel"
	OptionRole    CommandOptionKind = "role"
)

type CommandOption struct {
	Name        string
	Description string
	Kind        CommandOptionKind
	Required    bool
}

// Presence mirrors the bot's activity line.
type Presence struct {
	Type   string // "playing", "watching", "listening"
	Text   string
	Status string // "online", "idle", "dnd"
}

// Adapter abstracts the messaging platform. Calls may block on network
// I/O, so callers re-read registry state after any call that can fail.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	Ready() bool

	ResolveChannel(ctx context.Context, channelID string) (Channel, error)
	ResolveRole(ctx context.Context, guildID, roleID string) (Role, error)

	Send(ctx context.Context, channelID string, c Content) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, c Content) error
	Delete(ctx context.Context, ref MessageRef) error

	// RecentMessages lists up to limit recent messages for sweep filtering.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]MessageInfo, error)
	// BulkDelete removes the given messages in one call where the platform
	// allows it, returning ErrBulkDeleteTooOld when it does not.
	BulkDelete(ctx context.Context, channelID string, refs []MessageRef) error

	RegisterCommands(ctx context.Context, cmds []Command) error
	Respond(ctx context.Context, it *Interaction, text string) error
	SetPresence(ctx context.Context, p Presence) error
}

package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mushbot/internal/config"
	"mushbot/internal/countdown"
	"mushbot/internal/lamp"
	"mushbot/internal/lang"
	"mushbot/internal/sched"
	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// fakeTimers is a sched.Port that only records registrations. Timer
// behavior itself is covered by the countdown package tests.
type fakeTimers struct {
	mu    sync.Mutex
	every map[string]time.Duration
	once  map[string]time.Time
}

var _ sched.Port = (*fakeTimers)(nil)

func newFakeTimers() *fakeTimers {
	return &fakeTimers{every: map[string]time.Duration{}, once: map[string]time.Time{}}
}

func (f *fakeTimers) Every(name string, interval time.Duration, job sched.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.every[name] = interval
	delete(f.once, name)
	return nil
}

func (f *fakeTimers) Once(name string, at time.Time, job sched.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once[name] = at
}

func (f *fakeTimers) Cancel(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, e := f.every[name]
	_, o := f.once[name]
	delete(f.every, name)
	delete(f.once, name)
	return e || o
}

type sendRec struct {
	channelID string
	content   transport.Content
}

// fakeAdapter is an in-memory transport.Adapter that records everything
// the app sends or replies.
type fakeAdapter struct {
	mu       sync.Mutex
	ready    bool
	channels map[string]bool
	roles    map[string]transport.Role // "guild/role"

	nextID   int
	sends    []sendRec
	deletes  []transport.MessageRef
	replies  []string
	commands []transport.Command
	presence *transport.Presence
}

var _ transport.Adapter = (*fakeAdapter)(nil)

func newFakeAdapter(channels ...string) *fakeAdapter {
	f := &fakeAdapter{ready: true, channels: map[string]bool{}, roles: map[string]transport.Role{}}
	for _, c := range channels {
		f.channels[c] = true
	}
	return f
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }

func (f *fakeAdapter) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeAdapter) ResolveChannel(ctx context.Context, channelID string) (transport.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.channels[channelID] {
		return transport.Channel{}, transport.ErrChannelNotFound
	}
	return transport.Channel{ID: channelID}, nil
}

func (f *fakeAdapter) ResolveRole(ctx context.Context, guildID, roleID string) (transport.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[guildID+"/"+roleID]
	if !ok {
		return transport.Role{}, transport.ErrRoleNotFound
	}
	return r, nil
}

func (f *fakeAdapter) Send(ctx context.Context, channelID string, c transport.Content) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.channels[channelID] {
		return transport.MessageRef{}, transport.ErrChannelNotFound
	}
	f.nextID++
	f.sends = append(f.sends, sendRec{channelID: channelID, content: c})
	return transport.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", f.nextID)}, nil
}

func (f *fakeAdapter) Edit(ctx context.Context, ref transport.MessageRef, c transport.Content) error {
	return nil
}

func (f *fakeAdapter) Delete(ctx context.Context, ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ref)
	return nil
}

func (f *fakeAdapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]transport.MessageInfo, error) {
	return nil, nil
}

func (f *fakeAdapter) BulkDelete(ctx context.Context, channelID string, refs []transport.MessageRef) error {
	return nil
}

func (f *fakeAdapter) RegisterCommands(ctx context.Context, cmds []transport.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = cmds
	return nil
}

func (f *fakeAdapter) Respond(ctx context.Context, it *transport.Interaction, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeAdapter) SetPresence(ctx context.Context, p transport.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = &p
	return nil
}

func (f *fakeAdapter) lastReply(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		t.Fatal("no interaction reply recorded")
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeAdapter) sendsTo(channelID string) []sendRec {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sendRec
	for _, s := range f.sends {
		if s.channelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

// newTestApp wires an App over fakes with an in-memory settings store.
func newTestApp(t *testing.T, channels ...string) (*App, *fakeAdapter, *fakeTimers) {
	t.Helper()
	tr := newFakeAdapter(channels...)
	tm := newFakeTimers()
	log := logx.Nop()

	langSvc := lang.New(log)
	settings := newSettingsStore(log, nil, config.GuildDefaults{
		ServerName: "Asia",
		ResetTime:  "04:00:00",
		UTCOffset:  "UTC",
	})
	reg := countdown.NewRegistry(log, tm)
	mgr := countdown.NewManager(log, tr, tm, reg, countdown.NewRenderer(langSvc), settings, countdown.Options{})

	a := &App{
		log:      log,
		cfgMgr:   config.NewManager(filepath.Join(t.TempDir(), "config.yml"), log),
		tr:       tr,
		lang:     langSvc,
		lamps:    lamp.NewCalculator(log),
		settings: settings,
		manager:  mgr,
		updates:  make(chan transport.Update, 8),
		readyCh:  make(chan struct{}),
	}
	return a, tr, tm
}

func adminInteraction(guildID, cmd string, opts map[string]string) *transport.Interaction {
	if opts == nil {
		opts = map[string]string{}
	}
	return &transport.Interaction{
		ID:      "i1",
		Token:   "tok",
		GuildID: guildID,
		UserID:  "u1",
		UserTag: "user#0",
		Command: cmd,
		Options: opts,
		Admin:   true,
	}
}

package countdown

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mushbot/internal/sched"
	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// fakeTimers records armed schedules by name so tests drive ticks manually.
type fakeTimers struct {
	mu    sync.Mutex
	every map[string]sched.Job
	once  map[string]fakeOnce
}

type fakeOnce struct {
	at  time.Time
	job sched.Job
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{every: map[string]sched.Job{}, once: map[string]fakeOnce{}}
}

func (f *fakeTimers) Every(name string, interval time.Duration, job sched.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.once, name)
	f.every[name] = job
	return nil
}

func (f *fakeTimers) Once(name string, at time.Time, job sched.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once[name] = fakeOnce{at: at, job: job}
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

func (f *fakeTimers) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, e := f.every[name]
	_, o := f.once[name]
	return e || o
}

func (f *fakeTimers) onceAt(name string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.once[name]
	return o.at, ok
}

// tick runs a recurring job by name. The job must be armed.
func (f *fakeTimers) tick(t *testing.T, ctx context.Context, name string) error {
	t.Helper()
	f.mu.Lock()
	job, ok := f.every[name]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no recurring timer %q armed", name)
	}
	return job(ctx)
}

// fire consumes and runs a one-shot job by name.
func (f *fakeTimers) fire(t *testing.T, ctx context.Context, name string) error {
	t.Helper()
	f.mu.Lock()
	o, ok := f.once[name]
	delete(f.once, name)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no one-shot timer %q armed", name)
	}
	return o.job(ctx)
}

// fakeMsg is a message the fake adapter is tracking.
type fakeMsg struct {
	ref     transport.MessageRef
	content transport.Content
	deleted bool
	edits   int
}

// fakeAdapter is an in-memory transport with injectable failures.
type fakeAdapter struct {
	mu sync.Mutex

	ready    bool
	channels map[string]bool
	roles    map[string]transport.Role // guildID + "/" + roleID

	nextID int
	msgs   map[string]*fakeMsg

	recent map[string][]transport.MessageInfo

	sendErr error
	editErr error
	bulkErr error

	sends       []transport.MessageRef
	deletes     []transport.MessageRef
	bulkDeletes [][]transport.MessageRef
}

func newFakeAdapter(channels ...string) *fakeAdapter {
	f := &fakeAdapter{
		ready:    true,
		channels: map[string]bool{},
		roles:    map[string]transport.Role{},
		msgs:     map[string]*fakeMsg{},
		recent:   map[string][]transport.MessageInfo{},
	}
	for _, ch := range channels {
		f.channels[ch] = true
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
	if f.sendErr != nil {
		return transport.MessageRef{}, f.sendErr
	}
	f.nextID++
	ref := transport.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", f.nextID)}
	f.msgs[ref.MessageID] = &fakeMsg{ref: ref, content: c}
	f.sends = append(f.sends, ref)
	return ref, nil
}

func (f *fakeAdapter) Edit(ctx context.Context, ref transport.MessageRef, c transport.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	m, ok := f.msgs[ref.MessageID]
	if !ok || m.deleted {
		return transport.ErrMessageNotFound
	}
	m.content = c
	m.edits++
	return nil
}

func (f *fakeAdapter) Delete(ctx context.Context, ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ref)
	m, ok := f.msgs[ref.MessageID]
	if !ok || m.deleted {
		return transport.ErrMessageNotFound
	}
	m.deleted = true
	return nil
}

func (f *fakeAdapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]transport.MessageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recent[channelID], nil
}

func (f *fakeAdapter) BulkDelete(ctx context.Context, channelID string, refs []transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeletes = append(f.bulkDeletes, refs)
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for _, ref := range refs {
		if m, ok := f.msgs[ref.MessageID]; ok {
			m.deleted = true
		}
	}
	return nil
}

func (f *fakeAdapter) RegisterCommands(ctx context.Context, cmds []transport.Command) error { return nil }
func (f *fakeAdapter) Respond(ctx context.Context, it *transport.Interaction, text string) error {
	return nil
}
func (f *fakeAdapter) SetPresence(ctx context.Context, p transport.Presence) error { return nil }

// msg returns the tracked message for a ref, failing the test if unknown.
func (f *fakeAdapter) msg(t *testing.T, ref transport.MessageRef) *fakeMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[ref.MessageID]
	if !ok {
		t.Fatalf("unknown message %q", ref.MessageID)
	}
	return m
}

// dropMsg simulates an external deletion without going through Delete.
func (f *fakeAdapter) dropMsg(ref transport.MessageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.msgs[ref.MessageID]; ok {
		m.deleted = true
	}
}

// fakeLang serves templates from a map; Format does {key} substitution.
type fakeLang struct {
	texts map[string]string
}

func (f *fakeLang) Text(path string) string { return f.texts[path] }

func (f *fakeLang) Format(path string, repl map[string]string) string {
	out := f.texts[path]
	for k, v := range repl {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// fakeSettings returns per-guild settings with a shared fallback.
type fakeSettings struct {
	mu       sync.Mutex
	byGuild  map[string]GuildSettings
	fallback GuildSettings
}

func (f *fakeSettings) Guild(guildID string) GuildSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byGuild[guildID]; ok {
		return s
	}
	return f.fallback
}

func (f *fakeSettings) set(guildID string, s GuildSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byGuild == nil {
		f.byGuild = map[string]GuildSettings{}
	}
	f.byGuild[guildID] = s
}

// fixture wires a Manager against the fakes with a controllable clock.
type fixture struct {
	m   *Manager
	tr  *fakeAdapter
	tm  *fakeTimers
	reg *Registry
	set *fakeSettings

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, channels ...string) *fixture {
	t.Helper()
	fx := &fixture{
		tr:  newFakeAdapter(channels...),
		tm:  newFakeTimers(),
		now: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
	}
	fx.set = &fakeSettings{fallback: GuildSettings{
		ServerName: "Asia",
		ResetTime:  "00:00:00",
		UTCOffset:  "UTC-4",
	}}
	log := logx.Nop()
	fx.reg = NewRegistry(log, fx.tm)
	lang := &fakeLang{texts: map[string]string{
		"countdown.title":       "Daily Reset Countdown",
		"countdown.description": "{server} resets in {remaining}",
		"reset.title":           "Daily Reset",
		"reset.description":     "{server} reset {elapsed}",
	}}
	fx.m = NewManager(log, fx.tr, fx.tm, fx.reg, NewRenderer(lang), fx.set, Options{
		UpdateInterval: time.Minute,
		SettleDelay:    time.Second,
		AutoDelete:     3 * time.Hour,
		SweepLimit:     100,
	})
	fx.m.now = func() time.Time {
		fx.mu.Lock()
		defer fx.mu.Unlock()
		return fx.now
	}
	return fx
}

func (fx *fixture) setNow(t time.Time) {
	fx.mu.Lock()
	fx.now = t
	fx.mu.Unlock()
}

func (fx *fixture) advance(d time.Duration) {
	fx.mu.Lock()
	fx.now = fx.now.Add(d)
	fx.mu.Unlock()
}

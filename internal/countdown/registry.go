package countdown

import (
	"sync"
	"time"

	"mushbot/internal/sched"
	"mushbot/internal/transport"
	"mushbot/pkg/logx"
)

// State is everything tracked for one guild's reset lifecycle. The zero
// value means "nothing live".
type State struct {
	// ChannelID is the channel both messages live in.
	ChannelID string

	// CountdownMsg is the live countdown message, if any.
	CountdownMsg transport.MessageRef
	// CountdownTimer is the name of the recurring update timer for the
	// countdown message, or "" when none is armed.
	CountdownTimer string

	// ResetMsg is the live post-reset announcement, if any.
	ResetMsg transport.MessageRef
	// ResetTimer is the name of the recurring update timer for the reset
	// announcement, or "" when none is armed.
	ResetTimer string

	// HandoffTimer is the name of the one-shot timer armed at the exact
	// reset instant, or "" when none is armed.
	HandoffTimer string

	// LastReset is the instant the current reset cycle began. Non-zero
	// whenever ResetMsg is live, and preserved across channel moves so the
	// elapsed time (and the auto-delete deadline) survives migration.
	LastReset time.Time
}

type regEntry struct {
	state State
	// gen is bumped on every Clear. Timer callbacks capture the generation
	// they were armed under and drop themselves when it has moved on, so a
	// cancelled timer never acts even if its task was already queued.
	gen uint64
}

// Registry is the single authority for per-guild lifecycle state. Every
// mutation happens under its lock; timers referenced by the state are
// cancelled through the injected scheduler on Clear.
type Registry struct {
	mu      sync.Mutex
	log     logx.Logger
	timers  sched.Port
	entries map[string]*regEntry
}

func NewRegistry(log logx.Logger, timers sched.Port) *Registry {
	return &Registry{
		log:     log,
		timers:  timers,
		entries: map[string]*regEntry{},
	}
}

// Get returns a copy of the guild's state. ok is false when the guild has
// never been tracked.
func (r *Registry) Get(guildID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[guildID]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Gen returns the guild's current generation. Callbacks compare it against
// the generation they captured when armed.
func (r *Registry) Gen(guildID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[guildID]; ok {
		return e.gen
	}
	return 0
}

// Update applies fn to the guild's state under the registry lock, creating
// the entry if needed.
func (r *Registry) Update(guildID string, fn func(st *State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[guildID]
	if !ok {
		e = &regEntry{}
		r.entries[guildID] = e
	}
	fn(&e.state)
}

// Clear cancels every timer held for the guild and zeroes its state. The
// generation is bumped so in-flight callbacks from the old lifecycle become
// no-ops. The entry itself survives so the generation keeps counting.
func (r *Registry) Clear(guildID string) {
	r.mu.Lock()
	e, ok := r.entries[guildID]
	if !ok {
		e = &regEntry{}
		r.entries[guildID] = e
	}
	names := []string{e.state.CountdownTimer, e.state.ResetTimer, e.state.HandoffTimer}
	e.state = State{}
	e.gen++
	r.mu.Unlock()

	for _, name := range names {
		if name != "" {
			r.timers.Cancel(name)
		}
	}
	r.log.Debug("guild state cleared", logx.String("guild", guildID))
}

// ClearAll clears every tracked guild. Called once at startup so a restart
// begins from a clean slate.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Clear(id)
	}
}

// Guilds returns the IDs of all tracked guilds with any live state.
func (r *Registry) Guilds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.state != (State{}) {
			ids = append(ids, id)
		}
	}
	return ids
}

package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mushbot/pkg/logx"
)

const defaultWorkers = 2

var _ Port = (*Service)(nil)

func New(log logx.Logger) *Service {
	return &Service{
		log:     log,
		parser:  cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timers:  map[string]*time.Timer{},
		onceVer: map[string]uint64{},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	// Fresh queue per run to avoid executing stale enqueued tasks after a
	// stop/start toggle.
	s.queue = make(chan task, 256)

	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(time.UTC))

	// Re-register definitions kept across a previous stop (if any).
	for i := range s.defs {
		s.addEveryLocked(&s.defs[i])
	}

	stopCh := s.stopCh
	queue := s.queue
	for i := 0; i < defaultWorkers; i++ {
		idx := i
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in sched worker", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				}
			}()
			s.worker(ctx, stopCh, queue)
		}()
	}
	s.c.Start()
	s.log.Info("timer service started", logx.Int("workers", defaultWorkers), logx.Int("schedules", len(s.defs)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	if s.c != nil {
		select {
		case <-s.c.Stop().Done():
		case <-ctx.Done():
		}
		s.c = nil
	}

	// Stop all one-shot timers. Versions are bumped so callbacks already
	// queued by the runtime become no-ops.
	s.tmu.Lock()
	for name, t := range s.timers {
		_ = t.Stop()
		s.onceVer[name]++
	}
	s.timers = map[string]*time.Timer{}
	s.tmu.Unlock()

	s.log.Info("timer service stopped")
}

// Every arms a recurring schedule under name, replacing any previous
// registration with the same name (recurring or one-shot).
func (s *Service) Every(name string, interval time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	s.cancelOnce(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeScheduleLocked(name)
	s.defs = append(s.defs, scheduleDef{name: name, every: interval, job: job})
	if s.c != nil {
		s.addEveryLocked(&s.defs[len(s.defs)-1])
	}
	s.log.Debug("schedule armed", logx.String("name", name), logx.Duration("every", interval))
	return nil
}

// Once arms a one-shot timer for the absolute instant at, replacing any
// previous one-shot with the same name. An instant in the past fires
// immediately.
func (s *Service) Once(name string, at time.Time, job Job) {
	name = strings.TrimSpace(name)
	if name == "" || job == nil {
		return
	}

	s.tmu.Lock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
	}
	ver := s.onceVer[name] + 1
	s.onceVer[name] = ver

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	localName := name
	localVer := ver
	timer := time.AfterFunc(delay, func() {
		// If the timer was cancelled or replaced after this callback was
		// scheduled, ignore it.
		s.tmu.Lock()
		if s.onceVer[localName] != localVer {
			s.tmu.Unlock()
			return
		}
		delete(s.timers, localName)
		s.tmu.Unlock()

		s.enqueue(task{name: localName, run: job})
	})
	s.timers[name] = timer
	s.tmu.Unlock()

	s.log.Debug("one-shot armed", logx.String("name", name), logx.Time("at", at))
}

// Cancel unschedules everything registered under name. It returns true if
// something was removed. Cancelling an absent name is a no-op.
func (s *Service) Cancel(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()

	if s.cancelOnce(name) {
		removed = true
	}

	if removed {
		s.log.Debug("schedule cancelled", logx.String("name", name))
	}
	return removed
}

func (s *Service) cancelOnce(name string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	t, ok := s.timers[name]
	if !ok {
		return false
	}
	_ = t.Stop()
	delete(s.timers, name)
	// Bump the version so an already-fired callback observes the
	// cancellation and drops the task instead of enqueueing it.
	s.onceVer[name]++
	return true
}

// removeScheduleLocked removes all defs matching name and unregisters them
// from cron if running. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addEveryLocked(d *scheduleDef) {
	spec := fmt.Sprintf("@every %s", d.every.String())
	eid, err := s.c.AddFunc(spec, func() {
		s.enqueue(task{name: d.name, run: d.job})
	})
	if err != nil {
		s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", spec), logx.Err(err))
		return
	}
	d.entryID = eid
}

func (s *Service) enqueue(t task) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		s.log.Debug("timer service not running; dropping task", logx.String("task", t.name))
		return
	}
	select {
	case q <- t:
	default:
		s.log.Warn("timer queue full; dropping task", logx.String("task", t.name), logx.Int("queue_cap", cap(q)))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan task) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			s.execOne(ctx, t)
		}
	}
}

func (s *Service) execOne(ctx context.Context, t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in timer callback", logx.String("task", t.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	err := t.run(ctx)
	dur := time.Since(start)
	if err != nil {
		// The schedule stays armed; the next tick gets another chance.
		s.log.Warn("timer callback failed", logx.String("task", t.name), logx.Err(err), logx.Duration("dur", dur))
		return
	}
	s.log.Debug("timer callback completed", logx.String("task", t.name), logx.Duration("dur", dur))
}

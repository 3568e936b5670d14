package sched

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mushbot/pkg/logx"
)

// Job is a timer callback. Errors are logged at the worker boundary and
// never cancel the schedule that produced them.
type Job func(ctx context.Context) error

// Port is the scheduling surface the countdown controllers depend on.
// Tests substitute a fake so timer behavior is driven without wall-clock waits.
type Port interface {
	Every(name string, interval time.Duration, job Job) error
	Once(name string, at time.Time, job Job)
	Cancel(name string) bool
}

type task struct {
	name string
	run  Job
}

type scheduleDef struct {
	name    string
	every   time.Duration
	job     Job
	entryID cron.EntryID
}

// Service implements Port on top of robfig/cron (recurring schedules)
// and time.AfterFunc (one-shot timers).
type Service struct {
	mu sync.Mutex

	log logx.Logger

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	queue  chan task
	stopCh chan struct{}

	// One-shot timers. onceVer guards against stale callbacks from timers
	// that were replaced or cancelled after firing was already scheduled.
	tmu     sync.Mutex
	timers  map[string]*time.Timer
	onceVer map[string]uint64
}

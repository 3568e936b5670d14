// Package countdown owns the per-guild reset lifecycle: a live countdown
// message updated every tick, a precise hand-off at the reset instant, a
// post-reset announcement updated until an auto-delete deadline, and clean
// migration of both between channels.
//
// All shared state lives in the Registry, keyed by guild ID. Timers are
// named handles on a sched.Port, so the whole lifecycle can be driven in
// tests with a fake scheduler and a fixed clock.
package countdown

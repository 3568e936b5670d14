// Package sched provides the in-process timer service used by the
// countdown controllers.
//
// Jobs are registered under a logical name (e.g. "countdown:123456").
// Names are stable and human readable so that timers can be replaced
// (upserted) and cancelled deterministically:
//
//   - Every(name, interval, job) arms a recurring schedule, replacing any
//     schedule or one-shot previously registered under the same name.
//   - Once(name, at, job) arms a one-shot timer for an absolute instant,
//     clamped to "now" when the instant is already past.
//   - Cancel(name) is idempotent; cancelling an absent name is a no-op.
//
// Jobs run on a small worker pool with panic recovery. A job error is
// logged and the schedule stays armed, so one bad tick never kills a
// recurring timer.
package sched

package scheduler

import "time"

// Handle identifies a scheduled callback. The zero Handle is never
// returned by a Scheduler and cancelling it is a no-op.
type Handle uint64

// Scheduler schedules callbacks on the single thread of its owner.
type Scheduler interface {
	// ScheduleOnce calls fn once after d.
	ScheduleOnce(d time.Duration, fn func()) Handle
	// ScheduleRepeating calls fn every d until cancelled.
	ScheduleRepeating(d time.Duration, fn func()) Handle
	// Cancel stops h. A callback that has not started yet will not run.
	Cancel(h Handle)
}

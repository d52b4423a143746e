// Package scheduler runs callbacks on one logical thread.
//
// A Loop owns a goroutine that executes posted closures in order. Timers
// created with ScheduleOnce / ScheduleRepeating fire into the same Loop,
// so code driven by a Scheduler never needs a lock of its own.
//
// Manual is a Scheduler with a fake clock for tests: nothing fires until
// Advance is called, and then everything due fires in time order on the
// caller's goroutine.
package scheduler

// ABOUTME: Deferred-task scheduling used by the update monitor
// ABOUTME: Real implementation wraps time.AfterFunc; tests substitute a manual clock

package monitor

import "time"

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop prevents the task from firing. It reports false when the task
	// already fired or was already stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

// RealScheduler schedules on the runtime timer heap.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

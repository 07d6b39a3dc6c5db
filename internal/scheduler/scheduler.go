// Package scheduler implements the two collection policies a Runner ticks:
// frame-fair (FIFO, re-enqueue) and priority-ordered (sorted, re-sort on
// mutation). See spec.md §4.4.
package scheduler

import "github.com/hrygo/cadence/internal/task"

// DefaultCap is the maximum number of tasks a scheduler services per tick
// when none is configured.
const DefaultCap = 5

// Scheduler is the common contract both policies implement.
type Scheduler interface {
	// Schedule enqueues a single task.
	Schedule(t *task.Task)
	// ScheduleRange enqueues every task in ts.
	ScheduleRange(ts []*task.Task)
	// Remove drops the task with the given identity, if present.
	Remove(id uint64)
	// RemoveTask drops t: by identity once it has one, otherwise by pointer.
	RemoveTask(t *task.Task)
	// Get looks up a still-scheduled task by identity.
	Get(id uint64) (*task.Task, bool)
	// Clear drops every scheduled task.
	Clear()
	// Pause stops Tick from advancing tasks.
	Pause()
	// Resume restarts Tick.
	Resume()
	// Count reports how many tasks are currently scheduled.
	Count() int
	// Tick advances up to the configured cap of tasks by dt, applying the
	// policy's removal/re-enqueue rule. A no-op while paused.
	Tick(dt float64)
}

func clampCap(cap int) int {
	if cap < 1 {
		return 1
	}
	return cap
}

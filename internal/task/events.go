package task

import (
	"log/slog"
)

// StartedFunc is invoked the first time a task advances out of Pending.
type StartedFunc func(t *Task)

// CompletedFunc is invoked when a task reaches Completed.
type CompletedFunc func(t *Task)

// FailedFunc is invoked when a task reaches Failed, carrying the cause.
type FailedFunc func(t *Task, cause error)

// CancelledFunc is invoked when a task reaches Cancelled.
type CancelledFunc func(t *Task)

// ProgressFunc is invoked when progress changes by more than the debounce
// epsilon (see progressEpsilon).
type ProgressFunc func(t *Task, progress float64)

// dispatcher holds a task's lifecycle subscribers.
//
// Subscription is append-only; Clear drops every slice. Delivery is
// synchronous on the caller's goroutine (the ticking thread), matching the
// single-threaded cooperative model of this scheduler: a task never fires
// an event from any goroutine other than the one driving its execute call.
// Each callback is invoked under recover so a panicking subscriber cannot
// bring down the scheduler loop or prevent delivery to the next subscriber.
type dispatcher struct {
	started   []StartedFunc
	completed []CompletedFunc
	failed    []FailedFunc
	cancelled []CancelledFunc
	progress  []ProgressFunc
}

func (d *dispatcher) onStarted(f StartedFunc) {
	if f != nil {
		d.started = append(d.started, f)
	}
}

func (d *dispatcher) onCompleted(f CompletedFunc) {
	if f != nil {
		d.completed = append(d.completed, f)
	}
}

func (d *dispatcher) onFailed(f FailedFunc) {
	if f != nil {
		d.failed = append(d.failed, f)
	}
}

func (d *dispatcher) onCancelled(f CancelledFunc) {
	if f != nil {
		d.cancelled = append(d.cancelled, f)
	}
}

func (d *dispatcher) onProgress(f ProgressFunc) {
	if f != nil {
		d.progress = append(d.progress, f)
	}
}

func (d *dispatcher) clear() {
	d.started = nil
	d.completed = nil
	d.failed = nil
	d.cancelled = nil
	d.progress = nil
}

func safely(taskID uint64, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task: recovered panic in lifecycle subscriber",
				"task_id", taskID, "event", what, "panic", r)
		}
	}()
	fn()
}

func (d *dispatcher) fireStarted(t *Task) {
	for _, f := range d.started {
		f := f
		safely(t.id, "started", func() { f(t) })
	}
}

func (d *dispatcher) fireCompleted(t *Task) {
	for _, f := range d.completed {
		f := f
		safely(t.id, "completed", func() { f(t) })
	}
}

func (d *dispatcher) fireFailed(t *Task, cause error) {
	for _, f := range d.failed {
		f := f
		safely(t.id, "failed", func() { f(t, cause) })
	}
}

func (d *dispatcher) fireCancelled(t *Task) {
	for _, f := range d.cancelled {
		f := f
		safely(t.id, "cancelled", func() { f(t) })
	}
}

func (d *dispatcher) fireProgress(t *Task, p float64) {
	for _, f := range d.progress {
		f := f
		safely(t.id, "progress", func() { f(t, p) })
	}
}

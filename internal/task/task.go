package task

import (
	"log/slog"

	"github.com/pkg/errors"
)

// progressEpsilon is the debounce threshold below which a progress delta
// does not fire a progress-changed event. Implementation-defined per
// spec.md §9; callers relying on exact progress event counts should treat
// this as approximate.
const progressEpsilon = 1e-3

// Stepper is the kind-specific behavior a Task wraps. Leaf tasks and
// combinators both implement Stepper; Task supplies the uniform protocol of
// identity, priority, status, dependency gating, retry and event
// bookkeeping around whichever Stepper it holds.
//
// This is the tagged-variant-behind-an-interface shape recommended for a
// closed family of task kinds: Task never type-switches on the concrete
// Stepper; besides the three methods below it only uses the optional
// Cancellable and ownerBinder interfaces.
type Stepper interface {
	// Step advances this kind's own work by dt and reports completion.
	// A non-nil error is treated as a caught failure subject to the
	// retry policy; it must never be a sentinel for anything else.
	Step(dt float64) (done bool, err error)

	// Progress returns this kind's own progress in [0,1]. Called after
	// every Step; also called when Task is Paused or gated so progress
	// reporting from a blocked or paused task is still available.
	Progress() float64

	// Reset restores kind-specific bookkeeping (cursors, accumulators,
	// child task state) to the values it held at construction.
	Reset()
}

// Cancellable is implemented by Steppers that need to propagate Cancel to
// something they hold (the Timeout combinator cancels its wrapped child).
// Optional: most Steppers don't need it.
type Cancellable interface {
	CancelStep()
}

// ownerBinder is implemented by Steppers that need to cancel their own
// owning Task from within Step (the Sequence combinator cancels itself,
// rather than failing, when a child ends Failed or Cancelled -- spec.md
// §4.3). Binding happens once, at construction.
type ownerBinder interface {
	bindOwner(t *Task)
}

// Task is the uniform handle every leaf and combinator is constructed as.
// See spec.md §3 and §4.1 for the full protocol this type implements.
type Task struct {
	id       uint64
	name     string
	priority int

	status Status

	maxRetries int
	retries    int

	lastProgress float64
	started      bool

	dependencies []*Task

	stepper Stepper

	events dispatcher
}

// newTask wraps a Stepper in the uniform Task protocol, Pending, priority 0,
// no dependencies, no retries configured.
func newTask(name string, s Stepper) *Task {
	t := &Task{
		name:    name,
		status:  StatusPending,
		stepper: s,
	}
	if b, ok := s.(ownerBinder); ok {
		b.bindOwner(t)
	}
	return t
}

// ID returns the task's identity. Zero until the task is submitted to a
// Runner, which assigns identities from its own per-runner counter rather
// than a single process-wide atomic.
func (t *Task) ID() uint64 { return t.id }

// Name returns the task's user-facing label (for logging/debugging only;
// it does not participate in identity or equality).
func (t *Task) Name() string { return t.name }

// Priority returns the task's current scheduling priority. Larger runs
// earlier under the priority-ordered scheduler.
func (t *Task) Priority() int { return t.priority }

// WithPriority sets the priority and returns the task for chaining.
func (t *Task) WithPriority(p int) *Task {
	t.priority = p
	return t
}

// WithRetry sets the maximum number of retries after a caught failure
// before the task transitions to Failed.
func (t *Task) WithRetry(n int) *Task {
	if n < 0 {
		n = 0
	}
	t.maxRetries = n
	return t
}

// DependsOn appends preconditions: this task will not leave Pending until
// every dependency reaches Completed.
func (t *Task) DependsOn(deps ...*Task) *Task {
	t.dependencies = append(t.dependencies, deps...)
	return t
}

// Dependencies returns the task's current precondition list.
func (t *Task) Dependencies() []*Task { return append([]*Task(nil), t.dependencies...) }

// Status returns the current lifecycle status.
func (t *Task) Status() Status { return t.status }

// Progress returns the task's derived progress in [0,1].
func (t *Task) Progress() float64 {
	if t.status == StatusCompleted {
		return 1
	}
	return t.stepper.Progress()
}

// OnStarted subscribes to the started event.
func (t *Task) OnStarted(f StartedFunc) *Task { t.events.onStarted(f); return t }

// OnComplete subscribes to the completed event.
func (t *Task) OnComplete(f CompletedFunc) *Task { t.events.onCompleted(f); return t }

// OnFailed subscribes to the failed event.
func (t *Task) OnFailed(f FailedFunc) *Task { t.events.onFailed(f); return t }

// OnCancelled subscribes to the cancelled event.
func (t *Task) OnCancelled(f CancelledFunc) *Task { t.events.onCancelled(f); return t }

// OnProgress subscribes to the progress-changed event.
func (t *Task) OnProgress(f ProgressFunc) *Task { t.events.onProgress(f); return t }

// dependenciesMet reports whether every dependency has reached Completed.
func (t *Task) dependenciesMet() bool {
	for _, d := range t.dependencies {
		if d.Status() != StatusCompleted {
			return false
		}
	}
	return true
}

// Execute is the sole driver of forward motion for a task. See spec.md
// §4.1 steps 1-8 for the authoritative description; this implements them
// in order.
func (t *Task) Execute(dt float64) (done bool) {
	// 1. Terminal: tell the scheduler to remove us.
	if t.status.IsTerminal() {
		return true
	}

	// 2. Paused: re-queue without advancing.
	if t.status == StatusPaused {
		return false
	}

	// 3. Dependency gate.
	if !t.dependenciesMet() {
		return false
	}

	// 4. First real advance: Pending -> Running, fire started.
	if t.status == StatusPending {
		t.status = StatusRunning
		if !t.started {
			t.started = true
			t.events.fireStarted(t)
		}
	}

	// 5. Kind-specific step, catching synchronous failures/panics.
	stepDone, err := t.safeStep(dt)

	// 6. Progress debounce.
	p := t.Progress()
	if absFloat(p-t.lastProgress) > progressEpsilon {
		t.lastProgress = p
		t.events.fireProgress(t, p)
	}

	if err != nil {
		return t.handleFailure(err)
	}

	// 7. Completion. A Stepper may have already driven the task to a
	// terminal status itself (Sequence self-cancels on a failed/cancelled
	// child); in that case the terminal status it chose stands and we must
	// not overwrite it with Completed.
	if stepDone && !t.status.IsTerminal() {
		t.status = StatusCompleted
		t.lastProgress = 1
		t.events.fireProgress(t, 1)
		t.events.fireCompleted(t)
	}

	// 8. Return the step's done bit.
	return stepDone
}

// safeStep invokes the Stepper, converting a panic into an error so that
// Execute's failure handling is the single code path for both returned
// errors and panics raised inside user-supplied task bodies.
func (t *Task) safeStep(dt float64) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task %q (id=%d) panicked: %v", t.name, t.id, r)
			slog.Error("task: recovered panic during step", "task_id", t.id, "name", t.name, "panic", r)
		}
	}()
	return t.stepper.Step(dt)
}

// handleFailure implements the retry policy of spec.md §4.1: a caught
// failure increments the retry counter; while retries remain the task is
// reset internally (status -> Pending, kind-specific Reset, subscribers
// preserved) and execute reports not-done; once exhausted the task
// transitions to Failed and the failed event fires with the cause.
func (t *Task) handleFailure(cause error) bool {
	t.retries++
	if t.retries <= t.maxRetries {
		slog.Warn("task: step failed, retrying",
			"task_id", t.id, "name", t.name, "attempt", t.retries, "max_retries", t.maxRetries, "error", cause)
		t.status = StatusPending
		t.lastProgress = 0
		t.stepper.Reset()
		return false
	}

	slog.Error("task: step failed, retries exhausted",
		"task_id", t.id, "name", t.name, "retries", t.retries, "error", cause)
	t.status = StatusFailed
	t.events.fireFailed(t, cause)
	return true
}

// Pause transitions Running -> Paused. A no-op (logged) if not Running.
func (t *Task) Pause() {
	if t.status != StatusRunning {
		slog.Warn("task: pause on non-running task ignored", "task_id", t.id, "name", t.name, "status", t.status)
		return
	}
	t.status = StatusPaused
}

// Resume transitions Paused -> Running. A no-op (logged) if not Paused.
func (t *Task) Resume() {
	if t.status != StatusPaused {
		slog.Warn("task: resume on non-paused task ignored", "task_id", t.id, "name", t.name, "status", t.status)
		return
	}
	t.status = StatusRunning
}

// Cancel transitions any non-terminal status to Cancelled and fires the
// cancelled event. A cancelled composite does not automatically cancel
// its children (spec.md §5); Timeout is the one combinator that explicitly
// cancels its wrapped child, via Cancellable.
func (t *Task) Cancel() {
	if t.status.IsTerminal() {
		return
	}
	t.status = StatusCancelled
	if c, ok := t.stepper.(Cancellable); ok {
		c.CancelStep()
	}
	t.events.fireCancelled(t)
}

// Reset restores Pending, zeroes the retry counter and progress shadow,
// and calls the kind-specific Reset. Lifecycle subscribers are preserved.
// Idempotent: reset immediately followed by another reset is indistinguishable
// from one reset.
func (t *Task) Reset() {
	t.status = StatusPending
	t.retries = 0
	t.lastProgress = 0
	t.started = false
	t.stepper.Reset()
}

// Clear additionally drops priority, dependencies, and all lifecycle
// subscribers -- the pool calls this before returning a task to its
// freelist. Identity is left untouched: it is stable across reset/clear.
func (t *Task) Clear() {
	t.Reset()
	t.priority = 0
	t.dependencies = nil
	t.events.clear()
}

// AssignIdentity stamps the task's identity. Called once by a Runner at
// submission time from its own per-runner counter; a no-op if the task
// already has a non-zero identity (re-submission, or a task shared across
// parents per spec.md §9's "cyclic or shared children" note).
func (t *Task) AssignIdentity(id uint64) {
	if t.id == 0 {
		t.id = id
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

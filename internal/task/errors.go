package task

import "github.com/pkg/errors"

// ErrTimeout is the cause raised by the Timeout combinator when its child
// does not complete within the configured duration (spec.md §4.3).
var ErrTimeout = errors.New("task: timed out")

// ErrDependencyBlocked is never raised through the failed event -- the spec
// defines the dependency gate as silently withholding advancement rather
// than failing -- but is useful for callers inspecting why a task never
// left Pending.
var ErrDependencyBlocked = errors.New("task: blocked on unmet dependency")

// errFromChild builds a wrapped error describing a failed child task, used
// by combinators (Conditional, Timeout, Delay-then-child) that surface a child's
// terminal failure through their own failure mechanism.
func errFromChild(child *Task) error {
	return errors.Errorf("task: child %q (id=%d) failed", child.Name(), child.ID())
}

// Package builder provides a fluent surface for assembling task trees. It
// is specified only at the interface level (spec.md §6): a producer that
// emits well-formed trees conforming to the task protocol, not a first-class
// component of the core itself.
package builder

import (
	"fmt"

	"github.com/hrygo/cadence/internal/task"
)

// Builder accumulates an ordered chain of steps plus modifiers (priority,
// retry, dependencies, timeout, repetition, lifecycle subscribers) and
// assembles them into a single task tree on Build.
type Builder struct {
	name  string
	steps []*task.Task

	priority *int
	retry    *int
	deps     []*task.Task
	timeout  *float64

	repeatCount *int
	repeatUntil func() (bool, error)

	onComplete  []task.CompletedFunc
	onFailed    []task.FailedFunc
	onCancelled []task.CancelledFunc
	onProgress  []task.ProgressFunc
}

// New starts a builder under the given name, used for any synthetic
// wrapper tasks (sequence, loop, timeout) the builder introduces.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Then appends an already-constructed task as the next step.
func (b *Builder) Then(t *task.Task) *Builder {
	b.steps = append(b.steps, t)
	return b
}

// ThenAction appends an Action leaf built from fn.
func (b *Builder) ThenAction(name string, fn task.ActionFunc) *Builder {
	return b.Then(task.NewAction(name, fn))
}

// ThenDelay appends a fixed delay of seconds.
func (b *Builder) ThenDelay(seconds float64) *Builder {
	return b.Then(task.NewDelay(fmt.Sprintf("%s-delay", b.name), seconds))
}

// WithPriority sets the priority applied to the assembled tree's root.
func (b *Builder) WithPriority(p int) *Builder {
	b.priority = &p
	return b
}

// WithRetry sets the max-retry count applied to the assembled tree's root.
func (b *Builder) WithRetry(n int) *Builder {
	b.retry = &n
	return b
}

// DependsOn records preconditions applied to the assembled tree's root.
func (b *Builder) DependsOn(deps ...*task.Task) *Builder {
	b.deps = append(b.deps, deps...)
	return b
}

// WithTimeout wraps the assembled steps in a Timeout combinator.
func (b *Builder) WithTimeout(seconds float64) *Builder {
	b.timeout = &seconds
	return b
}

// Repeat wraps the assembled steps in a fixed-count Loop. A negative count
// means unbounded (spec.md §6 configuration table).
func (b *Builder) Repeat(count int) *Builder {
	b.repeatCount = &count
	return b
}

// RepeatUntil wraps the assembled steps in a break-predicate Loop.
func (b *Builder) RepeatUntil(pred func() (bool, error)) *Builder {
	b.repeatUntil = pred
	return b
}

// OnComplete, OnFailed, OnCancelled, OnProgress queue lifecycle subscribers
// applied to the assembled tree's root.
func (b *Builder) OnComplete(f task.CompletedFunc) *Builder {
	b.onComplete = append(b.onComplete, f)
	return b
}

func (b *Builder) OnFailed(f task.FailedFunc) *Builder {
	b.onFailed = append(b.onFailed, f)
	return b
}

func (b *Builder) OnCancelled(f task.CancelledFunc) *Builder {
	b.onCancelled = append(b.onCancelled, f)
	return b
}

func (b *Builder) OnProgress(f task.ProgressFunc) *Builder {
	b.onProgress = append(b.onProgress, f)
	return b
}

// Build assembles the recorded steps and modifiers into a single task tree:
// multiple steps fold into a Sequence; a repeat wraps it in a Loop; a
// timeout wraps the result of that; priority, retry, dependencies and
// subscribers apply last, to the outermost task.
func (b *Builder) Build() *task.Task {
	var root *task.Task
	switch len(b.steps) {
	case 0:
		root = task.NewAction(b.name, func() error { return nil })
	case 1:
		root = b.steps[0]
	default:
		root = task.NewSequence(b.name, b.steps...)
	}

	switch {
	case b.repeatUntil != nil:
		root = task.NewLoopUntil(b.name+"-loop", root, b.repeatUntil)
	case b.repeatCount != nil:
		root = task.NewLoop(b.name+"-loop", root, *b.repeatCount)
	}

	if b.timeout != nil {
		root = task.NewTimeout(b.name+"-timeout", root, *b.timeout)
	}

	if b.priority != nil {
		root.WithPriority(*b.priority)
	}
	if b.retry != nil {
		root.WithRetry(*b.retry)
	}
	if len(b.deps) > 0 {
		root.DependsOn(b.deps...)
	}
	for _, f := range b.onComplete {
		root.OnComplete(f)
	}
	for _, f := range b.onFailed {
		root.OnFailed(f)
	}
	for _, f := range b.onCancelled {
		root.OnCancelled(f)
	}
	for _, f := range b.onProgress {
		root.OnProgress(f)
	}

	return root
}

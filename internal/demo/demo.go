// Package demo builds sample task trees exercising the builder DSL and the
// leaf/combinator kinds, used by cmd/cadence's demo mode and as a reference
// for integrators writing their own trees.
package demo

import (
	"fmt"
	"log/slog"

	"github.com/hrygo/cadence/internal/builder"
	"github.com/hrygo/cadence/internal/task"
)

// FetchAndProcess builds a sequence of three actions with a bounded retry on
// the root: a simulated fetch, a transform, and a commit step, each logging
// through slog in the teacher's structured style.
func FetchAndProcess(label string) *task.Task {
	return builder.New(fmt.Sprintf("%s-pipeline", label)).
		ThenAction("fetch", func() error {
			slog.Info("demo: fetching", "pipeline", label)
			return nil
		}).
		ThenDelay(0.2).
		ThenAction("transform", func() error {
			slog.Info("demo: transforming", "pipeline", label)
			return nil
		}).
		ThenAction("commit", func() error {
			slog.Info("demo: committing", "pipeline", label)
			return nil
		}).
		WithRetry(2).
		Build()
}

// PollUntilReady builds a Loop-until tree: a predicate leaf representing a
// poll attempt, wrapped to break once attempts reaches target.
func PollUntilReady(target int) *task.Task {
	attempts := 0
	poll := task.NewPredicate("poll", func() (bool, error) {
		attempts++
		slog.Info("demo: polling", "attempt", attempts, "target", target)
		return attempts >= target, nil
	})
	return builder.New("poll-until-ready").
		Then(poll).
		RepeatUntil(func() (bool, error) { return attempts >= target, nil }).
		Build()
}

// FanOutAll builds a Parallel(all) tree over n independent named workers,
// every one of which must complete before the combinator does.
func FanOutAll(names ...string) *task.Task {
	children := make([]*task.Task, 0, len(names))
	for _, n := range names {
		name := n
		children = append(children, task.NewAction(name, func() error {
			slog.Info("demo: worker done", "worker", name)
			return nil
		}))
	}
	return task.NewParallel("fan-out-all", task.ParallelAll, children...)
}

// RaceFirst builds a Parallel(any) tree: the first of n racing delays to
// finish satisfies the combinator.
func RaceFirst(durations ...float64) *task.Task {
	children := make([]*task.Task, 0, len(durations))
	for i, d := range durations {
		children = append(children, task.NewDelay(fmt.Sprintf("racer-%d", i), d))
	}
	return task.NewParallel("race-first", task.ParallelAny, children...)
}

// GuardedStep builds a Conditional: a feature-flag predicate selects between
// a normal-path action and a fallback action.
func GuardedStep(flag func() (bool, error)) *task.Task {
	onPath := task.NewAction("normal-path", func() error {
		slog.Info("demo: normal path taken")
		return nil
	})
	offPath := task.NewAction("fallback-path", func() error {
		slog.Info("demo: fallback path taken")
		return nil
	})
	return task.NewConditional("guarded-step", flag, onPath, offPath)
}

// BoundedWork builds a Timeout-wrapped delay that runs for twice the
// budget, so it always times out; duration is the timeout budget in seconds.
func BoundedWork(duration float64) *task.Task {
	work := task.NewDelay("slow-work", duration*2)
	return task.NewTimeout("bounded-work", work, duration)
}

// AllTrees returns one instance of every sample tree above, named for
// logging/registration in the demo CLI.
func AllTrees() []*task.Task {
	return []*task.Task{
		FetchAndProcess("orders"),
		PollUntilReady(3),
		FanOutAll("a", "b", "c"),
		RaceFirst(0.5, 0.1, 0.3),
		GuardedStep(func() (bool, error) { return true, nil }),
		BoundedWork(0.1),
	}
}

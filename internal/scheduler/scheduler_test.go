package scheduler

import (
	"testing"

	"github.com/hrygo/cadence/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stampIdentity assigns each task a distinct identity, standing in for the
// Runner that would normally do this at submission time, so tests that
// schedule bare tasks directly (bypassing a Runner) exercise the
// identity-keyed paths rather than the pointer-keyed handling of
// unsubmitted (ID()==0) tasks.
func stampIdentity(tasks ...*task.Task) {
	for i, t := range tasks {
		t.AssignIdentity(uint64(i + 1))
	}
}

func TestFrameFair_ReenqueuesUntilDone(t *testing.T) {
	calls := 0
	tk := task.NewPredicate("poll", func() (bool, error) {
		calls++
		return calls >= 3, nil
	})

	s := NewFrameFair(5)
	s.Schedule(tk)

	s.Tick(1)
	assert.Equal(t, 1, s.Count())
	s.Tick(1)
	assert.Equal(t, 1, s.Count())
	s.Tick(1)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, task.StatusCompleted, tk.Status())
}

func TestFrameFair_AllCompleteFiresOnceOnDrain(t *testing.T) {
	s := NewFrameFair(5)
	fires := 0
	s.OnAllComplete(func() { fires++ })

	a := task.NewAction("a", func() error { return nil })
	b := task.NewAction("b", func() error { return nil })
	s.Schedule(a)
	s.Schedule(b)

	s.Tick(0)
	assert.Equal(t, 1, fires)

	s.Tick(0) // queue stays empty; must not re-fire
	assert.Equal(t, 1, fires)

	c := task.NewAction("c", func() error { return nil })
	s.Schedule(c)
	s.Tick(0)
	assert.Equal(t, 2, fires, "re-armed after a task was scheduled into the drained queue")
}

func TestFrameFair_SchedulerCap(t *testing.T) {
	s := NewFrameFair(2)
	executed := 0
	tasks := make([]*task.Task, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, task.NewAction("t", func() error { executed++; return nil }))
	}
	stampIdentity(tasks...)
	for _, tk := range tasks {
		s.Schedule(tk)
	}

	s.Tick(0)
	assert.Equal(t, 2, executed)
}

func TestPriorityOrdered_ExecutesInPriorityThenIdentityOrder(t *testing.T) {
	var order []string

	a := task.NewAction("A", func() error { order = append(order, "A"); return nil }).WithPriority(1)
	b := task.NewAction("B", func() error { order = append(order, "B"); return nil }).WithPriority(10)
	c := task.NewAction("C", func() error { order = append(order, "C"); return nil }).WithPriority(5)
	stampIdentity(a, b, c)

	s := NewPriorityOrdered(3)
	s.Schedule(a)
	s.Schedule(b)
	s.Schedule(c)

	s.Tick(0)

	assert.Equal(t, []string{"B", "C", "A"}, order)
}

func TestPriorityOrdered_Reprioritize(t *testing.T) {
	low := task.NewPredicate("low", func() (bool, error) { return false, nil }).WithPriority(1)

	s := NewPriorityOrdered(1)
	s.Schedule(low)

	low.WithPriority(99)
	// Tick re-sorts unconditionally, but Reprioritize must also be safe to
	// call directly for an out-of-band mutation between ticks.
	require.NotPanics(t, func() { s.Reprioritize(low.ID()) })
}

func TestFrameFair_DistinctUnsubmittedTasksAreNotDeduped(t *testing.T) {
	s := NewFrameFair(5)
	a := task.NewAction("a", func() error { return nil })
	b := task.NewAction("b", func() error { return nil })
	require.Zero(t, a.ID())
	require.Zero(t, b.ID())

	s.Schedule(a)
	s.Schedule(b)
	assert.Equal(t, 2, s.Count(), "two distinct ID()==0 tasks must both be scheduled")

	s.Schedule(a) // true duplicate: same pointer, re-scheduling is a no-op
	assert.Equal(t, 2, s.Count())
}

func TestPriorityOrdered_DistinctUnsubmittedTasksAreNotDeduped(t *testing.T) {
	s := NewPriorityOrdered(5)
	a := task.NewAction("a", func() error { return nil })
	b := task.NewAction("b", func() error { return nil })
	require.Zero(t, a.ID())
	require.Zero(t, b.ID())

	s.Schedule(a)
	s.Schedule(b)
	assert.Equal(t, 2, s.Count(), "two distinct ID()==0 tasks must both be scheduled")

	s.Schedule(a) // true duplicate: same pointer, re-scheduling is a no-op
	assert.Equal(t, 2, s.Count())
}

func TestPriorityOrdered_SchedulerCap(t *testing.T) {
	s := NewPriorityOrdered(2)
	executed := 0
	tasks := make([]*task.Task, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, task.NewAction("t", func() error { executed++; return nil }).WithPriority(i))
	}
	stampIdentity(tasks...)
	for _, tk := range tasks {
		s.Schedule(tk)
	}

	s.Tick(0)
	assert.Equal(t, 2, executed)
}

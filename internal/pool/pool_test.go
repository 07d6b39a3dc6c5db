package pool

import (
	"testing"

	"github.com/hrygo/cadence/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActionFactory() Factory {
	return func() *task.Task {
		return task.NewAction("action", func() error { return nil }).WithPriority(3)
	}
}

func TestPool_RoundTripClearsFields(t *testing.T) {
	p := New(10)
	t1 := p.Acquire("action", newActionFactory())
	require.Equal(t, 3, t1.Priority())

	p.Release("action", t1)
	assert.Equal(t, 1, p.Size("action"))

	t2 := p.Acquire("action", newActionFactory())
	assert.Same(t, t1, t2)
	assert.Equal(t, 0, t2.Priority(), "release must clear() before freelisting")
	assert.Equal(t, task.StatusPending, t2.Status())
}

func TestPool_CapPerKind(t *testing.T) {
	p := New(2)
	for i := 0; i < 5; i++ {
		p.Release("action", task.NewAction("a", func() error { return nil }))
	}
	assert.Equal(t, 2, p.Size("action"))
}

func TestPool_PrewarmClampedToCap(t *testing.T) {
	p := New(3)
	p.Prewarm("action", 10, newActionFactory())
	assert.Equal(t, 3, p.Size("action"))
}

func TestPool_AutoRelease(t *testing.T) {
	p := New(10)
	t1 := task.NewAction("a", func() error { return nil })
	p.AutoRelease("action", t1)

	t1.Execute(0)
	assert.Equal(t, 1, p.Size("action"))
}

func TestPool_ClearAll(t *testing.T) {
	p := New(10)
	p.Release("action", task.NewAction("a", func() error { return nil }))
	p.Release("delay", task.NewDelay("d", 1))

	p.ClearAll()
	assert.Equal(t, 0, p.Size("action"))
	assert.Equal(t, 0, p.Size("delay"))
}

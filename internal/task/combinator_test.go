package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_RetryDrainsBeforeAdvancing(t *testing.T) {
	attempts := 0
	j1 := NewAction("j1", func() error {
		attempts++
		if attempts <= 2 {
			return assert.AnError
		}
		return nil
	}).WithRetry(2)

	var j2Ran bool
	j2 := NewAction("j2", func() error { j2Ran = true; return nil })

	seq := NewSequence("seq", j1, j2)

	for i := 0; i < 5 && seq.Status() != StatusCompleted; i++ {
		seq.Execute(1)
	}

	assert.Equal(t, StatusCompleted, j1.Status())
	assert.Equal(t, 3, attempts)
	assert.True(t, j2Ran)
	assert.Equal(t, StatusCompleted, j2.Status())
	assert.Equal(t, StatusCompleted, seq.Status())
}

func TestSequence_CancelsSelfOnFailedChild(t *testing.T) {
	failing := NewAction("fails", func() error { return assert.AnError })
	var secondRan bool
	second := NewAction("second", func() error { secondRan = true; return nil })

	seq := NewSequence("seq", failing, second)

	done := seq.Execute(1)
	assert.True(t, done)
	assert.Equal(t, StatusCancelled, seq.Status())
	assert.False(t, secondRan)
}

func makeCountingPredicate(target int) (*Task, *int) {
	calls := 0
	tk := NewPredicate("poll", func() (bool, error) {
		calls++
		return calls >= target, nil
	})
	return tk, &calls
}

func TestParallel_WaitAll(t *testing.T) {
	a, _ := makeCountingPredicate(3)
	b, _ := makeCountingPredicate(5)
	par := NewParallel("par", ParallelAll, a, b)

	for i := 1; i <= 4; i++ {
		done := par.Execute(1)
		assert.Falsef(t, done, "tick %d", i)
	}

	done := par.Execute(1)
	assert.True(t, done)
	assert.Equal(t, StatusCompleted, par.Status())
}

func TestParallel_WaitAny(t *testing.T) {
	a, _ := makeCountingPredicate(3)
	b, _ := makeCountingPredicate(5)
	par := NewParallel("par", ParallelAny, a, b)

	for i := 1; i <= 2; i++ {
		done := par.Execute(1)
		assert.Falsef(t, done, "tick %d", i)
	}

	done := par.Execute(1)
	assert.True(t, done)
	assert.Equal(t, StatusCompleted, par.Status())
	// b is left running, not cancelled, once the parent completes in any
	// mode (spec.md §9 Open Question, resolved as not-cancel).
	assert.NotEqual(t, StatusCompleted, b.Status())
}

func TestParallel_AllModeWaitsForeverOnFailedChild(t *testing.T) {
	failing := NewAction("fails", func() error { return assert.AnError })
	other, _ := makeCountingPredicate(3)
	par := NewParallel("par", ParallelAll, failing, other)

	for i := 0; i < 5; i++ {
		done := par.Execute(1)
		assert.False(t, done)
	}
	assert.Equal(t, StatusRunning, par.Status())
	assert.Equal(t, StatusFailed, failing.Status())
	assert.Equal(t, StatusCompleted, other.Status())
}

func TestLoop_FixedCount(t *testing.T) {
	runs := 0
	child := NewAction("body", func() error { runs++; return nil })
	loop := NewLoop("loop", child, 3)

	for i := 0; i < 3; i++ {
		done := loop.Execute(1)
		if i < 2 {
			assert.False(t, done)
		} else {
			assert.True(t, done)
		}
	}

	assert.Equal(t, 3, runs)
	assert.Equal(t, StatusCompleted, loop.Status())
}

func TestLoop_BreakPredicate(t *testing.T) {
	runs := 0
	child := NewAction("body", func() error { runs++; return nil })
	loop := NewLoopUntil("loop", child, func() (bool, error) { return runs >= 2, nil })

	require.False(t, loop.Execute(1))
	done := loop.Execute(1)
	assert.True(t, done)
	assert.Equal(t, 2, runs)
}

func TestConditional_SelectsBranchOnce(t *testing.T) {
	evalCount := 0
	var trueRan, falseRan bool
	whenTrue := NewAction("true-branch", func() error { trueRan = true; return nil })
	whenFalse := NewAction("false-branch", func() error { falseRan = true; return nil })

	cond := NewConditional("cond", func() (bool, error) {
		evalCount++
		return true, nil
	}, whenTrue, whenFalse)

	done := cond.Execute(1)
	assert.True(t, done)
	assert.Equal(t, 1, evalCount)
	assert.True(t, trueRan)
	assert.False(t, falseRan)
	assert.Equal(t, StatusCompleted, cond.Status())
}

func TestConditional_NilBranchCompletesImmediately(t *testing.T) {
	cond := NewConditional("cond", func() (bool, error) { return false, nil }, nil, nil)
	done := cond.Execute(1)
	assert.True(t, done)
	assert.Equal(t, StatusCompleted, cond.Status())
}

func TestTimeout_FailsWithCauseAndCancelsChild(t *testing.T) {
	never := NewPredicate("never", func() (bool, error) { return false, nil })
	wrapper := NewTimeout("timeout", never, 0.5)

	var failedCause error
	wrapper.OnFailed(func(_ *Task, cause error) { failedCause = cause })

	wrapper.Execute(0.3)
	require.Equal(t, StatusRunning, wrapper.Status())

	done := wrapper.Execute(0.3) // total elapsed 0.6 >= 0.5
	assert.True(t, done)
	assert.Equal(t, StatusFailed, wrapper.Status())
	assert.ErrorIs(t, failedCause, ErrTimeout)
	assert.Equal(t, StatusCancelled, never.Status())
}

package demo

import (
	"testing"

	"github.com/hrygo/cadence/internal/task"
	"github.com/stretchr/testify/assert"
)

func runToTerminal(t *task.Task, dt float64, maxTicks int) {
	for i := 0; i < maxTicks && !t.Status().IsTerminal(); i++ {
		t.Execute(dt)
	}
}

func TestFetchAndProcess_Completes(t *testing.T) {
	tree := FetchAndProcess("orders")
	runToTerminal(tree, 0.25, 10)
	assert.Equal(t, task.StatusCompleted, tree.Status())
}

func TestPollUntilReady_StopsAtTarget(t *testing.T) {
	tree := PollUntilReady(3)
	runToTerminal(tree, 0, 10)
	assert.Equal(t, task.StatusCompleted, tree.Status())
}

func TestFanOutAll_WaitsForEveryWorker(t *testing.T) {
	tree := FanOutAll("a", "b", "c")
	runToTerminal(tree, 0, 5)
	assert.Equal(t, task.StatusCompleted, tree.Status())
}

func TestRaceFirst_CompletesOnFastestRacer(t *testing.T) {
	tree := RaceFirst(0.5, 0.1, 0.3)
	runToTerminal(tree, 0.1, 10)
	assert.Equal(t, task.StatusCompleted, tree.Status())
}

func TestGuardedStep_SelectsBranch(t *testing.T) {
	tree := GuardedStep(func() (bool, error) { return true, nil })
	runToTerminal(tree, 0, 5)
	assert.Equal(t, task.StatusCompleted, tree.Status())
}

func TestBoundedWork_TimesOut(t *testing.T) {
	tree := BoundedWork(0.1)
	runToTerminal(tree, 0.2, 5)
	assert.Equal(t, task.StatusFailed, tree.Status())
}

func TestAllTrees_ReturnsSix(t *testing.T) {
	assert.Len(t, AllTrees(), 6)
}

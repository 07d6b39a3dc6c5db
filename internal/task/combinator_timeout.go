package task

// timeoutStep wraps a single child with a wall-duration budget: each Step
// first adds dt to elapsed; once elapsed reaches duration the child is
// cancelled without being executed that tick and ErrTimeout is raised
// through the owning task's normal failure/retry mechanism (spec.md §4.3
// "Timeout").
type timeoutStep struct {
	child    *Task
	duration float64
	elapsed  float64
}

// NewTimeout builds a combinator that runs child, failing with ErrTimeout
// if it has not completed within duration seconds of ticks.
func NewTimeout(name string, child *Task, duration float64) *Task {
	return newTask(name, &timeoutStep{child: child, duration: duration})
}

func (s *timeoutStep) Step(dt float64) (bool, error) {
	s.elapsed += dt

	if s.elapsed >= s.duration {
		s.child.Cancel()
		return false, ErrTimeout
	}

	if !s.child.Execute(dt) {
		return false, nil
	}

	switch s.child.Status() {
	case StatusCompleted:
		return true, nil
	default: // Failed or Cancelled
		return false, errFromChild(s.child)
	}
}

// Progress defers entirely to the child; the timeout budget is a failure
// condition, not progress toward completion.
func (s *timeoutStep) Progress() float64 {
	return s.child.Progress()
}

func (s *timeoutStep) Reset() {
	s.elapsed = 0
	s.child.Reset()
}

func (s *timeoutStep) CancelStep() {
	s.child.Cancel()
}

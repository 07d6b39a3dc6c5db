package task

// delayStep accumulates dt until it reaches duration. It may optionally
// carry a child task to execute after the delay completes, in which case
// progress is split 50/50 between the delay phase and the child's own
// progress (spec.md §4.2 "Delay").
type delayStep struct {
	duration float64
	elapsed  float64
	child    *Task
}

// NewDelay builds a leaf task that completes once total dt across Execute
// calls reaches duration seconds.
func NewDelay(name string, duration float64) *Task {
	return newTask(name, &delayStep{duration: duration})
}

// NewDelayThen builds a Delay that, once its duration elapses, runs child
// to completion before the combined task itself completes.
func NewDelayThen(name string, duration float64, child *Task) *Task {
	return newTask(name, &delayStep{duration: duration, child: child})
}

func (s *delayStep) Step(dt float64) (bool, error) {
	remaining := dt
	if s.elapsed < s.duration {
		needed := s.duration - s.elapsed
		if remaining < needed {
			s.elapsed += remaining
			return false, nil
		}
		s.elapsed = s.duration
		remaining -= needed
	}
	if s.child == nil {
		return true, nil
	}
	if !s.child.Execute(remaining) {
		return false, nil
	}
	return s.childTerminal()
}

func (s *delayStep) childTerminal() (bool, error) {
	switch s.child.Status() {
	case StatusCompleted:
		return true, nil
	case StatusFailed:
		return false, errFromChild(s.child)
	default:
		// Cancelled: the delay+child composite has nothing further to do.
		return true, nil
	}
}

func (s *delayStep) Progress() float64 {
	delayPhase := clamp01(s.elapsed / s.duration)
	if s.child == nil {
		return delayPhase
	}
	if s.elapsed < s.duration {
		return 0.5 * delayPhase
	}
	return 0.5 + 0.5*s.child.Progress()
}

func (s *delayStep) Reset() {
	s.elapsed = 0
	if s.child != nil {
		s.child.Reset()
	}
}

package task

// conditionalStep evaluates a predicate once, on its first Step, then
// delegates to whichever branch it selects for every Step thereafter
// (spec.md §4.3 "Conditional"). A missing branch for the outcome reached
// means the conditional completes immediately with no further work.
type conditionalStep struct {
	predicate func() (bool, error)
	whenTrue  *Task
	whenFalse *Task

	evaluated bool
	branch    *Task
}

// NewConditional builds a combinator that runs whenTrue or whenFalse
// depending on predicate's first-tick result. Either branch may be nil.
func NewConditional(name string, predicate func() (bool, error), whenTrue, whenFalse *Task) *Task {
	return newTask(name, &conditionalStep{
		predicate: predicate,
		whenTrue:  whenTrue,
		whenFalse: whenFalse,
	})
}

func (s *conditionalStep) Step(dt float64) (bool, error) {
	if !s.evaluated {
		cond, err := s.predicate()
		if err != nil {
			return false, err
		}
		s.evaluated = true
		if cond {
			s.branch = s.whenTrue
		} else {
			s.branch = s.whenFalse
		}
	}

	if s.branch == nil {
		return true, nil
	}

	if !s.branch.Execute(dt) {
		return false, nil
	}

	switch s.branch.Status() {
	case StatusCompleted:
		return true, nil
	default: // Failed or Cancelled
		return false, errFromChild(s.branch)
	}
}

func (s *conditionalStep) Progress() float64 {
	if !s.evaluated {
		return 0
	}
	if s.branch == nil {
		return 1
	}
	return s.branch.Progress()
}

func (s *conditionalStep) Reset() {
	s.evaluated = false
	s.branch = nil
	if s.whenTrue != nil {
		s.whenTrue.Reset()
	}
	if s.whenFalse != nil {
		s.whenFalse.Reset()
	}
}

func (s *conditionalStep) CancelStep() {
	if s.branch != nil {
		s.branch.Cancel()
	}
}

package task

// PredicateFunc is polled every tick; the task completes the first time it
// returns true.
type PredicateFunc func() (bool, error)

type predicateStep struct {
	fn   PredicateFunc
	done bool
}

// NewPredicate builds a leaf task that polls fn each Execute call and
// completes when fn returns true (spec.md §4.2 "Predicate job").
func NewPredicate(name string, fn PredicateFunc) *Task {
	return newTask(name, &predicateStep{fn: fn})
}

func (s *predicateStep) Step(dt float64) (bool, error) {
	if s.done {
		return true, nil
	}
	ok, err := s.fn()
	if err != nil {
		return false, err
	}
	if ok {
		s.done = true
	}
	return s.done, nil
}

func (s *predicateStep) Progress() float64 {
	if s.done {
		return 1
	}
	return 0
}

func (s *predicateStep) Reset() { s.done = false }

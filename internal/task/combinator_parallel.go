package task

// ParallelMode selects how a Parallel combinator decides it is done.
type ParallelMode int

const (
	// ParallelAll completes once every child has reached Completed. If any
	// child instead ends Failed or Cancelled, the parent waits forever: it
	// keeps ticking the remaining children but can never itself report
	// done, since the failed child is terminal and will never reach
	// Completed (spec.md §7; carried forward as documented baseline
	// behavior rather than resolved -- see DESIGN.md's Open Question
	// decisions).
	ParallelAll ParallelMode = iota
	// ParallelAny completes as soon as one child reaches Completed. Per
	// spec.md §9's Open Question, still-running siblings are NOT cancelled
	// when that happens -- see DESIGN.md's Open Question decisions. They
	// are left in whatever state they had: the completed parent no longer
	// executes them, and children after the finishing one are not executed
	// on that final tick.
	ParallelAny
)

// parallelStep runs every child concurrently (in the cooperative sense: each
// gets dt on every Step) and aggregates their outcome per mode (spec.md
// §4.3 "Parallel").
type parallelStep struct {
	mode     ParallelMode
	children []*Task
	done     []bool
	stuck    bool // all-mode: a child ended Failed/Cancelled, never completing
}

// NewParallel builds a combinator running children together, one Execute
// per child per tick, completing per mode.
func NewParallel(name string, mode ParallelMode, children ...*Task) *Task {
	return newTask(name, &parallelStep{
		mode:     mode,
		children: children,
		done:     make([]bool, len(children)),
	})
}

func (s *parallelStep) Step(dt float64) (bool, error) {
	if len(s.children) == 0 {
		return true, nil
	}

	allDone := true
	for i, c := range s.children {
		if s.done[i] {
			continue
		}
		if !c.Execute(dt) {
			allDone = false
			continue
		}
		s.done[i] = true

		switch c.Status() {
		case StatusCompleted:
			if s.mode == ParallelAny {
				return true, nil
			}
		default: // Failed or Cancelled
			if s.mode == ParallelAll {
				// Waits forever for this child per spec.md §7: mark the
				// combinator permanently unable to finish rather than
				// cancelling itself.
				s.stuck = true
			}
		}
	}

	if s.mode == ParallelAll && s.stuck {
		return false, nil
	}

	// any-mode, every child finished and none reached Completed: nothing in
	// spec.md governs this case explicitly; treated as done since there is
	// nothing left to wait on.
	return allDone, nil
}

func (s *parallelStep) Progress() float64 {
	if len(s.children) == 0 {
		return 1
	}
	if s.mode == ParallelAny {
		best := 0.0
		for _, c := range s.children {
			if p := c.Progress(); p > best {
				best = p
			}
		}
		return best
	}
	sum := 0.0
	for _, c := range s.children {
		sum += c.Progress()
	}
	return sum / float64(len(s.children))
}

func (s *parallelStep) Reset() {
	s.stuck = false
	for i, c := range s.children {
		s.done[i] = false
		c.Reset()
	}
}

func (s *parallelStep) CancelStep() {
	for _, c := range s.children {
		c.Cancel()
	}
}

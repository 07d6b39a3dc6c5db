package task

// sequenceStep runs an ordered list of children one at a time. Because a
// child's own Execute only ever returns done=true once it is genuinely
// terminal (a failing child with retries remaining keeps returning
// done=false while it drains its retries internally -- see Task.Execute),
// observing done=true here already means retries, if any, are exhausted.
// This resolves spec.md §9's sequence/retry race by construction: the
// sequence never observes a Failed child that still has retries to spend.
type sequenceStep struct {
	owner    *Task
	children []*Task
	cursor   int
	failed   *Task
}

// NewSequence builds a combinator that runs children in order, cancelling
// itself if any child ends Failed or Cancelled (spec.md §4.3 "Sequence").
func NewSequence(name string, children ...*Task) *Task {
	return newTask(name, &sequenceStep{children: children})
}

func (s *sequenceStep) bindOwner(t *Task) { s.owner = t }

func (s *sequenceStep) Step(dt float64) (bool, error) {
	if s.cursor >= len(s.children) {
		return true, nil
	}

	child := s.children[s.cursor]
	if !child.Execute(dt) {
		return false, nil
	}

	switch child.Status() {
	case StatusCompleted:
		s.cursor++
		return s.cursor >= len(s.children), nil
	default: // Failed or Cancelled
		s.failed = child
		s.owner.Cancel()
		return true, nil
	}
}

func (s *sequenceStep) Progress() float64 {
	if len(s.children) == 0 {
		return 1
	}
	if s.cursor >= len(s.children) {
		return 1
	}
	return (float64(s.cursor) + s.children[s.cursor].Progress()) / float64(len(s.children))
}

func (s *sequenceStep) Reset() {
	s.cursor = 0
	s.failed = nil
	for _, c := range s.children {
		c.Reset()
	}
}

func (s *sequenceStep) CancelStep() {
	if s.cursor < len(s.children) {
		s.children[s.cursor].Cancel()
	}
}

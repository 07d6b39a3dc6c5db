package task

import "io"

// Iterator is a restartable step source: Next advances one step and
// reports io.EOF once exhausted (spec.md §4.2 "External-iterator adapter").
// Reset must return the iterator to its first step.
type Iterator interface {
	Next() error
	Reset()
}

type iteratorStep struct {
	it       Iterator
	exhausted bool
}

// NewIteratorAdapter wraps an Iterator as a leaf task: each Execute call
// advances one step; the task completes once the iterator reports io.EOF.
func NewIteratorAdapter(name string, it Iterator) *Task {
	return newTask(name, &iteratorStep{it: it})
}

func (s *iteratorStep) Step(dt float64) (bool, error) {
	if s.exhausted {
		return true, nil
	}
	err := s.it.Next()
	if err == nil {
		return false, nil
	}
	if err == io.EOF {
		s.exhausted = true
		return true, nil
	}
	return false, err
}

func (s *iteratorStep) Progress() float64 {
	if s.exhausted {
		return 1
	}
	return 0
}

func (s *iteratorStep) Reset() {
	s.exhausted = false
	s.it.Reset()
}

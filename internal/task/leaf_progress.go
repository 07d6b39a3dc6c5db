package task

import "sync"

// ProgressOpFunc computes the next progress value given dt and the current
// progress, and reports completion. Implementations may ignore dt and
// current and simply read some externally-updated value (see
// NewExternalProgress) or may integrate internally (e.g. current+dt/total).
type ProgressOpFunc func(dt, current float64) (next float64, done bool, err error)

type progressStep struct {
	fn      ProgressOpFunc
	current float64
}

// NewProgressOp builds a leaf task whose progress is driven by fn each
// Execute call (spec.md §4.2 "Progress operation"). Completion is
// signalled by fn's boolean return; on completion, progress is forced to 1
// regardless of what fn last reported.
func NewProgressOp(name string, fn ProgressOpFunc) *Task {
	return newTask(name, &progressStep{fn: fn})
}

func (s *progressStep) Step(dt float64) (bool, error) {
	next, done, err := s.fn(dt, s.current)
	if err != nil {
		return false, err
	}
	s.current = clamp01(next)
	if done {
		s.current = 1
	}
	return done, nil
}

func (s *progressStep) Progress() float64 { return s.current }

func (s *progressStep) Reset() { s.current = 0 }

// ExternalProgress is a thread-safe progress/completion cell an external
// driver can push into between ticks, for the "externally-settable value"
// half of spec.md §3's Progress definition.
type ExternalProgress struct {
	mu    sync.Mutex
	value float64
	done  bool
}

// Set clamps and stores a new progress value.
func (p *ExternalProgress) Set(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = clamp01(v)
}

// Complete marks the external source as finished.
func (p *ExternalProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

func (p *ExternalProgress) snapshot() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.done
}

func (p *ExternalProgress) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = 0
	p.done = false
}

// NewExternalProgress builds a Progress operation task driven entirely by
// calls to the returned ExternalProgress from outside the tick loop. Unlike
// NewProgressOp, Reset also clears the external cell, so retries and loop
// iterations restart the externally-driven progress at 0.
func NewExternalProgress(name string) (*Task, *ExternalProgress) {
	ext := &ExternalProgress{}
	t := newTask(name, &externalStep{ext: ext})
	return t, ext
}

type externalStep struct {
	ext *ExternalProgress
}

func (s *externalStep) Step(dt float64) (bool, error) {
	_, done := s.ext.snapshot()
	return done, nil
}

func (s *externalStep) Progress() float64 {
	v, _ := s.ext.snapshot()
	return v
}

func (s *externalStep) Reset() { s.ext.reset() }

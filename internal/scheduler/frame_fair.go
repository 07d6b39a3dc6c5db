package scheduler

import (
	"container/list"
	"log/slog"

	"github.com/hrygo/cadence/internal/task"
)

// AllCompleteFunc is invoked once the frame-fair queue drains to empty
// during a tick. One-shot per drain-to-empty transition: it re-arms the
// next time a task is scheduled into an empty queue (spec.md §9's
// resolution of the "fires every tick" open question).
type AllCompleteFunc func()

// FrameFair is a FIFO scheduler: each tick dequeues up to cap tasks in
// submission order, executes each, and re-enqueues at the tail anything
// not yet done (spec.md §4.4 "Frame-fair scheduler").
//
// Duplicate-submission guarding is identity-keyed, which only works once a
// task has a non-zero identity (assigned by a Runner at submission time). A
// scheduler used directly, without a Runner, may be handed several distinct
// tasks that all still read ID()==0; those are tracked separately by
// pointer in pending so they are never mistaken for the same task.
type FrameFair struct {
	cap     int
	running bool

	queue   *list.List                   // of *task.Task, front = next to run
	index   map[uint64]*list.Element     // identity -> element, for tasks with a non-zero identity
	pending map[*task.Task]*list.Element // pointer -> element, for tasks still at ID()==0

	submitted int
	completed int

	onAllComplete AllCompleteFunc
	armed         bool
}

// NewFrameFair builds a frame-fair scheduler with the given per-tick cap
// (clamped to a minimum of 1).
func NewFrameFair(cap int) *FrameFair {
	return &FrameFair{
		cap:     clampCap(cap),
		running: true,
		queue:   list.New(),
		index:   make(map[uint64]*list.Element),
		pending: make(map[*task.Task]*list.Element),
		armed:   true,
	}
}

// OnAllComplete sets the one-shot callback fired the next time the queue
// drains to empty.
func (f *FrameFair) OnAllComplete(fn AllCompleteFunc) { f.onAllComplete = fn }

func (f *FrameFair) Schedule(t *task.Task) {
	if t == nil {
		return
	}
	if t.ID() == 0 {
		if _, exists := f.pending[t]; exists {
			return
		}
		el := f.queue.PushBack(t)
		f.pending[t] = el
		f.submitted++
		if f.queue.Len() > 0 {
			f.armed = true
		}
		return
	}
	if _, exists := f.index[t.ID()]; exists {
		return
	}
	el := f.queue.PushBack(t)
	f.index[t.ID()] = el
	f.submitted++
	if f.queue.Len() > 0 {
		f.armed = true
	}
}

func (f *FrameFair) ScheduleRange(ts []*task.Task) {
	for _, t := range ts {
		f.Schedule(t)
	}
}

// Remove removes the task with the given identity. Identity 0 is ambiguous
// across several still-unsubmitted tasks, so it is a no-op here; use
// RemoveTask for a task that may not yet have an identity.
func (f *FrameFair) Remove(id uint64) {
	if id == 0 {
		return
	}
	if el, ok := f.index[id]; ok {
		f.queue.Remove(el)
		delete(f.index, id)
	}
}

func (f *FrameFair) RemoveTask(t *task.Task) {
	if t == nil {
		return
	}
	if t.ID() != 0 {
		f.Remove(t.ID())
		return
	}
	if el, ok := f.pending[t]; ok {
		f.queue.Remove(el)
		delete(f.pending, t)
	}
}

// Get looks up a scheduled task by identity. Identity 0 is ambiguous across
// several still-unsubmitted tasks, so it always reports not-found; look up
// an unsubmitted task by its own reference instead.
func (f *FrameFair) Get(id uint64) (*task.Task, bool) {
	if id == 0 {
		return nil, false
	}
	if el, ok := f.index[id]; ok {
		return el.Value.(*task.Task), true
	}
	return nil, false
}

func (f *FrameFair) Clear() {
	f.queue.Init()
	f.index = make(map[uint64]*list.Element)
	f.pending = make(map[*task.Task]*list.Element)
}

func (f *FrameFair) Pause()  { f.running = false }
func (f *FrameFair) Resume() { f.running = true }

func (f *FrameFair) Count() int { return f.queue.Len() }

// Tick dequeues up to cap tasks from the front, executing each in turn;
// tasks not yet done are re-enqueued at the tail, done tasks are dropped.
// Bounded dequeue-execute-conditional-enqueue: the number of iterations is
// fixed to the slice captured at tick entry, so re-enqueues never cause a
// task to run twice in the same tick (spec.md §4.4, §5).
func (f *FrameFair) Tick(dt float64) {
	if !f.running {
		return
	}

	n := f.queue.Len()
	if n > f.cap {
		n = f.cap
	}

	for i := 0; i < n; i++ {
		front := f.queue.Front()
		if front == nil {
			break
		}
		f.queue.Remove(front)
		t := front.Value.(*task.Task)
		if t.ID() != 0 {
			delete(f.index, t.ID())
		} else {
			delete(f.pending, t)
		}

		done := f.executeCaught(t, dt)
		if done {
			f.completed++
			continue
		}

		el := f.queue.PushBack(t)
		if t.ID() != 0 {
			f.index[t.ID()] = el
		} else {
			f.pending[t] = el
		}
	}

	if f.queue.Len() == 0 && f.armed {
		f.armed = false
		if f.onAllComplete != nil {
			f.onAllComplete()
		}
	}
}

// executeCaught runs one execute call, treating a panic escaping the task
// protocol itself (not the kind-specific step, which Task already catches)
// as done-and-dropped rather than letting it take down the scheduler loop.
func (f *FrameFair) executeCaught(t *task.Task, dt float64) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: frame-fair caught panic during execute",
				"task_id", t.ID(), "name", t.Name(), "panic", r)
			done = true
		}
	}()
	return t.Execute(dt)
}

package scheduler

import (
	"log/slog"
	"sort"

	"github.com/hrygo/cadence/internal/task"
)

// PriorityOrdered is a scheduler backed by a slice kept sorted descending
// by priority, ascending by identity on ties. Tick peeks up to cap from the
// front, executes each, and re-inserts anything not done -- re-sorting the
// whole collection first so that priority mutations made during execute
// (via Reprioritize) are honoured (spec.md §4.4 "Priority-ordered
// scheduler").
//
// Duplicate-submission guarding is identity-keyed via index, which only
// works once a task has a non-zero identity (assigned by a Runner at
// submission time). A scheduler used directly, without a Runner, may be
// handed several distinct tasks that all still read ID()==0; those are
// deduplicated by pointer scan instead (see containsPointer), since they
// cannot share a single identity-keyed map slot.
type PriorityOrdered struct {
	cap     int
	running bool

	entries []*task.Task
	index   map[uint64]int // identity -> position in entries, kept in sync by resort
}

// NewPriorityOrdered builds a priority scheduler with the given per-tick
// cap (clamped to a minimum of 1).
func NewPriorityOrdered(cap int) *PriorityOrdered {
	return &PriorityOrdered{
		cap:     clampCap(cap),
		running: true,
		index:   make(map[uint64]int),
	}
}

func (p *PriorityOrdered) Schedule(t *task.Task) {
	if t == nil {
		return
	}
	if p.alreadyScheduled(t) {
		return
	}
	p.entries = append(p.entries, t)
	p.resort()
}

func (p *PriorityOrdered) ScheduleRange(ts []*task.Task) {
	added := false
	for _, t := range ts {
		if t == nil {
			continue
		}
		if p.alreadyScheduled(t) {
			continue
		}
		p.entries = append(p.entries, t)
		added = true
	}
	if added {
		p.resort()
	}
}

// alreadyScheduled reports whether t is already in entries. For a task with
// a non-zero identity this is an O(1) index lookup; for a still-unsubmitted
// task (ID()==0), identity can't disambiguate it from any other
// still-unsubmitted task, so this falls back to a pointer scan.
func (p *PriorityOrdered) alreadyScheduled(t *task.Task) bool {
	if t.ID() != 0 {
		_, exists := p.index[t.ID()]
		return exists
	}
	return containsPointer(p.entries, t)
}

func containsPointer(entries []*task.Task, t *task.Task) bool {
	for _, e := range entries {
		if e == t {
			return true
		}
	}
	return false
}

// Remove removes the task with the given identity. Identity 0 is ambiguous
// across several still-unsubmitted tasks, so it is a no-op here; use
// RemoveTask for a task that may not yet have an identity.
func (p *PriorityOrdered) Remove(id uint64) {
	if id == 0 {
		return
	}
	i, ok := p.index[id]
	if !ok {
		return
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	p.reindex()
}

func (p *PriorityOrdered) RemoveTask(t *task.Task) {
	if t == nil {
		return
	}
	if t.ID() != 0 {
		p.Remove(t.ID())
		return
	}
	for i, e := range p.entries {
		if e == t {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			p.reindex()
			return
		}
	}
}

// Get looks up a scheduled task by identity. Identity 0 is ambiguous across
// several still-unsubmitted tasks, so it always reports not-found; look up
// an unsubmitted task by its own reference instead.
func (p *PriorityOrdered) Get(id uint64) (*task.Task, bool) {
	if id == 0 {
		return nil, false
	}
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.entries[i], true
}

func (p *PriorityOrdered) Clear() {
	p.entries = nil
	p.index = make(map[uint64]int)
}

func (p *PriorityOrdered) Pause()  { p.running = false }
func (p *PriorityOrdered) Resume() { p.running = true }

func (p *PriorityOrdered) Count() int { return len(p.entries) }

// Reprioritize re-sorts the collection after an out-of-band priority
// mutation (spec.md §4.4: "Mutations to a task's priority made outside
// execute must be accompanied by a reprioritize call"). A no-op if id is
// not currently scheduled.
func (p *PriorityOrdered) Reprioritize(id uint64) {
	if _, ok := p.index[id]; ok {
		p.resort()
	}
}

func (p *PriorityOrdered) resort() {
	sort.SliceStable(p.entries, func(i, j int) bool {
		a, b := p.entries[i], p.entries[j]
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		return a.ID() < b.ID()
	})
	p.reindex()
}

func (p *PriorityOrdered) reindex() {
	p.index = make(map[uint64]int, len(p.entries))
	for i, t := range p.entries {
		p.index[t.ID()] = i
	}
}

// Tick re-sorts (covering any priority mutation since the last tick), then
// captures up to cap entries from the front before executing any of them,
// so that re-inserts during this tick's executes do not perturb iteration
// (spec.md §4.4, §9).
func (p *PriorityOrdered) Tick(dt float64) {
	if !p.running {
		return
	}

	p.resort()

	n := len(p.entries)
	if n > p.cap {
		n = p.cap
	}
	batch := append([]*task.Task(nil), p.entries[:n]...)

	var remaining []*task.Task
	remaining = append(remaining, p.entries[n:]...)

	for _, t := range batch {
		if p.executeCaught(t, dt) {
			continue
		}
		remaining = append(remaining, t)
	}

	p.entries = remaining
	p.resort()
}

func (p *PriorityOrdered) executeCaught(t *task.Task, dt float64) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: priority-ordered caught panic during execute",
				"task_id", t.ID(), "name", t.Name(), "panic", r)
			done = true
		}
	}()
	return t.Execute(dt)
}

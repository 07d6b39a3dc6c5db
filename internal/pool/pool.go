// Package pool implements a kind-keyed freelist for recycling Tasks,
// specified only at the interface level in spec.md §6: acquire<Kind>(),
// release, auto_release, clear_pool<Kind>(), clear_all(), prewarm<Kind>(n).
//
// spec.md §9 steers this away from a process-wide singleton ("replace with
// an owned field of the runner, or a context passed in"); Pool here is a
// plain value a Runner or host can hold as a field, never a package-level
// instance.
package pool

import (
	"sync"

	"github.com/hrygo/cadence/internal/task"
)

// DefaultCapPerKind is the upper bound on a single kind's freelist size
// when none is configured (spec.md §6).
const DefaultCapPerKind = 100

// Factory builds a fresh instance of a task kind, used the first time
// Acquire finds the freelist for that kind empty.
type Factory func() *task.Task

// Pool recycles tasks keyed by a caller-chosen kind string (typically the
// concrete factory's name, e.g. "action", "delay"). Every method takes the
// mutex around its freelist access, so the freelists themselves tolerate
// calls from several goroutines; the tasks it hands out follow the
// single-threaded cooperative model (spec.md §5) and are not thread-safe.
type Pool struct {
	mu       sync.Mutex
	capPer   int
	freelist map[string][]*task.Task
}

// New builds a Pool with the given per-kind cap (DefaultCapPerKind if
// capPerKind <= 0).
func New(capPerKind int) *Pool {
	if capPerKind <= 0 {
		capPerKind = DefaultCapPerKind
	}
	return &Pool{
		capPer:   capPerKind,
		freelist: make(map[string][]*task.Task),
	}
}

// Acquire returns a recycled task of kind if one is on the freelist,
// otherwise builds a fresh one via factory.
func (p *Pool) Acquire(kind string, factory Factory) *task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := p.freelist[kind]
	if len(list) == 0 {
		return factory()
	}

	n := len(list)
	t := list[n-1]
	p.freelist[kind] = list[:n-1]
	return t
}

// Release clears t and returns it to kind's freelist. If the freelist is
// already at cap, t is cleared and discarded instead (spec.md §5 "tasks
// returned once that bound is reached are merely cleared and discarded").
func (p *Pool) Release(kind string, t *task.Task) {
	if t == nil {
		return
	}
	t.Clear()

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.freelist[kind]) >= p.capPer {
		return
	}
	p.freelist[kind] = append(p.freelist[kind], t)
}

// AutoRelease subscribes t so that it releases itself back to kind's
// freelist the moment it reaches any terminal status.
func (p *Pool) AutoRelease(kind string, t *task.Task) {
	t.OnComplete(func(tt *task.Task) { p.Release(kind, tt) })
	t.OnFailed(func(tt *task.Task, _ error) { p.Release(kind, tt) })
	t.OnCancelled(func(tt *task.Task) { p.Release(kind, tt) })
}

// ClearPool drops every freelisted task of the given kind.
func (p *Pool) ClearPool(kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.freelist, kind)
}

// ClearAll drops every freelisted task of every kind.
func (p *Pool) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freelist = make(map[string][]*task.Task)
}

// Prewarm populates kind's freelist with n fresh tasks from factory, up to
// the pool's per-kind cap (prewarming beyond the cap is clamped, spec.md
// §5).
func (p *Pool) Prewarm(kind string, n int, factory Factory) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	room := p.capPer - len(p.freelist[kind])
	p.mu.Unlock()
	if room <= 0 {
		return
	}
	if n > room {
		n = room
	}

	fresh := make([]*task.Task, n)
	for i := range fresh {
		fresh[i] = factory()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.freelist[kind] = append(p.freelist[kind], fresh...)
}

// Size reports how many tasks of kind currently sit on the freelist.
func (p *Pool) Size(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freelist[kind])
}

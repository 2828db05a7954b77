// ABOUTME: Shared usage ledger accumulating token counters per model identity.
// ABOUTME: One ledger lives for exactly one top-level invocation tree.

package usage

import (
	"sync"

	"github.com/2389/coven-dispatch/internal/model"
)

// Counters accumulates token consumption for one model identity. Counters
// only grow for the lifetime of a top-level invocation; they are never
// reset mid-tree.
type Counters struct {
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
	Thinking   int64
	Calls      int64
}

// Ledger maps model identities to shared counter objects. Every call in a
// tree that resolves to the same model updates the same Counters instance.
// All mutation goes through the ledger so parallel siblings stay safe.
type Ledger struct {
	mu       sync.Mutex
	counters map[model.Ref]*Counters
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counters: make(map[model.Ref]*Counters)}
}

// Counters returns the shared counters for the given model, creating them
// lazily on first use.
func (l *Ledger) Counters(ref model.Ref) *Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countersLocked(ref)
}

func (l *Ledger) countersLocked(ref model.Ref) *Counters {
	c, ok := l.counters[ref]
	if !ok {
		c = &Counters{}
		l.counters[ref] = c
	}
	return c
}

// Add folds one completion step's delta into the counters for ref and
// increments its call count.
func (l *Ledger) Add(ref model.Ref, d model.Delta) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.countersLocked(ref)
	c.Input += d.Input
	c.Output += d.Output
	c.CacheRead += d.CacheRead
	c.CacheWrite += d.CacheWrite
	c.Thinking += d.Thinking
	c.Calls++
}

// Snapshot returns a copy of all counters, keyed by model.
func (l *Ledger) Snapshot() map[model.Ref]Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[model.Ref]Counters, len(l.counters))
	for ref, c := range l.counters {
		out[ref] = *c
	}
	return out
}

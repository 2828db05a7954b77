// ABOUTME: Runner serializes top-level invocations: one call tree at a time.
// ABOUTME: Produces an Invocation record carrying the trace and usage snapshot.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/trace"
	"github.com/2389/coven-dispatch/internal/usage"
)

// ErrAlreadyRunning indicates a top-level invocation is already in flight
// on this runner.
var ErrAlreadyRunning = errors.New("invocation already running")

// Invocation is the outcome of one top-level dispatch: the result (or
// error), the full initiation-ordered trace, and the per-model usage.
type Invocation struct {
	ID         string
	Entry      string
	Input      json.RawMessage
	Output     json.RawMessage
	Err        string
	Trace      []*trace.Record
	Usage      map[model.Ref]usage.Counters
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner guards a conversation state: it rejects a new top-level
// invocation while one is in flight rather than interleaving trees.
type Runner struct {
	mu      sync.Mutex
	running bool
	opts    Options
}

// NewRunner creates a runner with the given dispatch options. Each Run
// gets a fresh context tree (fresh trace and ledger).
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run dispatches one top-level invocation. The returned Invocation is
// non-nil whenever the dispatch started, so callers can inspect or
// persist the trace even for failed trees; the error mirrors the
// dispatch error.
func (r *Runner) Run(ctx context.Context, name string, input json.RawMessage) (*Invocation, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	c := New(r.opts)
	inv := &Invocation{
		ID:        uuid.New().String(),
		Entry:     name,
		Input:     input,
		StartedAt: time.Now().UTC(),
	}

	out, err := c.Call(ctx, name, input)
	inv.FinishedAt = time.Now().UTC()
	inv.Output = out
	inv.Trace = c.trace.Records()
	inv.Usage = c.usage.Snapshot()
	if err != nil {
		inv.Err = err.Error()
		return inv, err
	}
	return inv, nil
}

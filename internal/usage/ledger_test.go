// ABOUTME: Tests for the shared usage ledger and its per-model accumulation.
// ABOUTME: Two calls resolving to the same model must share one counters instance.

package usage

import (
	"testing"

	"github.com/2389/coven-dispatch/internal/model"
)

func TestLedgerSharedCounters(t *testing.T) {
	ledger := NewLedger()

	first := ledger.Counters("claude-sonnet")
	second := ledger.Counters("claude-sonnet")
	if first != second {
		t.Fatal("expected the same counters instance for the same model")
	}
	if other := ledger.Counters("claude-haiku"); other == first {
		t.Fatal("expected distinct counters for distinct models")
	}
}

func TestLedgerAdd(t *testing.T) {
	ledger := NewLedger()

	ledger.Add("m", model.Delta{Input: 100, Output: 20, Thinking: 5})
	ledger.Add("m", model.Delta{Input: 50, Output: 10, CacheRead: 30})

	c := ledger.Counters("m")
	if c.Input != 150 || c.Output != 30 || c.Thinking != 5 || c.CacheRead != 30 {
		t.Errorf("unexpected accumulation: %+v", c)
	}
	if c.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", c.Calls)
	}
}

func TestLedgerSnapshot(t *testing.T) {
	ledger := NewLedger()
	ledger.Add("m", model.Delta{Input: 1})

	snap := ledger.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 model, got %d", len(snap))
	}

	// The snapshot is a copy; later mutation must not leak into it.
	ledger.Add("m", model.Delta{Input: 1})
	if snap["m"].Input != 1 {
		t.Errorf("snapshot mutated: %d", snap["m"].Input)
	}
}

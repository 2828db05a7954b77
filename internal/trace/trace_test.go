// ABOUTME: Tests for the shared call trace: initiation order and reconciliation.
// ABOUTME: Pins the (name, depth) dedupe behavior, including its sibling limitation.

package trace

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLogAppendOrder(t *testing.T) {
	log := NewLog()

	a := log.Append(&Record{Name: "a", Depth: 0})
	b := log.Append(&Record{Name: "b", Depth: 1})
	log.SetOutput(b, json.RawMessage(`1`))
	log.SetError(a, errors.New("boom"))

	records := log.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "a" || records[1].Name != "b" {
		t.Errorf("records out of initiation order: %s, %s", records[0].Name, records[1].Name)
	}
	if records[0].Err != "boom" {
		t.Errorf("expected error recorded, got %q", records[0].Err)
	}
	if string(records[1].Output) != "1" {
		t.Errorf("expected output recorded, got %s", records[1].Output)
	}
	if records[0].ID == "" || records[0].At.IsZero() {
		t.Error("expected Append to assign ID and timestamp")
	}
}

func TestLogReconcile(t *testing.T) {
	t.Run("skips records already present by name and depth", func(t *testing.T) {
		log := NewLog()
		log.Append(&Record{Name: "add", Depth: 1})

		appended := log.Reconcile([]*Record{
			{Name: "add", Depth: 1},    // already dispatched
			{Name: "lookup", Depth: 1}, // model-internal, new
		})
		if appended != 1 {
			t.Fatalf("expected 1 appended, got %d", appended)
		}
		if log.Len() != 2 {
			t.Errorf("expected 2 records, got %d", log.Len())
		}
	})

	t.Run("same name at different depth is distinct", func(t *testing.T) {
		log := NewLog()
		log.Append(&Record{Name: "add", Depth: 1})

		if appended := log.Reconcile([]*Record{{Name: "add", Depth: 2}}); appended != 1 {
			t.Errorf("expected append at different depth, got %d", appended)
		}
	})

	// Known limitation of the (name, depth) key: two distinct sibling
	// calls to the same entry at the same depth collapse into one record.
	t.Run("sibling calls at the same depth collapse", func(t *testing.T) {
		log := NewLog()

		appended := log.Reconcile([]*Record{
			{Name: "add", Depth: 1, Input: json.RawMessage(`{"a":1}`)},
			{Name: "add", Depth: 1, Input: json.RawMessage(`{"a":2}`)},
		})
		if appended != 1 {
			t.Fatalf("expected the second sibling to be merged away, got %d appended", appended)
		}
		records := log.Records()
		if string(records[0].Input) != `{"a":1}` {
			t.Errorf("expected the first sibling kept, got %s", records[0].Input)
		}
	})
}

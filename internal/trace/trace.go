// ABOUTME: Shared append-only call trace for one top-level invocation tree.
// ABOUTME: Records appear in initiation order; hierarchy is reconstructed from Depth.

package trace

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one dispatched call. Exactly one record exists per call,
// successful or failed. Output stays nil until the call succeeds; Err
// stays empty until it fails.
type Record struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Kind   string          `json:"kind"`
	Depth  int             `json:"depth"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Err    string          `json:"error,omitempty"`
	At     time.Time       `json:"at"`
}

// Log is the flat, append-only, shared call sequence for an invocation
// tree. Every context in the tree mutates the same log. The mutex is the
// synchronization contract for implementations that run sibling calls on
// parallel workers; the reference scheduling model is serialized.
type Log struct {
	mu      sync.Mutex
	records []*Record
}

// NewLog creates an empty trace log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a record in initiation order, assigning its ID and timestamp.
// The returned pointer may be populated later via SetOutput or SetError.
func (l *Log) Append(r *Record) *Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	l.records = append(l.records, r)
	return r
}

// SetOutput records a successful result on an appended record.
func (l *Log) SetOutput(r *Record, output json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.Output = output
}

// SetError records a failure on an appended record.
func (l *Log) SetError(r *Record, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r.Err = err.Error()
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns the records in initiation order. The slice is a copy;
// the records are the shared instances.
func (l *Log) Records() []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Record, len(l.records))
	copy(out, l.records)
	return out
}

// Reconcile merges an agent's internally-logged sub-calls into the log,
// skipping any record already present with the same name and depth. The
// (name, depth) key matches the upstream behavior: two distinct sibling
// calls to the same entry at the same depth within one turn collapse to
// the record already in the log. Returns the number of records appended.
func (l *Log) Reconcile(records []*Record) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	appended := 0
	for _, r := range records {
		if l.containsLocked(r.Name, r.Depth) {
			continue
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.At.IsZero() {
			r.At = time.Now().UTC()
		}
		l.records = append(l.records, r)
		appended++
	}
	return appended
}

func (l *Log) containsLocked(name string, depth int) bool {
	for _, r := range l.records {
		if r.Name == name && r.Depth == depth {
			return true
		}
	}
	return false
}

// ABOUTME: Entry abstraction shared by deterministic capabilities and LLM agents.
// ABOUTME: Defines the Entry contract and the Caller interface back into the dispatcher.

package entry

import (
	"context"
	"encoding/json"

	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/trace"
	"github.com/2389/coven-dispatch/internal/usage"
)

// Kind discriminates the two entry variants.
type Kind int

const (
	// KindCapability is a deterministic function-backed entry.
	KindCapability Kind = iota
	// KindAgent is an LLM-driven entry that may recurse into other entries.
	KindAgent
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindCapability:
		return "capability"
	case KindAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Descriptor is the immutable public description of an entry, used for
// approval prompts, trace records, and model tool listings.
type Descriptor struct {
	Name             string
	Description      string
	Kind             Kind
	Capabilities     []string
	RequiresApproval bool
	Model            model.Ref
	InputSchema      json.RawMessage
}

// Caller is the dispatcher handle given to an entry for the duration of
// one call. Call re-enters the dispatcher exactly as a top-level caller
// would, at the entry's own depth.
type Caller interface {
	// Call dispatches a nested entry invocation.
	Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error)
	// Describe looks up the descriptor of a registered entry.
	Describe(name string) (Descriptor, error)
	// Depth is this caller's recursion depth.
	Depth() int
	// DefaultModel is the context's default model identity.
	DefaultModel() model.Ref
	// Usage is the shared ledger for the whole invocation tree.
	Usage() *usage.Ledger
	// Trace is the shared call trace for the whole invocation tree.
	Trace() *trace.Log
}

// Entry is the unit of work the dispatcher invokes. Implementations are
// immutable once registered.
type Entry interface {
	Describe() Descriptor
	Call(ctx context.Context, input json.RawMessage, caller Caller) (json.RawMessage, error)
}

// Package dispatch orchestrates policy-gated recursive entry calls.
//
// # Overview
//
// A Context dispatches one call: it resolves the entry, computes its
// capability set, evaluates the approval model, and — if approved —
// invokes the entry with a child context at depth+1. Entries may recurse
// back into the dispatcher through the child, forming a call tree bounded
// only by the depth limit.
//
// # Shared state
//
// The trace log and usage ledger are shared by reference across the whole
// tree; a child context forks nothing but the depth counter. Both
// structures serialize their own mutation, which is the synchronization
// contract for implementations that run sibling calls in parallel. The
// reference scheduling model is single-threaded cooperative: one call
// fully resolves before the next sibling begins.
//
// # Approval
//
// Per-entry overrides are consulted before the capability-rule table; the
// results of every composed policy layer are merged under the dominance
// order Blocked > NeedsApproval > PreApproved. A wrongly-approved call is
// a security bug, so merging is never short-circuited on an inner layer's
// result.
//
// # Failure semantics
//
// Structural errors (depth, lookup) are raised at detection and never
// retried. Approval denial is ErrPermissionDenied, distinct from entry
// execution errors, which are recorded in the trace and re-raised
// unchanged to the immediate caller.
package dispatch

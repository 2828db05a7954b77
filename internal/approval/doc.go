// Package approval implements the capability-based approval model.
//
// # Overview
//
// Every call carries a capability set: opaque tags unioned from the
// entry's static declaration, the per-entry override table, and any
// composed policy layers. The rule table maps tags to one of three
// decisions; an unmapped tag falls back to a configurable default
// (needs_approval, i.e. secure by default).
//
// # Dominance
//
// Results merge under the total order Blocked > NeedsApproval >
// PreApproved: the most restrictive outcome always wins. This holds both
// across multiple tags on one call and across composed policy layers, so
// an inner layer's pre-approval can never override an outer block.
//
// # Conditional rules
//
// A rule may carry a "when" expression (expr-lang) evaluated against the
// call input. A false condition skips the rule for that call; an
// evaluation error blocks the call rather than letting a broken condition
// grant access.
package approval

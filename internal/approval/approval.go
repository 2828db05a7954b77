// ABOUTME: Approval results, the dominance order, and the merge rule.
// ABOUTME: The most restrictive of several approval outcomes always wins.

package approval

// Decision is the ordered severity of an approval outcome. The order is
// the dominance order used when merging policy layers: Blocked dominates
// NeedsApproval dominates PreApproved.
type Decision int

const (
	// PreApproved allows the call without asking anyone.
	PreApproved Decision = iota
	// NeedsApproval defers the call to the external approval callback.
	NeedsApproval
	// Blocked denies the call outright.
	Blocked
)

// String returns the decision's config-file name.
func (d Decision) String() string {
	switch d {
	case PreApproved:
		return "pre_approved"
	case NeedsApproval:
		return "needs_approval"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParseDecision parses a config-file decision name.
func ParseDecision(s string) (Decision, bool) {
	switch s {
	case "pre_approved":
		return PreApproved, true
	case "needs_approval":
		return NeedsApproval, true
	case "blocked":
		return Blocked, true
	default:
		return 0, false
	}
}

// Result is the tri-state outcome of one policy evaluation. Reason is set
// only for Blocked.
type Result struct {
	Decision Decision
	Reason   string
}

// Allow returns a PreApproved result.
func Allow() Result { return Result{Decision: PreApproved} }

// Ask returns a NeedsApproval result.
func Ask() Result { return Result{Decision: NeedsApproval} }

// Deny returns a Blocked result with the given reason.
func Deny(reason string) Result { return Result{Decision: Blocked, Reason: reason} }

// Merge combines two results under the dominance order; the more
// restrictive result wins. When both are Blocked the first reason is kept.
func Merge(a, b Result) Result {
	if a.Decision >= b.Decision {
		return a
	}
	return b
}

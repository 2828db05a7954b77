// ABOUTME: Per-entry approval overrides consulted before capability-rule evaluation.
// ABOUTME: An explicit block or pre-approval short-circuits the rule table, not the layers.

package approval

// Override is an explicit per-entry policy exception. Blocked and
// PreApproved are mutually exclusive in practice; Blocked wins if both
// are set. Capabilities adds tags to the call's capability set.
type Override struct {
	Blocked      bool
	BlockReason  string
	PreApproved  bool
	Capabilities []string
}

// Overrides maps entry names to their overrides.
type Overrides map[string]Override

// Lookup returns the override for an entry name, if any.
func (o Overrides) Lookup(name string) (Override, bool) {
	if o == nil {
		return Override{}, false
	}
	ov, ok := o[name]
	return ov, ok
}

// Apply resolves the override into a result. The second return reports
// whether the override decided the call, skipping rule evaluation.
func (ov Override) Apply(name string) (Result, bool) {
	if ov.Blocked {
		reason := ov.BlockReason
		if reason == "" {
			reason = "entry " + name + " is blocked"
		}
		return Deny(reason), true
	}
	if ov.PreApproved {
		return Allow(), true
	}
	return Result{}, false
}

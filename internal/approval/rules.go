// ABOUTME: Capability-rule table mapping capability tags to approval decisions.
// ABOUTME: Rules may carry an expr condition over the call input; errors fail closed.

package approval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// Rule maps one capability tag to a decision. When is an optional
// expr-lang condition evaluated against the call input; a rule whose
// condition evaluates false is skipped for that call.
type Rule struct {
	Decision Decision
	When     string
}

// Rules is the capability-rule table plus the fallback decision for
// unmapped tags. The zero value is unusable; use NewRules.
type Rules struct {
	rules map[string]Rule
	def   Decision
}

// NewRules creates a rule table with the given default for unmapped tags.
// The secure default for a fresh table is NeedsApproval.
func NewRules(def Decision) *Rules {
	return &Rules{
		rules: make(map[string]Rule),
		def:   def,
	}
}

// Set maps a capability tag to a rule.
func (r *Rules) Set(tag string, rule Rule) {
	r.rules[tag] = rule
}

// Default returns the fallback decision for unmapped tags.
func (r *Rules) Default() Decision {
	return r.def
}

// Evaluate applies the table to a capability set. When a call carries
// multiple tags the most restrictive matching rule wins. Tags without a
// rule contribute the default decision. An empty capability set falls
// back entirely on the caller (matched reports whether any tag was seen).
func (r *Rules) Evaluate(tags []string, input json.RawMessage) (result Result, matched bool) {
	if len(tags) == 0 {
		return Allow(), false
	}

	vars := inputVars(input)
	result = Allow()
	for _, tag := range tags {
		rule, ok := r.rules[tag]
		if !ok {
			result = Merge(result, r.defaultResult(tag))
			continue
		}
		if rule.When != "" {
			applies, err := evalCondition(rule.When, vars)
			if err != nil {
				// A broken condition must not quietly grant access.
				result = Merge(result, Deny(fmt.Sprintf("rule %s: %v", tag, err)))
				continue
			}
			if !applies {
				result = Merge(result, r.defaultResult(tag))
				continue
			}
		}
		result = Merge(result, r.ruleResult(tag, rule.Decision))
	}
	return result, true
}

func (r *Rules) defaultResult(tag string) Result {
	if r.def == Blocked {
		return Deny(fmt.Sprintf("capability %s blocked by default", tag))
	}
	return Result{Decision: r.def}
}

func (r *Rules) ruleResult(tag string, d Decision) Result {
	if d == Blocked {
		return Deny(fmt.Sprintf("capability %s is blocked", tag))
	}
	return Result{Decision: d}
}

// evalCondition evaluates an expr condition to a boolean. An empty
// condition is true.
func evalCondition(cond string, vars map[string]any) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return true, nil
	}
	out, err := expr.Eval(cond, vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition must evaluate to bool, got %T", out)
	}
	return b, nil
}

// inputVars exposes the decoded call input to rule conditions as "input".
// Non-object or malformed input yields an empty map so conditions that
// reference fields fail rather than panic.
func inputVars(input json.RawMessage) map[string]any {
	decoded := map[string]any{}
	if len(input) > 0 {
		_ = json.Unmarshal(input, &decoded)
	}
	return map[string]any{"input": decoded}
}

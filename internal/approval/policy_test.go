// ABOUTME: Tests for layered policy evaluation and capability contribution.
// ABOUTME: An inner layer's pre-approval must never override an outer block.

package approval

import (
	"context"
	"encoding/json"
	"testing"
)

// stubPolicy returns fixed tags and a fixed result.
type stubPolicy struct {
	tags   []string
	result Result
}

func (p *stubPolicy) Capabilities(string) []string { return p.tags }
func (p *stubPolicy) Evaluate(context.Context, string, []string, json.RawMessage) Result {
	return p.result
}

func TestLayersEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty layers contribute nothing restrictive", func(t *testing.T) {
		var ls Layers
		if got := ls.Evaluate(ctx, "x", nil, nil); got.Decision != PreApproved {
			t.Errorf("expected PreApproved, got %v", got.Decision)
		}
	})

	t.Run("inner pre-approval never overrides outer block", func(t *testing.T) {
		ls := Layers{
			&stubPolicy{result: Deny("outer policy blocks")},
			&stubPolicy{result: Allow()},
		}
		got := ls.Evaluate(ctx, "x", nil, nil)
		if got.Decision != Blocked {
			t.Fatalf("expected Blocked, got %v", got.Decision)
		}
		if got.Reason != "outer policy blocks" {
			t.Errorf("expected outer reason, got %q", got.Reason)
		}
	})

	t.Run("capabilities union across layers", func(t *testing.T) {
		ls := Layers{
			&stubPolicy{tags: []string{"a"}},
			&stubPolicy{tags: []string{"b", "c"}},
		}
		tags := ls.Capabilities("x")
		if len(tags) != 3 {
			t.Fatalf("expected 3 tags, got %v", tags)
		}
	})
}

func TestRulePolicy(t *testing.T) {
	rules := NewRules(NeedsApproval)
	rules.Set("inner", Rule{Decision: Blocked})
	p := &RulePolicy{
		Rules: rules,
		Extra: map[string][]string{"danger": {"inner"}},
	}

	if got := p.Capabilities("danger"); len(got) != 1 || got[0] != "inner" {
		t.Errorf("unexpected capabilities: %v", got)
	}
	if got := p.Capabilities("safe"); got != nil {
		t.Errorf("expected no capabilities, got %v", got)
	}

	result := p.Evaluate(context.Background(), "danger", []string{"inner"}, nil)
	if result.Decision != Blocked {
		t.Errorf("expected Blocked, got %v", result.Decision)
	}

	// An untagged call is out of this layer's scope.
	result = p.Evaluate(context.Background(), "safe", nil, nil)
	if result.Decision != PreApproved {
		t.Errorf("expected PreApproved for untagged call, got %v", result.Decision)
	}
}

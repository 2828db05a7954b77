// ABOUTME: Tests for approval results and the dominance merge.
// ABOUTME: Pins the total order Blocked > NeedsApproval > PreApproved.

package approval

import "testing"

func TestMergeDominance(t *testing.T) {
	blocked := Deny("nope")

	t.Run("blocked dominates everything", func(t *testing.T) {
		for _, other := range []Result{Allow(), Ask(), Deny("later")} {
			got := Merge(blocked, other)
			if got.Decision != Blocked {
				t.Errorf("Merge(Blocked, %v): expected Blocked, got %v", other.Decision, got.Decision)
			}
			if got.Reason != "nope" {
				t.Errorf("Merge(Blocked, %v): expected first reason kept, got %q", other.Decision, got.Reason)
			}
		}
	})

	t.Run("needs approval dominates pre-approved", func(t *testing.T) {
		if got := Merge(Ask(), Allow()); got.Decision != NeedsApproval {
			t.Errorf("expected NeedsApproval, got %v", got.Decision)
		}
		if got := Merge(Allow(), Ask()); got.Decision != NeedsApproval {
			t.Errorf("expected NeedsApproval (commuted), got %v", got.Decision)
		}
	})

	t.Run("merge is symmetric for the decision", func(t *testing.T) {
		pairs := []struct{ a, b Result }{
			{Allow(), Deny("r")},
			{Ask(), Deny("r")},
			{Allow(), Ask()},
		}
		for _, p := range pairs {
			if Merge(p.a, p.b).Decision != Merge(p.b, p.a).Decision {
				t.Errorf("merge not symmetric for %v/%v", p.a.Decision, p.b.Decision)
			}
		}
	})
}

func TestParseDecision(t *testing.T) {
	cases := map[string]Decision{
		"pre_approved":   PreApproved,
		"needs_approval": NeedsApproval,
		"blocked":        Blocked,
	}
	for s, want := range cases {
		got, ok := ParseDecision(s)
		if !ok || got != want {
			t.Errorf("ParseDecision(%q) = %v, %v", s, got, ok)
		}
	}
	if _, ok := ParseDecision("allow"); ok {
		t.Error("expected unknown decision to fail")
	}
}

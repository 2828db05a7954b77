// ABOUTME: Policy layer interface and left-to-right layered evaluation.
// ABOUTME: Layer results are always merged; an inner pre-approval never overrides an outer block.

package approval

import (
	"context"
	"encoding/json"
)

// Policy is one composable approval layer. Composed registries contribute
// capability tags and an approval result per call; the dispatcher merges
// every layer's result under the dominance order, so no layer can
// short-circuit another.
type Policy interface {
	// Capabilities reports the tags this layer attaches to calls of the
	// named entry.
	Capabilities(name string) []string
	// Evaluate returns this layer's approval result for the call.
	Evaluate(ctx context.Context, name string, tags []string, input json.RawMessage) Result
}

// Layers is an explicit ordered list of policy layers, evaluated
// left-to-right with the dominance merge.
type Layers []Policy

// Capabilities unions the tags reported by every layer.
func (ls Layers) Capabilities(name string) []string {
	var tags []string
	for _, l := range ls {
		tags = append(tags, l.Capabilities(name)...)
	}
	return tags
}

// Evaluate merges every layer's result. With no layers the result is
// PreApproved, i.e. the layers contribute nothing restrictive.
func (ls Layers) Evaluate(ctx context.Context, name string, tags []string, input json.RawMessage) Result {
	result := Allow()
	for _, l := range ls {
		result = Merge(result, l.Evaluate(ctx, name, tags, input))
	}
	return result
}

// RulePolicy adapts a rule table into a policy layer, for composing a
// wrapped registry's own rules behind an outer table.
type RulePolicy struct {
	Rules *Rules
	// Extra maps entry names to tags this layer attaches.
	Extra map[string][]string
}

// Capabilities implements Policy.
func (p *RulePolicy) Capabilities(name string) []string {
	if p.Extra == nil {
		return nil
	}
	return p.Extra[name]
}

// Evaluate implements Policy.
func (p *RulePolicy) Evaluate(_ context.Context, _ string, tags []string, input json.RawMessage) Result {
	result, matched := p.Rules.Evaluate(tags, input)
	if !matched {
		return Allow()
	}
	return result
}

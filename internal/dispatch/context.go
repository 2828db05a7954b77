// ABOUTME: Dispatcher context: lookup, capability resolution, approval, recursion.
// ABOUTME: Owns the depth invariant; forks only the depth counter per child call.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/coven-dispatch/internal/approval"
	"github.com/2389/coven-dispatch/internal/entry"
	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/registry"
	"github.com/2389/coven-dispatch/internal/trace"
	"github.com/2389/coven-dispatch/internal/usage"
)

// DefaultMaxDepth bounds recursion when Options.MaxDepth is unset. The
// depth bound is the sole circuit breaker against runaway recursion.
const DefaultMaxDepth = 8

// ErrDepthExceeded indicates the recursion guard fired.
var ErrDepthExceeded = errors.New("max call depth exceeded")

// ErrPermissionDenied indicates the call was blocked by policy or the
// approval callback declined it.
var ErrPermissionDenied = errors.New("permission denied")

// Approver is the external approval callback. It may block (interactive
// approval); a false result is equivalent to a block.
type Approver func(ctx context.Context, desc entry.Descriptor, input json.RawMessage) (bool, error)

// Options configures a dispatcher context tree.
type Options struct {
	Registry     *registry.Registry
	DefaultModel model.Ref
	MaxDepth     int
	Rules        *approval.Rules
	Overrides    approval.Overrides
	Layers       approval.Layers
	Approver     Approver
	Logger       *slog.Logger
}

// Context dispatches entry calls at one recursion depth. A child context
// is created for every nested call: it shares the registry, trace, and
// usage ledger by reference and increments only the depth.
type Context struct {
	registry     *registry.Registry
	defaultModel model.Ref
	maxDepth     int
	rules        *approval.Rules
	overrides    approval.Overrides
	layers       approval.Layers
	approver     Approver
	logger       *slog.Logger

	depth int
	trace *trace.Log
	usage *usage.Ledger
}

// New creates a root context at depth 0 with a fresh trace and ledger.
func New(opts Options) *Context {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Rules == nil {
		opts.Rules = approval.NewRules(approval.NeedsApproval)
	}
	return &Context{
		registry:     opts.Registry,
		defaultModel: opts.DefaultModel,
		maxDepth:     opts.MaxDepth,
		rules:        opts.Rules,
		overrides:    opts.Overrides,
		layers:       opts.Layers,
		approver:     opts.Approver,
		logger:       opts.Logger,
		trace:        trace.NewLog(),
		usage:        usage.NewLedger(),
	}
}

// child forks the context for a nested call: shared refs, depth+1.
func (c *Context) child() *Context {
	cc := *c
	cc.depth = c.depth + 1
	return &cc
}

// Depth implements entry.Caller.
func (c *Context) Depth() int { return c.depth }

// DefaultModel implements entry.Caller.
func (c *Context) DefaultModel() model.Ref { return c.defaultModel }

// Usage implements entry.Caller.
func (c *Context) Usage() *usage.Ledger { return c.usage }

// Trace implements entry.Caller.
func (c *Context) Trace() *trace.Log { return c.trace }

// Describe implements entry.Caller.
func (c *Context) Describe(name string) (entry.Descriptor, error) {
	e, err := c.registry.Get(name)
	if err != nil {
		return entry.Descriptor{}, err
	}
	return e.Describe(), nil
}

// Call dispatches one entry invocation. Structural errors (depth, lookup)
// are raised at the point of detection; approval denial is raised as
// ErrPermissionDenied; execution errors are recorded in the trace and
// re-raised unchanged. Nothing is retried.
func (c *Context) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	if c.depth >= c.maxDepth {
		return nil, fmt.Errorf("%w: depth %d, max %d", ErrDepthExceeded, c.depth, c.maxDepth)
	}

	e, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}
	desc := e.Describe()

	ov, _ := c.overrides.Lookup(name)
	tags := c.capabilitySet(desc, ov, name)

	rec := &trace.Record{
		Name:  name,
		Kind:  desc.Kind.String(),
		Depth: c.depth,
		Input: input,
	}

	result := c.evaluate(ctx, name, desc, ov, tags, input)
	switch result.Decision {
	case approval.Blocked:
		denied := fmt.Errorf("%w: %s", ErrPermissionDenied, result.Reason)
		c.trace.Append(rec)
		c.trace.SetError(rec, denied)
		c.logger.Warn("call blocked",
			"entry", name,
			"depth", c.depth,
			"reason", result.Reason,
		)
		return nil, denied

	case approval.NeedsApproval:
		approved, err := c.askApprover(ctx, desc, input)
		if err != nil {
			denied := fmt.Errorf("%w: approval callback failed: %v", ErrPermissionDenied, err)
			c.trace.Append(rec)
			c.trace.SetError(rec, denied)
			return nil, denied
		}
		if !approved {
			denied := fmt.Errorf("%w: approval denied", ErrPermissionDenied)
			c.trace.Append(rec)
			c.trace.SetError(rec, denied)
			c.logger.Info("call denied by approver", "entry", name, "depth", c.depth)
			return nil, denied
		}
	}

	// Resolve the effective model and make sure its counters exist, so
	// every call that resolves to the same model shares one accumulator.
	effModel := desc.Model
	if effModel == "" {
		effModel = c.defaultModel
	}
	c.usage.Counters(effModel)

	c.trace.Append(rec)
	c.logger.Debug("dispatching entry",
		"entry", name,
		"kind", desc.Kind.String(),
		"depth", c.depth,
		"model", string(effModel),
	)

	out, err := e.Call(ctx, input, c.child())
	if err != nil {
		c.trace.SetError(rec, err)
		return nil, err
	}
	c.trace.SetOutput(rec, out)
	return out, nil
}

// capabilitySet unions the entry's static tags, the override's declared
// tags, and the tags reported by every policy layer.
func (c *Context) capabilitySet(desc entry.Descriptor, ov approval.Override, name string) []string {
	seen := make(map[string]struct{})
	var tags []string
	add := func(ts []string) {
		for _, t := range ts {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	add(desc.Capabilities)
	add(ov.Capabilities)
	add(c.layers.Capabilities(name))
	return tags
}

// evaluate computes the merged approval result for one call. The per-entry
// override is consulted first and decides instead of the rule table; the
// layers are always evaluated and merged in, so an inner layer's
// pre-approval can never override an outer block.
func (c *Context) evaluate(ctx context.Context, name string, desc entry.Descriptor, ov approval.Override, tags []string, input json.RawMessage) approval.Result {
	base, decided := ov.Apply(name)
	if !decided {
		var matched bool
		base, matched = c.rules.Evaluate(tags, input)
		if !matched {
			// Tagless entry: the entry's own requiresApproval default decides.
			if desc.RequiresApproval {
				base = approval.Ask()
			} else {
				base = approval.Allow()
			}
		}
	}
	return approval.Merge(base, c.layers.Evaluate(ctx, name, tags, input))
}

// askApprover runs the external approval callback. With no approver
// configured the call is denied: needing approval with nobody to ask is
// a block, not a pass.
func (c *Context) askApprover(ctx context.Context, desc entry.Descriptor, input json.RawMessage) (bool, error) {
	if c.approver == nil {
		return false, nil
	}
	return c.approver(ctx, desc, input)
}

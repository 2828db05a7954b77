// ABOUTME: Capability entry wrapping a deterministic function with optional schema.
// ABOUTME: Capabilities do not recurse; they validate input and run the function.

package entry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/schema"
)

// Func is the deterministic function a Capability wraps.
type Func func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Capability is a deterministic function-backed entry.
type Capability struct {
	Name             string
	Description      string
	Fn               Func
	Tags             []string
	ApprovalRequired bool
	Model            model.Ref
	InputSchema      *schema.Schema
}

// Describe implements Entry.
func (c *Capability) Describe() Descriptor {
	return Descriptor{
		Name:             c.Name,
		Description:      c.Description,
		Kind:             KindCapability,
		Capabilities:     c.Tags,
		RequiresApproval: c.ApprovalRequired,
		Model:            c.Model,
		InputSchema:      c.InputSchema.Raw(),
	}
}

// Call implements Entry. Input is validated against the declared schema
// before the wrapped function runs; function errors propagate unchanged.
func (c *Capability) Call(ctx context.Context, input json.RawMessage, _ Caller) (json.RawMessage, error) {
	if err := c.InputSchema.Validate(input); err != nil {
		return nil, fmt.Errorf("capability %s: %w", c.Name, err)
	}
	return c.Fn(ctx, input)
}

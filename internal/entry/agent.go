// ABOUTME: Agent entry driving one model turn, re-entering the dispatcher per sub-call.
// ABOUTME: Reconciles model-reported sub-calls against the shared trace by (name, depth).

package entry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/schema"
	"github.com/2389/coven-dispatch/internal/trace"
)

// Agent is an LLM-driven entry. One Call runs one turn: the input becomes
// the opening user message, the model decides which bound entries to
// invoke, and each such invocation re-enters the dispatcher through the
// Caller. The turn ends when the model produces a final output.
type Agent struct {
	Name             string
	Description      string
	Instructions     string
	Entries          []string // names of entries the agent may call
	Tags             []string
	ApprovalRequired bool
	Model            model.Ref
	Client           model.Client
	InputSchema      *schema.Schema
	OutputSchema     *schema.Schema
	Logger           *slog.Logger
}

// Describe implements Entry.
func (a *Agent) Describe() Descriptor {
	return Descriptor{
		Name:             a.Name,
		Description:      a.Description,
		Kind:             KindAgent,
		Capabilities:     a.Tags,
		RequiresApproval: a.ApprovalRequired,
		Model:            a.Model,
		InputSchema:      a.InputSchema.Raw(),
	}
}

// Call implements Entry.
func (a *Agent) Call(ctx context.Context, input json.RawMessage, caller Caller) (json.RawMessage, error) {
	if a.Client == nil {
		return nil, fmt.Errorf("agent %s: no model client configured", a.Name)
	}
	if err := a.InputSchema.Validate(input); err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name, err)
	}

	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	effModel := a.Model
	if effModel == "" {
		effModel = caller.DefaultModel()
	}

	tools, err := a.boundTools(caller)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name, err)
	}

	messages := []model.Message{{Role: model.RoleUser, Content: string(input)}}
	var reported []model.ReportedCall

	for {
		resp, err := a.Client.Complete(ctx, &model.Request{
			Model:        effModel,
			Instructions: a.Instructions,
			Messages:     messages,
			Tools:        tools,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}

		caller.Usage().Add(effModel, resp.Usage)
		reported = append(reported, resp.Reported...)

		for _, call := range resp.Calls {
			messages = append(messages, a.dispatch(ctx, caller, call))
		}

		if resp.Output != nil {
			a.reconcile(caller, reported)
			if err := a.OutputSchema.Validate(resp.Output); err != nil {
				return nil, fmt.Errorf("agent %s output: %w", a.Name, err)
			}
			return resp.Output, nil
		}
		if len(resp.Calls) == 0 {
			a.reconcile(caller, reported)
			return nil, fmt.Errorf("agent %s: model produced neither output nor entry calls", a.Name)
		}

		logger.Debug("agent turn continues",
			"agent", a.Name,
			"depth", caller.Depth(),
			"calls", len(resp.Calls),
		)
	}
}

// dispatch runs one model-requested sub-call and folds the result into the
// transcript. Sub-call failures are handled here, not re-raised: the agent
// is the immediate caller and feeds the error back to the model.
func (a *Agent) dispatch(ctx context.Context, caller Caller, call model.Call) model.Message {
	if !a.bound(call.Name) {
		return model.Message{
			Role:    model.RoleTool,
			Content: fmt.Sprintf("%s: entry not bound to agent %s", call.Name, a.Name),
		}
	}
	out, err := caller.Call(ctx, call.Name, call.Input)
	if err != nil {
		return model.Message{
			Role:    model.RoleTool,
			Content: fmt.Sprintf("%s: %v", call.Name, err),
		}
	}
	return model.Message{
		Role:    model.RoleTool,
		Content: fmt.Sprintf("%s: %s", call.Name, out),
	}
}

// reconcile merges model-reported internal sub-calls into the shared trace.
// The dispatcher already records every call it dispatched at depth+1, so
// only calls absent by (name, depth) are appended.
func (a *Agent) reconcile(caller Caller, reported []model.ReportedCall) {
	if len(reported) == 0 {
		return
	}
	records := make([]*trace.Record, len(reported))
	for i, rc := range reported {
		records[i] = &trace.Record{
			Name:   rc.Name,
			Kind:   KindCapability.String(),
			Depth:  caller.Depth(),
			Input:  rc.Input,
			Output: rc.Output,
			Err:    rc.Err,
		}
	}
	caller.Trace().Reconcile(records)
}

func (a *Agent) bound(name string) bool {
	for _, n := range a.Entries {
		if n == name {
			return true
		}
	}
	return false
}

// boundTools resolves descriptors for the agent's bound entries.
func (a *Agent) boundTools(caller Caller) ([]model.ToolInfo, error) {
	tools := make([]model.ToolInfo, 0, len(a.Entries))
	for _, name := range a.Entries {
		desc, err := caller.Describe(name)
		if err != nil {
			return nil, fmt.Errorf("bound entry %s: %w", name, err)
		}
		tools = append(tools, model.ToolInfo{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		})
	}
	return tools, nil
}

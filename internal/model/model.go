// ABOUTME: Model collaborator interface and request/response types for agent turns.
// ABOUTME: The dispatcher treats the model as an opaque capability behind Client.

package model

import (
	"context"
	"encoding/json"
)

// Ref identifies a model. The zero value means "no override" and callers
// fall back to the context's default model.
type Ref string

// Message roles used in a turn transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one element of a turn transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolInfo describes one entry the model may invoke during a turn.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Call is a sub-invocation the model requests during a turn. The agent
// re-enters the dispatcher for every Call.
type Call struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ReportedCall is a sub-call the model claims to have executed internally,
// without going through the dispatcher. Agents reconcile these against the
// shared trace after the turn.
type ReportedCall struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Err    string          `json:"error,omitempty"`
}

// Delta is the incremental token usage of one completion step.
type Delta struct {
	Input      int64 `json:"input_tokens"`
	Output     int64 `json:"output_tokens"`
	CacheRead  int64 `json:"cache_read_tokens"`
	CacheWrite int64 `json:"cache_write_tokens"`
	Thinking   int64 `json:"thinking_tokens"`
}

// Request is one completion step of an agent turn.
type Request struct {
	Model        Ref
	Instructions string
	Messages     []Message
	Tools        []ToolInfo
}

// Response is the model's answer to one completion step. A step either
// requests Calls (the turn continues) or produces Output (the turn ends).
// Reported carries model-side sub-calls for trace reconciliation.
type Response struct {
	Output   json.RawMessage
	Calls    []Call
	Reported []ReportedCall
	Usage    Delta
}

// Client is the model collaborator. Implementations may block on network
// I/O; failures propagate to the caller as opaque execution errors.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req *Request) (*Response, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

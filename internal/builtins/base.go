// ABOUTME: Built-in capability entries: arithmetic, string, time, and json tools.
// ABOUTME: Carry the "compute" and "clock" capability tags for the rule table.

package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389/coven-dispatch/internal/entry"
	"github.com/2389/coven-dispatch/internal/schema"
)

// Base returns the built-in capability entries registered by the CLI and
// reused across tests.
func Base() []*entry.Capability {
	return []*entry.Capability{
		{
			Name:        "add",
			Description: "Add two numbers",
			Tags:        []string{"compute"},
			InputSchema: schema.MustCompile(`{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["a","b"]}`),
			Fn:          add,
		},
		{
			Name:        "multiply",
			Description: "Multiply two numbers",
			Tags:        []string{"compute"},
			InputSchema: schema.MustCompile(`{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"number"}},"required":["a","b"]}`),
			Fn:          multiply,
		},
		{
			Name:        "concat",
			Description: "Concatenate strings with an optional separator",
			Tags:        []string{"compute"},
			InputSchema: schema.MustCompile(`{"type":"object","properties":{"parts":{"type":"array","items":{"type":"string"}},"separator":{"type":"string"}},"required":["parts"]}`),
			Fn:          concat,
		},
		{
			Name:        "upper",
			Description: "Uppercase a string",
			Tags:        []string{"compute"},
			InputSchema: schema.MustCompile(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
			Fn:          upper,
		},
		{
			Name:        "time_now",
			Description: "Current time in RFC 3339",
			Tags:        []string{"clock"},
			InputSchema: schema.MustCompile(`{"type":"object"}`),
			Fn:          timeNow,
		},
	}
}

type pairInput struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func add(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in pairInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return json.Marshal(in.A + in.B)
}

func multiply(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in pairInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return json.Marshal(in.A * in.B)
}

type concatInput struct {
	Parts     []string `json:"parts"`
	Separator string   `json:"separator"`
}

func concat(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in concatInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return json.Marshal(strings.Join(in.Parts, in.Separator))
}

type upperInput struct {
	Text string `json:"text"`
}

func upper(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in upperInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return json.Marshal(strings.ToUpper(in.Text))
}

func timeNow(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(time.Now().UTC().Format(time.RFC3339))
}

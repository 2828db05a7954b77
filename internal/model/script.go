// ABOUTME: Scripted model client that replays a fixed sequence of responses.
// ABOUTME: Used by tests and by coven-dispatch dry runs instead of a live model.

package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrScriptExhausted indicates the script has no responses left.
var ErrScriptExhausted = errors.New("model script exhausted")

// Script replays a fixed sequence of responses, one per Complete call.
// It is safe for use from a single invocation tree; steps are consumed
// in order regardless of the request contents.
type Script struct {
	mu    sync.Mutex
	steps []*Response
	next  int
}

// NewScript creates a script from the given responses.
func NewScript(steps ...*Response) *Script {
	return &Script{steps: steps}
}

// Complete returns the next scripted response.
func (s *Script) Complete(_ context.Context, _ *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.steps) {
		return nil, fmt.Errorf("%w: %d steps consumed", ErrScriptExhausted, s.next)
	}
	resp := s.steps[s.next]
	s.next++
	return resp, nil
}

// scriptStep is the on-disk form of one scripted response.
type scriptStep struct {
	Output   json.RawMessage `json:"output,omitempty"`
	Calls    []Call          `json:"calls,omitempty"`
	Reported []ReportedCall  `json:"reported,omitempty"`
	Usage    Delta           `json:"usage,omitempty"`
}

// LoadScript reads a JSON array of scripted responses from a file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model script: %w", err)
	}
	var raw []scriptStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing model script: %w", err)
	}
	steps := make([]*Response, len(raw))
	for i, st := range raw {
		steps[i] = &Response{
			Output:   st.Output,
			Calls:    st.Calls,
			Reported: st.Reported,
			Usage:    st.Usage,
		}
	}
	return NewScript(steps...), nil
}

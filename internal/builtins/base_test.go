// ABOUTME: Tests for the built-in capability entries.
// ABOUTME: Exercises each entry through its Call path, schema included.

package builtins

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/2389/coven-dispatch/internal/entry"
)

func find(t *testing.T, name string) *entry.Capability {
	t.Helper()
	for _, c := range Base() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no builtin named %s", name)
	return nil
}

func call(t *testing.T, name, input string) string {
	t.Helper()
	out, err := find(t, name).Call(context.Background(), json.RawMessage(input), nil)
	if err != nil {
		t.Fatalf("%s(%s) failed: %v", name, input, err)
	}
	return string(out)
}

func TestBuiltins(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  string
	}{
		{"add", `{"a":2,"b":3}`, "5"},
		{"add", `{"a":-1,"b":0.5}`, "-0.5"},
		{"multiply", `{"a":4,"b":2.5}`, "10"},
		{"concat", `{"parts":["a","b","c"],"separator":"-"}`, `"a-b-c"`},
		{"concat", `{"parts":["solo"]}`, `"solo"`},
		{"upper", `{"text":"quiet"}`, `"QUIET"`},
	} {
		t.Run(tc.name+" "+tc.input, func(t *testing.T) {
			if got := call(t, tc.name, tc.input); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBuiltinsRejectBadInput(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"add", `{"a":2}`},            // missing b
		{"add", `{"a":"two","b":3}`},  // wrong type
		{"concat", `{}`},              // missing parts
		{"upper", `{"text":42}`},      // wrong type
	} {
		t.Run(tc.name+" "+tc.input, func(t *testing.T) {
			_, err := find(t, tc.name).Call(context.Background(), json.RawMessage(tc.input), nil)
			if err == nil {
				t.Error("expected schema validation error")
			}
		})
	}
}

func TestTimeNow(t *testing.T) {
	out := call(t, "time_now", `{}`)

	var stamp string
	if err := json.Unmarshal([]byte(out), &stamp); err != nil {
		t.Fatalf("output is not a JSON string: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Errorf("output is not RFC 3339: %v", err)
	}
}

func TestBaseTags(t *testing.T) {
	for _, c := range Base() {
		if len(c.Tags) == 0 {
			t.Errorf("builtin %s carries no capability tag", c.Name)
		}
	}
}

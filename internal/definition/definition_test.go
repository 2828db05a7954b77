// ABOUTME: Tests for front-matter parsing: YAML and TOML headers, error classes.
// ABOUTME: Also covers directory loading of definition files into agents.

package definition

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/2389/coven-dispatch/internal/model"
)

const yamlDoc = `---
name: researcher
description: Looks things up
model: claude-sonnet
capabilities:
  - compute
requires_approval: true
entries:
  - add
  - time_now
input_schema: '{"type": "object"}'
---

Answer the question using the bound entries.
Cite every source.
`

const tomlDoc = `+++
name = "researcher"
description = "Looks things up"
model = "claude-sonnet"
capabilities = ["compute"]
requires_approval = true
entries = ["add", "time_now"]
input_schema = '{"type": "object"}'
+++

Answer the question using the bound entries.
Cite every source.
`

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"yaml header", yamlDoc},
		{"toml header", tomlDoc},
	} {
		t.Run(tc.name, func(t *testing.T) {
			def, err := Parse([]byte(tc.doc))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if def.Name != "researcher" {
				t.Errorf("name = %q", def.Name)
			}
			if def.Model != model.Ref("claude-sonnet") {
				t.Errorf("model = %q", def.Model)
			}
			if !def.RequiresApproval {
				t.Error("expected requires_approval")
			}
			if len(def.Capabilities) != 1 || def.Capabilities[0] != "compute" {
				t.Errorf("capabilities = %v", def.Capabilities)
			}
			if len(def.Entries) != 2 || def.Entries[1] != "time_now" {
				t.Errorf("entries = %v", def.Entries)
			}
			if string(def.InputSchema) != `{"type": "object"}` {
				t.Errorf("input_schema = %s", def.InputSchema)
			}
			want := "Answer the question using the bound entries.\nCite every source."
			if def.Instructions != want {
				t.Errorf("instructions = %q", def.Instructions)
			}
		})
	}
}

func TestParseCRLF(t *testing.T) {
	doc := "---\r\nname: win\r\n---\r\nBody line.\r\n"
	def, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.Name != "win" || def.Instructions != "Body line." {
		t.Errorf("got %q / %q", def.Name, def.Instructions)
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		want error
	}{
		{"no marker at all", "name: x\n", ErrMalformedDefinition},
		{"prose before marker", "Intro text\n---\nname: x\n---\n", ErrMalformedDefinition},
		{"unterminated yaml header", "---\nname: x\n", ErrMalformedDefinition},
		{"unterminated toml header", "+++\nname = \"x\"\n", ErrMalformedDefinition},
		{"mismatched markers", "---\nname: x\n+++\n", ErrMalformedDefinition},
		{"header is a scalar", "---\njust a string\n---\n", ErrInvalidHeader},
		{"header is a sequence", "---\n- a\n- b\n---\n", ErrInvalidHeader},
		{"toml header does not parse", "+++\nname = \n+++\n", ErrInvalidHeader},
		{"missing name", "---\ndescription: no name here\n---\n", ErrMissingName},
		{"empty name", "---\nname: \"\"\n---\n", ErrMissingName},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseEmptyBody(t *testing.T) {
	def, err := Parse([]byte("---\nname: terse\n---\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def.Instructions != "" {
		t.Errorf("expected empty instructions, got %q", def.Instructions)
	}
}

func TestDefinitionAgent(t *testing.T) {
	def, err := Parse([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	agent, err := def.Agent(model.NewScript(), nil)
	if err != nil {
		t.Fatalf("Agent failed: %v", err)
	}
	desc := agent.Describe()
	if desc.Name != "researcher" || !desc.RequiresApproval {
		t.Errorf("descriptor = %+v", desc)
	}
	if desc.InputSchema == nil {
		t.Error("expected compiled input schema advertised")
	}
}

func TestDefinitionAgentBadSchema(t *testing.T) {
	def := &Definition{Name: "bad", InputSchema: []byte(`{not json`)}
	if _, err := def.Agent(model.NewScript(), nil); err == nil {
		t.Fatal("expected schema compile error")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.md", "---\nname: beta\n---\nSecond.\n")
	write("a.md", "---\nname: alpha\n---\nFirst.\n")
	write("notes.txt", "not a definition")

	agents, err := LoadDir(dir, model.NewScript(), nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	// Name order, so failures are deterministic.
	if agents[0].Name != "alpha" || agents[1].Name != "beta" {
		t.Errorf("order = %s, %s", agents[0].Name, agents[1].Name)
	}
}

func TestLoadDirBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.md")
	if err := os.WriteFile(path, []byte("no front matter"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadDir(dir, model.NewScript(), nil)
	if !errors.Is(err, ErrMalformedDefinition) {
		t.Errorf("expected ErrMalformedDefinition, got %v", err)
	}
}

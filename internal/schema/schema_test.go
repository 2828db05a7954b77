// ABOUTME: Tests for JSON Schema compilation and validation.
// ABOUTME: A nil Schema must accept everything; bad documents must fail early.

package schema

import (
	"encoding/json"
	"testing"
)

func TestCompileAndValidate(t *testing.T) {
	s, err := Compile(json.RawMessage(`{
		"type": "object",
		"properties": {"a": {"type": "number"}},
		"required": ["a"]
	}`))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if err := s.Validate(json.RawMessage(`{"a": 1}`)); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}
	if err := s.Validate(json.RawMessage(`{}`)); err == nil {
		t.Error("missing required property accepted")
	}
	if err := s.Validate(json.RawMessage(`{"a": "one"}`)); err == nil {
		t.Error("wrong type accepted")
	}
	if err := s.Validate(json.RawMessage(`{broken`)); err == nil {
		t.Error("non-JSON document accepted")
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := Compile(json.RawMessage(`{not json`)); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Compile(json.RawMessage(`{"type": "nonsense"}`)); err == nil {
		t.Error("expected compile error for unknown type")
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCompile(`{broken`)
}

func TestNilSchemaAcceptsEverything(t *testing.T) {
	var s *Schema
	if err := s.Validate(json.RawMessage(`{"anything": true}`)); err != nil {
		t.Errorf("nil schema rejected a document: %v", err)
	}
	if s.Raw() != nil {
		t.Error("nil schema must have no raw source")
	}
}

func TestRaw(t *testing.T) {
	raw := `{"type":"object"}`
	s := MustCompile(raw)
	if string(s.Raw()) != raw {
		t.Errorf("Raw = %s", s.Raw())
	}
}

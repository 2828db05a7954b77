// ABOUTME: Entry definition parsing: front-matter header plus instruction body.
// ABOUTME: Supports YAML (---) and TOML (+++) marker pairs, Hugo-style.

package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/coven-dispatch/internal/model"
)

// ErrMalformedDefinition indicates the front-matter marker pair is absent
// or unterminated.
var ErrMalformedDefinition = errors.New("malformed entry definition")

// ErrInvalidHeader indicates the header does not parse as a mapping.
var ErrInvalidHeader = errors.New("invalid definition header")

// ErrMissingName indicates the header has no name key.
var ErrMissingName = errors.New("definition missing name")

const (
	yamlMarker = "---"
	tomlMarker = "+++"
)

// Definition is a parsed entry definition: the structured header plus the
// free-form instruction text that follows it.
type Definition struct {
	Name             string
	Description      string
	Model            model.Ref
	Capabilities     []string
	RequiresApproval bool
	Entries          []string
	InputSchema      json.RawMessage
	OutputSchema     json.RawMessage
	Instructions     string
}

// header is the recognized front-matter mapping. Schemas are declared as
// inline JSON strings so one header syntax serves both YAML and TOML.
type header struct {
	Name             string   `yaml:"name" toml:"name"`
	Description      string   `yaml:"description" toml:"description"`
	Model            string   `yaml:"model" toml:"model"`
	Capabilities     []string `yaml:"capabilities" toml:"capabilities"`
	RequiresApproval bool     `yaml:"requires_approval" toml:"requires_approval"`
	Entries          []string `yaml:"entries" toml:"entries"`
	InputSchema      string   `yaml:"input_schema" toml:"input_schema"`
	OutputSchema     string   `yaml:"output_schema" toml:"output_schema"`
}

// Parse parses one definition document. The document must open with a
// marker line ("---" for YAML, "+++" for TOML), carry the header up to
// the matching closing marker, and everything after the closing marker is
// the instruction body.
func Parse(data []byte) (*Definition, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimLeft(text, "\n \t")

	var marker string
	switch {
	case strings.HasPrefix(text, yamlMarker+"\n"):
		marker = yamlMarker
	case strings.HasPrefix(text, tomlMarker+"\n"):
		marker = tomlMarker
	default:
		return nil, fmt.Errorf("%w: missing opening marker", ErrMalformedDefinition)
	}

	lines := strings.Split(text, "\n")
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == marker {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, fmt.Errorf("%w: unterminated %s header", ErrMalformedDefinition, marker)
	}

	headerText := strings.Join(lines[1:closing], "\n")
	body := strings.Join(lines[closing+1:], "\n")

	h, err := parseHeader(marker, headerText)
	if err != nil {
		return nil, err
	}
	if h.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrMissingName)
	}

	def := &Definition{
		Name:             h.Name,
		Description:      h.Description,
		Model:            model.Ref(h.Model),
		Capabilities:     h.Capabilities,
		RequiresApproval: h.RequiresApproval,
		Entries:          h.Entries,
		Instructions:     strings.TrimSpace(body),
	}
	if h.InputSchema != "" {
		def.InputSchema = json.RawMessage(h.InputSchema)
	}
	if h.OutputSchema != "" {
		def.OutputSchema = json.RawMessage(h.OutputSchema)
	}
	return def, nil
}

func parseHeader(marker, headerText string) (*header, error) {
	var h header
	switch marker {
	case yamlMarker:
		// Reject scalars and sequences before decoding into the struct;
		// the header must be a mapping.
		var probe map[string]any
		if err := yaml.Unmarshal([]byte(headerText), &probe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if err := yaml.Unmarshal([]byte(headerText), &h); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
	case tomlMarker:
		if err := toml.Unmarshal([]byte(headerText), &h); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
	}
	return &h, nil
}

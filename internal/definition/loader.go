// ABOUTME: Directory loader turning definition files into Agent entries.
// ABOUTME: Compiles declared schemas once at load time and binds the model client.

package definition

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/2389/coven-dispatch/internal/entry"
	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/schema"
)

// Agent builds an Agent entry from a parsed definition.
func (d *Definition) Agent(client model.Client, logger *slog.Logger) (*entry.Agent, error) {
	var inSchema, outSchema *schema.Schema
	var err error
	if d.InputSchema != nil {
		if inSchema, err = schema.Compile(d.InputSchema); err != nil {
			return nil, fmt.Errorf("entry %s input_schema: %w", d.Name, err)
		}
	}
	if d.OutputSchema != nil {
		if outSchema, err = schema.Compile(d.OutputSchema); err != nil {
			return nil, fmt.Errorf("entry %s output_schema: %w", d.Name, err)
		}
	}
	return &entry.Agent{
		Name:             d.Name,
		Description:      d.Description,
		Instructions:     d.Instructions,
		Entries:          d.Entries,
		Tags:             d.Capabilities,
		ApprovalRequired: d.RequiresApproval,
		Model:            d.Model,
		Client:           client,
		InputSchema:      inSchema,
		OutputSchema:     outSchema,
		Logger:           logger,
	}, nil
}

// LoadDir parses every .md file in dir into an Agent entry bound to the
// given model client. Files are loaded in name order so failures are
// deterministic.
func LoadDir(dir string, client model.Client, logger *slog.Logger) ([]*entry.Agent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading definitions dir: %w", err)
	}

	var names []string
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".md") {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	agents := make([]*entry.Agent, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		def, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		agent, err := def.Agent(client, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

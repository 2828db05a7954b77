// ABOUTME: Configuration loading and parsing for coven-dispatch.
// ABOUTME: Supports YAML files with environment variable expansion.

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/2389/coven-dispatch/internal/approval"
)

// Config represents the complete coven-dispatch configuration.
type Config struct {
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Entries    EntriesConfig    `yaml:"entries"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DispatcherConfig holds the dispatcher defaults.
type DispatcherConfig struct {
	DefaultModel string `yaml:"default_model"`
	MaxDepth     int    `yaml:"max_depth"`
}

// EntriesConfig locates the entry definition files and the model script.
type EntriesConfig struct {
	Dir    string `yaml:"dir"`
	Script string `yaml:"script"`
}

// ApprovalConfig holds the capability-rule table and per-entry overrides.
type ApprovalConfig struct {
	// Default is the decision for capability tags without a rule.
	// Empty means needs_approval.
	Default   string                    `yaml:"default"`
	Rules     map[string]RuleConfig     `yaml:"rules"`
	Overrides map[string]OverrideConfig `yaml:"overrides"`
}

// RuleConfig maps one capability tag to a decision with an optional
// condition over the call input.
type RuleConfig struct {
	Decision string `yaml:"decision"`
	When     string `yaml:"when"`
}

// OverrideConfig is an explicit per-entry approval exception.
type OverrideConfig struct {
	Blocked      bool       `yaml:"blocked"`
	BlockReason  string     `yaml:"block_reason"`
	PreApproved  bool       `yaml:"pre_approved"`
	Capabilities StringList `yaml:"capabilities"`
}

// StringList is a []string that also accepts a bare scalar in YAML, so
// `capabilities: net` and `capabilities: [net]` parse identically.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var one string
		if err := value.Decode(&one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := value.Decode(&many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

// DatabaseConfig holds the invocation store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configured values parse. Returns an error
// describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Dispatcher.MaxDepth < 0 {
		return fmt.Errorf("dispatcher.max_depth must not be negative")
	}
	if c.Approval.Default != "" {
		if _, ok := approval.ParseDecision(c.Approval.Default); !ok {
			return fmt.Errorf("approval.default: unknown decision %q", c.Approval.Default)
		}
	}
	for tag, rule := range c.Approval.Rules {
		if _, ok := approval.ParseDecision(rule.Decision); !ok {
			return fmt.Errorf("approval.rules.%s: unknown decision %q", tag, rule.Decision)
		}
	}
	for name, ov := range c.Approval.Overrides {
		if ov.Blocked && ov.PreApproved {
			return fmt.Errorf("approval.overrides.%s: blocked and pre_approved are mutually exclusive", name)
		}
	}
	return nil
}

// Rules builds the approval rule table from the config.
func (c *Config) Rules() *approval.Rules {
	def := approval.NeedsApproval
	if c.Approval.Default != "" {
		def, _ = approval.ParseDecision(c.Approval.Default)
	}
	rules := approval.NewRules(def)
	for tag, rc := range c.Approval.Rules {
		decision, _ := approval.ParseDecision(rc.Decision)
		rules.Set(tag, approval.Rule{Decision: decision, When: rc.When})
	}
	return rules
}

// Overrides builds the per-entry override table from the config.
func (c *Config) Overrides() approval.Overrides {
	if len(c.Approval.Overrides) == 0 {
		return nil
	}
	out := make(approval.Overrides, len(c.Approval.Overrides))
	for name, oc := range c.Approval.Overrides {
		out[name] = approval.Override{
			Blocked:      oc.Blocked,
			BlockReason:  oc.BlockReason,
			PreApproved:  oc.PreApproved,
			Capabilities: []string(oc.Capabilities),
		}
	}
	return out
}

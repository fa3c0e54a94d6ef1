// Package config loads project configuration: the include search path, main
// entry-point override, and linter toggles described in spec.md §6. Loading
// follows the teacher's layered-defaults pattern (pkg/config/config.go):
// built-in defaults, overlaid by a project file, overlaid by explicit
// overrides, then validated as a whole.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the complete project configuration consumed by the project
// graph and the preprocessor (spec.md §6 configuration options table).
type Config struct {
	// IncludesDirectories is the ordered list of additional include search
	// roots, consulted by resolve_path_relative_to_roots after the anchor
	// file's own directory.
	IncludesDirectories []string `toml:"includes_directories" yaml:"includes_directories"`

	// MainPath, if set, overrides root-selection heuristics (spec.md §4.6
	// point 1) and is taken as the project's entry point verbatim.
	MainPath string `toml:"main_path" yaml:"main_path"`

	// DisableSyntaxLinter is loaded and merged from overrides like the other
	// options, but no code reads it: syntax (parse-error) diagnostics are not
	// published whether it is set or not.
	DisableSyntaxLinter bool `toml:"disable_syntax_linter" yaml:"disable_syntax_linter"`

	// LinterArguments are passed through verbatim to an external linter
	// integration; the core does not interpret them.
	LinterArguments []string `toml:"linter_arguments" yaml:"linter_arguments"`
}

// DefaultConfig returns the configuration used when no project file exists.
func DefaultConfig() *Config {
	return &Config{
		IncludesDirectories: nil,
		MainPath:            "",
		DisableSyntaxLinter: false,
		LinterArguments:     nil,
	}
}

// Load reads "sourcepawn.toml" (preferred) or "sourcepawn.yaml" from root,
// overlaying it onto the defaults. overrides, if non-nil, wins over both —
// only its non-zero fields are applied, mirroring the teacher's CLI-flag
// precedence rule.
func Load(root string, overrides *Config) (*Config, error) {
	cfg := DefaultConfig()

	tomlPath := filepath.Join(root, "sourcepawn.toml")
	yamlPath := filepath.Join(root, "sourcepawn.yaml")

	switch {
	case fileExists(tomlPath):
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", tomlPath, err)
		}
	case fileExists(yamlPath):
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
		}
	}

	if overrides != nil {
		if overrides.MainPath != "" {
			cfg.MainPath = overrides.MainPath
		}
		if len(overrides.IncludesDirectories) > 0 {
			cfg.IncludesDirectories = overrides.IncludesDirectories
		}
		if overrides.DisableSyntaxLinter {
			cfg.DisableSyntaxLinter = true
		}
		if len(overrides.LinterArguments) > 0 {
			cfg.LinterArguments = overrides.LinterArguments
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.IncludesDirectories))
	for _, dir := range c.IncludesDirectories {
		if dir == "" {
			return fmt.Errorf("includes_directories: empty entry not allowed")
		}
		if seen[dir] {
			return fmt.Errorf("includes_directories: duplicate entry %q", dir)
		}
		seen[dir] = true
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Package config loads parley configuration from YAML files and the
// environment. Configuration is optional: the zero value plus environment
// variables is enough to run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parleychat/parley/core"
)

// Duration wraps time.Duration so YAML values like "30s" parse with
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AgentConfig declares one agent profile in the configuration file.
type AgentConfig struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	SystemInstruction string `yaml:"system_instruction"`
	Icon              string `yaml:"icon"`
	Color             string `yaml:"color"`
}

// CommandConfig declares one custom slash command.
type CommandConfig struct {
	Name        string `yaml:"name"`
	Params      string `yaml:"params"`
	Description string `yaml:"description"`
	Definition  string `yaml:"definition"`
}

// Config is the root configuration document.
type Config struct {
	// Provider selects the LLM backend: "openai" or "anthropic". When empty
	// the backend is inferred from which API key is present in the
	// environment.
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model id.
	Model string `yaml:"model"`
	// ProviderTimeout bounds each provider call. Zero means no timeout.
	ProviderTimeout Duration `yaml:"provider_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// StorePath is the SQLite database location. Empty selects the in-memory
	// store.
	StorePath string `yaml:"store_path"`

	Agents   []AgentConfig   `yaml:"agents"`
	Commands []CommandConfig `yaml:"commands"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		ProviderTimeout: Duration(2 * time.Minute),
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads and parses a YAML configuration file, layered over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("agent %q: id and name are required", a.Name)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	for _, cmd := range c.Commands {
		if cmd.Name == "" {
			return fmt.Errorf("command with empty name")
		}
	}
	return nil
}

// ResolveProviderName returns the provider backend to use: the explicit
// configuration wins, then whichever API key is present in the environment
// (Anthropic first), falling back to "openai".
func (c *Config) ResolveProviderName() string {
	if c.Provider != "" {
		return c.Provider
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "anthropic"
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "openai"
	}
	return "openai"
}

// AgentProfiles converts the configured agents to core profiles.
func (c *Config) AgentProfiles() []core.AgentProfile {
	profiles := make([]core.AgentProfile, 0, len(c.Agents))
	for _, a := range c.Agents {
		profiles = append(profiles, core.AgentProfile{
			ID:                a.ID,
			Name:              a.Name,
			Description:       a.Description,
			SystemInstruction: a.SystemInstruction,
			Icon:              a.Icon,
			Color:             a.Color,
			CreatedAt:         time.Now().UTC(),
		})
	}
	return profiles
}

// CustomCommands converts the configured commands to core commands.
func (c *Config) CustomCommands() []core.Command {
	cmds := make([]core.Command, 0, len(c.Commands))
	for _, cc := range c.Commands {
		cmds = append(cmds, core.Command{
			Name:        cc.Name,
			Params:      cc.Params,
			Description: cc.Description,
			Definition:  cc.Definition,
			IsCustom:    true,
		})
	}
	return cmds
}

// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for handoff.
type Config struct {
	// AgentCommand is the external agent invocation. The wrapped prompt is
	// appended as the final argument. Empty means the built-in codex default.
	AgentCommand []string `mapstructure:"agent_command" yaml:"agent_command,omitempty"`
	// Model is the default model identifier when a tool call omits one.
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// WorkspaceDir is the hidden directory under the repository root that
	// holds isolated workspaces.
	WorkspaceDir string `mapstructure:"workspace_dir" yaml:"workspace_dir"`
	// AgentTimeout bounds an agent run in seconds. 0 waits forever.
	AgentTimeout int    `mapstructure:"agent_timeout" yaml:"agent_timeout"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFile      string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("handoff")

	// Set defaults
	v.SetDefault("agent_command", []string{})
	v.SetDefault("model", "")
	v.SetDefault("workspace_dir", ".handoff")
	v.SetDefault("agent_timeout", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	// Setup ENV binding with HANDOFF_ prefix
	v.SetEnvPrefix("HANDOFF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better slice/int parsing
	if err := v.BindEnv("agent_command", "HANDOFF_AGENT_COMMAND"); err != nil {
		return nil, fmt.Errorf("binding agent_command env: %w", err)
	}
	if err := v.BindEnv("model", "HANDOFF_MODEL"); err != nil {
		return nil, fmt.Errorf("binding model env: %w", err)
	}
	if err := v.BindEnv("workspace_dir", "HANDOFF_WORKSPACE_DIR"); err != nil {
		return nil, fmt.Errorf("binding workspace_dir env: %w", err)
	}
	if err := v.BindEnv("agent_timeout", "HANDOFF_AGENT_TIMEOUT"); err != nil {
		return nil, fmt.Errorf("binding agent_timeout env: %w", err)
	}
	if err := v.BindEnv("log_level", "HANDOFF_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("binding log_level env: %w", err)
	}
	if err := v.BindEnv("log_file", "HANDOFF_LOG_FILE"); err != nil {
		return nil, fmt.Errorf("binding log_file env: %w", err)
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		// Need to set config file explicitly for merge
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// ENV gives a single string; split it so AgentCommand stays a command slice
	if len(cfg.AgentCommand) == 1 && strings.Contains(cfg.AgentCommand[0], " ") {
		cfg.AgentCommand = strings.Fields(cfg.AgentCommand[0])
	}

	return &cfg, nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/handoff/handoff.yml or $XDG_CONFIG_HOME/handoff/handoff.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "handoff", "handoff.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "handoff", "handoff.yml")
}

// ProjectPath returns the project-local config path.
// Returns ./handoff.yml in the current working directory.
func ProjectPath() string {
	return "handoff.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return writeFile(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return writeFile(ProjectPath(), cfg)
}

func writeFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

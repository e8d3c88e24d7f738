package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points global config and cwd at empty temp directories so ambient
// config files cannot leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.AgentCommand) != 0 {
		t.Errorf("AgentCommand = %v, want empty (codex default)", cfg.AgentCommand)
	}
	if cfg.WorkspaceDir != ".handoff" {
		t.Errorf("WorkspaceDir = %q, want .handoff", cfg.WorkspaceDir)
	}
	if cfg.AgentTimeout != 0 {
		t.Errorf("AgentTimeout = %d, want 0 (wait forever)", cfg.AgentTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HANDOFF_MODEL", "gpt-5")
	t.Setenv("HANDOFF_AGENT_TIMEOUT", "120")
	t.Setenv("HANDOFF_AGENT_COMMAND", "claude -p")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "gpt-5" {
		t.Errorf("Model = %q, want gpt-5", cfg.Model)
	}
	if cfg.AgentTimeout != 120 {
		t.Errorf("AgentTimeout = %d, want 120", cfg.AgentTimeout)
	}
	if len(cfg.AgentCommand) != 2 || cfg.AgentCommand[0] != "claude" || cfg.AgentCommand[1] != "-p" {
		t.Errorf("AgentCommand = %v, want [claude -p]", cfg.AgentCommand)
	}
}

func TestProjectConfigRoundTrip(t *testing.T) {
	isolate(t)

	want := &Config{
		AgentCommand: []string{"opencode", "run"},
		Model:        "anthropic/claude-sonnet-4-5",
		WorkspaceDir: ".handoff",
		AgentTimeout: 600,
		LogLevel:     "debug",
	}
	if err := WriteProject(want); err != nil {
		t.Fatalf("WriteProject() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != want.Model {
		t.Errorf("Model = %q, want %q", cfg.Model, want.Model)
	}
	if cfg.AgentTimeout != want.AgentTimeout {
		t.Errorf("AgentTimeout = %d, want %d", cfg.AgentTimeout, want.AgentTimeout)
	}
	if len(cfg.AgentCommand) != 2 || cfg.AgentCommand[0] != "opencode" {
		t.Errorf("AgentCommand = %v, want %v", cfg.AgentCommand, want.AgentCommand)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestGlobalPath(t *testing.T) {
	tests := []struct {
		name        string
		xdgConfig   string
		wantContain string
	}{
		{
			name:        "with XDG_CONFIG_HOME set",
			xdgConfig:   "/custom/config",
			wantContain: filepath.Join("/custom/config", "handoff", "handoff.yml"),
		},
		{
			name:        "without XDG_CONFIG_HOME",
			xdgConfig:   "",
			wantContain: filepath.Join(".config", "handoff", "handoff.yml"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.xdgConfig != "" {
				t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)
			} else {
				t.Setenv("XDG_CONFIG_HOME", "")
				os.Unsetenv("XDG_CONFIG_HOME")
			}

			got := GlobalPath()
			if tt.xdgConfig != "" && got != tt.wantContain {
				t.Errorf("GlobalPath() = %v, want %v", got, tt.wantContain)
			}
			if tt.xdgConfig == "" && !filepath.IsAbs(got) {
				t.Errorf("GlobalPath() = %v, want absolute home-relative path", got)
			}
		})
	}
}

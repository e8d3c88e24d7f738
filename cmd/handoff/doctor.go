package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/handoff/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that git and the external agent are available",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	failed := false

	if path, err := exec.LookPath("git"); err != nil {
		fmt.Println("✗ git: not found on PATH")
		failed = true
	} else {
		ver, _ := exec.Command("git", "--version").Output()
		fmt.Printf("✓ git: %s (%s)\n", strings.TrimSpace(string(ver)), path)
	}

	agentBin := "codex"
	if len(cfg.AgentCommand) > 0 {
		agentBin = cfg.AgentCommand[0]
	}
	if path, err := exec.LookPath(agentBin); err != nil {
		fmt.Printf("✗ agent: %q not found on PATH\n", agentBin)
		failed = true
	} else {
		fmt.Printf("✓ agent: %s (%s)\n", agentBin, path)
	}

	if config.Exists() {
		fmt.Printf("✓ config: %s\n", configLocation())
	} else {
		fmt.Println("- config: none (defaults in effect; run 'handoff setup' to create one)")
	}

	if failed {
		return fmt.Errorf("environment check failed")
	}
	return nil
}

func configLocation() string {
	if fileExists(config.ProjectPath()) {
		return config.ProjectPath()
	}
	return config.GlobalPath()
}

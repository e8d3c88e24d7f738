package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/mark3labs/handoff/internal/logger"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Delegate coding tasks to another AI model in an isolated workspace",
	Long: `handoff lets an AI coding assistant hand a task to a different model.

The delegated model runs as a non-interactive subprocess inside a disposable
git worktree, writes its answer to a fixed response file, and every change it
made (including commits) comes back as a unified diff for the caller to apply.
The real working tree is never touched.

Exposed as an MCP tool ("delegate") over stdio or HTTP, and runnable directly
with "handoff run".`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(setupCmd)
}

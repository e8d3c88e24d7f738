package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/handoff/internal/config"
	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/orchestrator"
	"github.com/mark3labs/handoff/internal/response"
)

var runFlags struct {
	model string
	dir   string
	query bool
}

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one delegation from the command line",
	Long: `Run a single delegation without an MCP client and print the result.

The prompt is taken from the argument, or from stdin when the argument is "-".`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.model, "model", "m", "", "Model identifier passed to the external agent")
	runCmd.Flags().StringVarP(&runFlags.dir, "dir", "C", "", "Working directory (default: current directory)")
	runCmd.Flags().BoolVarP(&runFlags.query, "query", "q", false, "Read-only analysis: discard all file changes, return no diff")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := args[0]
	if prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	dir := runFlags.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyLogConfig(cfg)

	mode := response.ModeDefault
	if runFlags.query {
		mode = response.ModeQuery
	}

	orch := orchestrator.New(orchestratorConfig(cfg))
	result, err := orch.Invoke(cmd.Context(), orchestrator.Request{
		Prompt:           prompt,
		Model:            runFlags.model,
		WorkingDirectory: dir,
		Mode:             mode,
	})
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotARepository) {
			return fmt.Errorf("%s is not inside a git repository", dir)
		}
		return err
	}

	fmt.Println(result.Render())
	if result.ExitCode != 0 {
		os.Exit(1)
	}
	return nil
}

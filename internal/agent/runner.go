// Package agent launches the external coding agent as a non-interactive
// subprocess inside an isolated workspace. The agent's stdout is documented
// to be an unreliable mix of progress narration and answer text, so it is
// drained and discarded; the response comes back through the response file
// and the diff, never through stdout parsing.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/handoff/internal/logger"
)

// ErrLaunchFailed indicates the agent process could not be spawned at all,
// as opposed to running and exiting non-zero.
var ErrLaunchFailed = errors.New("agent launch failed")

// Runner executes the external agent subprocess.
type Runner struct {
	command []string
	timeout time.Duration
}

// NewRunner creates a Runner. command overrides the built-in codex
// invocation; the wrapped prompt is always appended as the final argument.
// timeout of zero waits for process completion indefinitely.
func NewRunner(command []string, timeout time.Duration) *Runner {
	return &Runner{command: command, timeout: timeout}
}

// Result carries the agent's exit status and accumulated stderr.
type Result struct {
	ExitCode    int
	Diagnostics string
}

// defaultCommand is the codex CLI in non-interactive exec mode. The sandbox
// denies network access, which is what keeps the agent from pushing to any
// remote regardless of what the prompt instructs.
func defaultCommand(model string) []string {
	cmd := []string{"codex", "exec", "--sandbox", "workspace-write", "--color", "never"}
	if model != "" {
		cmd = append(cmd, "--model", model)
	}
	return cmd
}

// Run executes the agent in workDir with the wrapped prompt. Stdout is
// discarded, stderr accumulated. Model reaches custom commands through the
// HANDOFF_MODEL environment variable; the default codex command gets it as a
// --model flag. A non-zero exit is not an error: the exit code and stderr
// are returned untouched. Only a failure to spawn yields ErrLaunchFailed.
func (r *Runner) Run(ctx context.Context, workDir, prompt, model string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	argv := r.command
	if len(argv) == 0 {
		argv = defaultCommand(model)
	}
	args := append(append([]string{}, argv[1:]...), prompt)

	cmd := exec.CommandContext(ctx, argv[0], args...)
	cmd.Dir = workDir
	// Minimal dumb-terminal environment: the agent must not assume
	// interactive capabilities or emit color codes.
	cmd.Env = append(os.Environ(),
		"TERM=dumb",
		"NO_COLOR=1",
		"CI=1",
		"GIT_TERMINAL_PROMPT=0",
		"HANDOFF_MODEL="+model,
	)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.Stdin = strings.NewReader("")
	// If the agent is killed but left children holding the output pipes,
	// give up on draining them instead of waiting forever.
	cmd.WaitDelay = 5 * time.Second

	logger.Debug("Starting agent %s in %s (prompt length: %d)", argv[0], workDir, len(prompt))
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %q is not installed or not on PATH", ErrLaunchFailed, argv[0])
		}
		return Result{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	// Blocks for as long as the agent runs; real-world model latency means
	// minutes. exec copies stdout/stderr concurrently so the process never
	// stalls on a full output buffer.
	err := cmd.Wait()
	diagnostics := stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			logger.Warn("Agent exited with code %d", code)
			return Result{ExitCode: code, Diagnostics: diagnostics}, nil
		}
		return Result{ExitCode: -1, Diagnostics: diagnostics}, fmt.Errorf("waiting for agent: %w", err)
	}

	logger.Debug("Agent completed successfully")
	return Result{ExitCode: 0, Diagnostics: diagnostics}, nil
}

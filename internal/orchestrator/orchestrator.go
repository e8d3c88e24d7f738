// Package orchestrator sequences one delegation: validate the target
// repository, provision an isolated workspace, run the external agent, drain
// the response file, capture the diff, and tear the workspace down on every
// exit path. Only repository validation and workspace creation abort an
// invocation; every later failure degrades into a warning in the result,
// because the external agent's unreliability is expected, not exceptional.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/waigani/diffparser"

	"github.com/mark3labs/handoff/internal/agent"
	"github.com/mark3labs/handoff/internal/capture"
	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/logger"
	"github.com/mark3labs/handoff/internal/response"
	"github.com/mark3labs/handoff/internal/workspace"
)

// ContextSizeThreshold is the prompt size above which the result carries a
// context-size notice. Prompts that large usually embed pasted file contents
// and consume context budget in both directions.
const ContextSizeThreshold = 10 * 1024

// Config holds configuration for the orchestrator.
type Config struct {
	AgentCommand []string      // Override for the agent invocation (empty = codex default)
	Model        string        // Default model when the request omits one
	WorkspaceDir string        // Hidden directory under the repo root for workspaces
	AgentTimeout time.Duration // 0 = wait for the agent indefinitely
}

// Request is one immutable delegation request.
type Request struct {
	Prompt           string
	Model            string
	WorkingDirectory string
	Mode             response.Mode
}

// Result is the combined outcome of one invocation.
type Result struct {
	ResponseText    string
	ResponseMissing bool
	ChangeSet       string // unified diff; empty = no changes
	HasChangeSet    bool   // false in query mode
	CaptureFailed   bool   // diff computation errored; distinct from empty ChangeSet
	ExitCode        int
	Diagnostics     string
	Warnings        []string
	PromptSize      int
}

// Orchestrator runs delegation invocations. Concurrent invocations never
// contend: each owns an exclusively named workspace and branch.
type Orchestrator struct {
	cfg        Config
	git        *gitrepo.Runner
	workspaces *workspace.Manager
	agents     *agent.Runner
}

// New creates an Orchestrator with the given configuration.
func New(cfg Config) *Orchestrator {
	git := gitrepo.NewRunner("")
	return &Orchestrator{
		cfg:        cfg,
		git:        git,
		workspaces: workspace.NewManager(git, cfg.WorkspaceDir),
		agents:     agent.NewRunner(cfg.AgentCommand, cfg.AgentTimeout),
	}
}

// Invoke runs one delegation end to end. It returns an error only for
// gitrepo.ErrNotARepository and workspace.ErrCreateFailed; in both cases no
// workspace is left behind. Any other failure is folded into the Result.
func (o *Orchestrator) Invoke(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = response.ModeDefault
	}
	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}

	if !gitrepo.IsRepository(req.WorkingDirectory) {
		return nil, fmt.Errorf("%w: %s", gitrepo.ErrNotARepository, req.WorkingDirectory)
	}
	repoRoot, err := o.git.Root(ctx, req.WorkingDirectory)
	if err != nil {
		return nil, err
	}

	logger.Info("Delegating to model %q in %s (mode: %s)", model, repoRoot, mode)
	wsPath, err := o.workspaces.Create(ctx, repoRoot)
	if err != nil {
		return nil, err
	}
	// The one unconditional exit ramp: teardown runs whether the sequence
	// completed, the agent failed, or anything below panicked. A detached
	// context keeps cleanup working after caller cancellation.
	defer o.workspaces.Destroy(context.WithoutCancel(ctx), repoRoot, wsPath)

	result := &Result{PromptSize: len(req.Prompt)}

	// The diff baseline is fixed now, before the agent runs. The agent may
	// commit, which advances HEAD inside the workspace.
	startRev, err := o.git.HeadRevision(ctx, wsPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not record starting revision: %v", err))
	}

	wrapped := response.WrapPrompt(req.Prompt, mode)
	runRes, err := o.agents.Run(ctx, wsPath, wrapped, model)
	result.ExitCode = runRes.ExitCode
	result.Diagnostics = runRes.Diagnostics
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.ExitCode = -1
	} else if runRes.ExitCode != 0 {
		warning := fmt.Sprintf("agent exited with code %d", runRes.ExitCode)
		if diag := strings.TrimSpace(runRes.Diagnostics); diag != "" {
			warning += ": " + diag
		}
		result.Warnings = append(result.Warnings, warning)
	}

	// Drain the response file regardless of how the run went; a failing
	// agent may still have written a partial answer.
	text, found := response.ReadAndConsume(wsPath)
	result.ResponseText = text
	result.ResponseMissing = !found

	if mode == response.ModeDefault && startRev != "" {
		diff, err := capture.Changes(ctx, o.git, wsPath, startRev)
		result.HasChangeSet = true
		if err != nil {
			result.CaptureFailed = true
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.ChangeSet = diff
			logChangedFiles(diff)
		}
	}

	return result, nil
}

// logChangedFiles parses the captured diff and logs a changed-file summary.
func logChangedFiles(diff string) {
	if diff == "" {
		logger.Info("No file changes were made")
		return
	}
	parsed, err := diffparser.Parse(diff)
	if err != nil {
		logger.Debug("Could not parse captured diff for summary: %v", err)
		return
	}
	names := make([]string, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		name := f.NewName
		if name == "" {
			name = f.OrigName
		}
		names = append(names, name)
	}
	logger.Info("Captured changes to %d file(s): %s", len(names), strings.Join(names, ", "))
}

// Render assembles the labeled text payload returned to the caller.
func (r *Result) Render() string {
	var b strings.Builder

	b.WriteString("## Agent Response\n\n")
	if r.ResponseMissing {
		b.WriteString("The agent did not write a response file.")
	} else {
		b.WriteString(strings.TrimRight(r.ResponseText, "\n"))
	}

	if r.HasChangeSet {
		b.WriteString("\n\n## File Changes\n\n")
		if r.CaptureFailed {
			b.WriteString("File changes could not be captured; see warnings.")
		} else if r.ChangeSet == "" {
			b.WriteString("No file changes were made.")
		} else {
			b.WriteString("```diff\n")
			b.WriteString(strings.TrimRight(r.ChangeSet, "\n"))
			b.WriteString("\n```")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n\n## Warnings\n\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}

	if r.PromptSize >= ContextSizeThreshold {
		b.WriteString(fmt.Sprintf("\n\n## Context Size Notice\n\nThe prompt was approximately %d KB. Prompts this large usually embed pasted file contents; consider referencing file paths instead, since the content consumes context budget in both directions.", r.PromptSize/1024))
	}

	return b.String()
}

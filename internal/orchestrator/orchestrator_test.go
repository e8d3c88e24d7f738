package orchestrator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/response"
)

func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "-b", "main")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644))
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial commit")
	return dir
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func gitOut(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).Output()
	require.NoError(t, err, "git %v", args)
	return string(out)
}

// fakeAgent writes an executable script standing in for the external agent.
// It runs with the isolated workspace as its working directory and the
// wrapped prompt as its final argument.
func fakeAgent(t *testing.T, body string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-agent.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return []string{path}
}

// assertRepoUntouched verifies the real working tree was not mutated and no
// workspace or auxiliary branch leaked.
func assertRepoUntouched(t *testing.T, repo string) {
	t.Helper()
	assert.Empty(t, strings.TrimSpace(gitOut(t, repo, "status", "--porcelain")), "real working tree must stay clean")
	branches := strings.Fields(gitOut(t, repo, "branch", "--format", "%(refname:short)"))
	assert.Equal(t, []string{"main"}, branches, "auxiliary branches must not leak")

	worktrees, err := os.ReadDir(filepath.Join(repo, ".handoff", "worktrees"))
	if err == nil {
		assert.Empty(t, worktrees, "workspace directories must not leak")
	}
}

func TestInvokeNotARepository(t *testing.T) {
	orch := New(Config{AgentCommand: fakeAgent(t, "exit 0")})
	dir := t.TempDir()

	_, err := orch.Invoke(context.Background(), Request{
		Prompt:           "anything",
		WorkingDirectory: dir,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gitrepo.ErrNotARepository))
	assert.Contains(t, err.Error(), dir)
}

func TestInvokeNoResponseNoChanges(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, "exit 0")})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "do nothing",
		WorkingDirectory: repo,
	})
	require.NoError(t, err)

	assert.True(t, result.ResponseMissing)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.HasChangeSet)
	assert.Empty(t, result.ChangeSet)

	rendered := result.Render()
	assert.Contains(t, rendered, "did not write a response file")
	assert.Contains(t, rendered, "No file changes were made.")
	assertRepoUntouched(t, repo)
}

func TestInvokeResponseAndUncommittedFile(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, `
echo "created foo.txt as requested" > .handoff-response.md
echo "bar" > foo.txt
`)})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "create foo.txt containing bar",
		WorkingDirectory: repo,
	})
	require.NoError(t, err)

	assert.False(t, result.ResponseMissing)
	assert.Contains(t, result.ResponseText, "created foo.txt as requested")
	assert.Contains(t, result.ChangeSet, "foo.txt")
	assert.Contains(t, result.ChangeSet, "+bar")
	// The response artifact is consumed before capture and never diffed
	assert.NotContains(t, result.ChangeSet, ".handoff-response.md")

	rendered := result.Render()
	assert.Contains(t, rendered, "## Agent Response")
	assert.Contains(t, rendered, "```diff")
	assertRepoUntouched(t, repo)
}

// Regression: the diff baseline is the revision recorded before the run. An
// agent that commits its work advances HEAD inside the workspace; diffing
// against post-run HEAD would come back empty.
func TestInvokeCommittedChangesStillCaptured(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, `
echo "committed foo.txt" > .handoff-response.md
echo "bar" > foo.txt
git add foo.txt
git commit -q -m "agent work"
`)})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "create and commit foo.txt",
		WorkingDirectory: repo,
	})
	require.NoError(t, err)

	assert.Contains(t, result.ChangeSet, "foo.txt")
	assert.Contains(t, result.ChangeSet, "+bar")
	assertRepoUntouched(t, repo)
}

func TestInvokeQueryModeDiscardsChanges(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, `
echo "analysis text" > .handoff-response.md
echo "sneaky" > ignored.txt
`)})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "explain the code",
		WorkingDirectory: repo,
		Mode:             response.ModeQuery,
	})
	require.NoError(t, err)

	assert.False(t, result.HasChangeSet, "query mode must not capture changes")
	assert.Empty(t, result.ChangeSet)
	assert.NotContains(t, result.Render(), "## File Changes")
	assert.Contains(t, result.Render(), "analysis text")
	assertRepoUntouched(t, repo)
}

func TestInvokeNonZeroExitStillCollects(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, `
echo "partial answer" > .handoff-response.md
echo "model quota exceeded" >&2
exit 7
`)})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "do something",
		WorkingDirectory: repo,
	})
	require.NoError(t, err, "non-zero agent exit must not fail the invocation")

	assert.Equal(t, 7, result.ExitCode)
	assert.Contains(t, result.Diagnostics, "model quota exceeded")
	assert.Contains(t, result.ResponseText, "partial answer")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "code 7")

	rendered := result.Render()
	assert.Contains(t, rendered, "## Warnings")
	assert.Contains(t, rendered, "model quota exceeded")
	assertRepoUntouched(t, repo)
}

func TestInvokeLaunchFailure(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: []string{"handoff-test-no-such-binary"}})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "do something",
		WorkingDirectory: repo,
	})
	require.NoError(t, err, "launch failure must degrade into a warning")

	assert.Equal(t, -1, result.ExitCode)
	assert.True(t, result.ResponseMissing)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "not installed")
	assertRepoUntouched(t, repo)
}

func TestInvokeContextSizeNotice(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, "exit 0")})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           strings.Repeat("a", 12*1024),
		WorkingDirectory: repo,
	})
	require.NoError(t, err)

	rendered := result.Render()
	assert.Contains(t, rendered, "## Context Size Notice")
	assert.Contains(t, rendered, "12 KB")
	assertRepoUntouched(t, repo)
}

func TestInvokeAgentSeesWrappedPrompt(t *testing.T) {
	repo := initTestRepo(t)
	orch := New(Config{AgentCommand: fakeAgent(t, `printf '%s' "$1" > .handoff-response.md`)})

	result, err := orch.Invoke(context.Background(), Request{
		Prompt:           "the literal user task",
		WorkingDirectory: repo,
	})
	require.NoError(t, err)

	assert.Contains(t, result.ResponseText, "the literal user task")
	assert.Contains(t, result.ResponseText, response.Filename)
	assertRepoUntouched(t, repo)
}

func TestRenderWarningsOnlyOnFailure(t *testing.T) {
	r := &Result{ResponseText: "ok", HasChangeSet: true}
	assert.NotContains(t, r.Render(), "## Warnings")
	assert.NotContains(t, r.Render(), "## Context Size Notice")
}

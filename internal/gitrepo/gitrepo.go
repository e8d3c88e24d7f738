// Package gitrepo provides repository detection and typed access to the git
// CLI. Detection uses go-git; everything that must match real git behavior
// byte-for-byte (worktrees, diffs) goes through the exec Runner, with every
// command targeting an explicit directory via the -C flag.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// ErrNotARepository indicates the target path is not inside a git repository.
var ErrNotARepository = errors.New("not inside a git repository")

// IsRepository reports whether path (or an ancestor) is inside a git
// repository. It never returns an error; any failure to detect is false.
func IsRepository(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return err == nil
}

// Runner executes git commands. The zero value uses "git" from PATH.
type Runner struct {
	gitBin string
}

// NewRunner constructs a Runner. gitBin defaults to "git" when empty.
func NewRunner(gitBin string) *Runner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	return &Runner{gitBin: gitBin}
}

// Run executes a git command targeting dir and returns stdout. Stderr is
// captured separately and folded into the error on failure.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, r.gitBin, fullArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

// Root resolves the top-level directory of the repository containing path.
// Returns ErrNotARepository when path is not inside one.
func (r *Runner) Root(ctx context.Context, path string) (string, error) {
	out, err := r.Run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotARepository, path)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("%w: %s", ErrNotARepository, path)
	}
	return root, nil
}

// HeadRevision returns the commit SHA of HEAD in dir.
func (r *Runner) HeadRevision(ctx context.Context, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

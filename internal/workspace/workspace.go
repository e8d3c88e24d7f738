// Package workspace creates and destroys the isolated git worktrees an
// invocation runs in. Each workspace lives under a hidden directory at the
// repository root and is paired with an auxiliary branch whose name is
// derived from the workspace path, so cleanup never needs persisted state.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/logger"
)

// BranchPrefix namespaces every auxiliary branch so stale ones are
// identifiable and bulk-cleanable (git branch --list 'handoff/*').
const BranchPrefix = "handoff/"

const worktreesSubdir = "worktrees"

// ErrCreateFailed indicates the worktree checkout could not be created.
var ErrCreateFailed = errors.New("workspace creation failed")

// Manager provisions isolated worktrees under <repoRoot>/<dirName>/worktrees.
type Manager struct {
	runner  *gitrepo.Runner
	dirName string
}

// NewManager constructs a Manager. dirName defaults to ".handoff" when empty.
func NewManager(runner *gitrepo.Runner, dirName string) *Manager {
	if strings.TrimSpace(dirName) == "" {
		dirName = ".handoff"
	}
	return &Manager{runner: runner, dirName: dirName}
}

// Create materializes a fully checked-out worktree of the repository at its
// current HEAD on a freshly created auxiliary branch. The returned path is
// unique across concurrent invocations: UTC timestamp plus a random suffix.
func (m *Manager) Create(ctx context.Context, repoRoot string) (string, error) {
	parent := filepath.Join(repoRoot, m.dirName, worktreesSubdir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	suffix := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(parent, suffix)
	branch := m.BranchFor(repoRoot, path)

	logger.Debug("Creating workspace %s on branch %s", path, branch)
	if _, err := m.runner.Run(ctx, repoRoot, "worktree", "add", "-b", branch, path, "HEAD"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	return path, nil
}

// BranchFor reconstructs the auxiliary branch name for a workspace path.
func (m *Manager) BranchFor(repoRoot, workspacePath string) string {
	return BranchPrefix + slug.Make(filepath.Base(repoRoot)) + "-" + filepath.Base(workspacePath)
}

// Destroy removes the workspace and its auxiliary branch. It is idempotent
// and best-effort: the agent is untrusted and may have left the worktree in a
// state `git worktree remove` cannot handle (deleted .git metadata, nested
// worktrees), so removal falls back to direct deletion plus a prune, and
// branch deletion is attempted independently. Destroy never returns an error.
func (m *Manager) Destroy(ctx context.Context, repoRoot, workspacePath string) {
	if strings.TrimSpace(workspacePath) == "" {
		return
	}
	if !m.withinManagedDir(repoRoot, workspacePath) {
		logger.Warn("Refusing to destroy workspace outside managed dir: %s", workspacePath)
		return
	}

	if _, err := m.runner.Run(ctx, repoRoot, "worktree", "remove", "--force", workspacePath); err != nil {
		logger.Debug("worktree remove failed (%v), falling back to direct deletion", err)
		if err := os.RemoveAll(workspacePath); err != nil {
			logger.Warn("Failed to delete workspace directory %s: %v", workspacePath, err)
		}
		if _, err := m.runner.Run(ctx, repoRoot, "worktree", "prune"); err != nil {
			logger.Warn("worktree prune failed: %v", err)
		}
	}

	branch := m.BranchFor(repoRoot, workspacePath)
	if _, err := m.runner.Run(ctx, repoRoot, "branch", "-D", branch); err != nil {
		logger.Debug("branch -D %s failed: %v", branch, err)
	}
}

// withinManagedDir guards against deleting paths outside the reserved
// workspace directory.
func (m *Manager) withinManagedDir(repoRoot, path string) bool {
	managed, err := filepath.Abs(filepath.Join(repoRoot, m.dirName, worktreesSubdir))
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(managed, abs)
	if err != nil {
		return false
	}
	if rel == "." || rel == "" {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

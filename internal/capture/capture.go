// Package capture computes the unified diff of everything an invocation did
// to its workspace: uncommitted edits, new untracked files, and commits the
// agent made during its run.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/logger"
)

// ErrCaptureFailed indicates the diff computation itself errored. Callers
// must not conflate this with an empty diff, which means "no changes".
var ErrCaptureFailed = errors.New("diff capture failed")

// Changes stages all pending changes (so new untracked files are included)
// and diffs the workspace against startingRevision. The baseline is the
// revision captured at workspace creation, never HEAD read after the run:
// if the agent committed, current HEAD already contains its work and
// diffing against it would yield an empty, wrong result.
func Changes(ctx context.Context, runner *gitrepo.Runner, workspacePath, startingRevision string) (string, error) {
	if _, err := runner.Run(ctx, workspacePath, "add", "-A"); err != nil {
		return "", fmt.Errorf("%w: staging changes: %v", ErrCaptureFailed, err)
	}

	diff, err := runner.Run(ctx, workspacePath, "diff", startingRevision)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	logger.Debug("Captured diff of %d bytes against %s", len(diff), startingRevision)
	return diff, nil
}

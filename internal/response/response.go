// Package response implements the file side channel the agent is instructed
// to write its final answer to. The instructions are free text, not an API:
// compliance is probabilistic, and a missing file is a normal outcome.
package response

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mark3labs/handoff/internal/logger"
)

// Filename is the fixed response path at the workspace root. It is consumed
// (read and deleted) before diff capture so it never appears in the diff.
const Filename = ".handoff-response.md"

// Mode selects how the invocation treats file changes.
type Mode string

const (
	// ModeDefault lets the agent change files; changes are captured as a diff.
	ModeDefault Mode = "default"
	// ModeQuery is read-only analysis; any changes the agent makes anyway are
	// discarded with the workspace.
	ModeQuery Mode = "query"
)

// WrapPrompt produces the exact text sent to the agent: mode-specific
// instructions followed by the user prompt verbatim.
func WrapPrompt(userPrompt string, mode Mode) string {
	switch mode {
	case ModeQuery:
		return fmt.Sprintf(`You are being consulted for analysis only. Do NOT create, modify, or delete any files; any file changes you make will be discarded. Do NOT push to any git remote.

When you are finished, write your complete analysis to a file named %s in the current working directory. This file is the only channel your answer is read from.

Task:
%s`, Filename, userPrompt)
	default:
		return fmt.Sprintf(`Complete the following task in the current working directory. You may create, modify, delete, and commit files. Do NOT push to any git remote.

Before you finish, write your final answer to a file named %s in the current working directory, even if you made no file changes. This file is the only channel your answer is read from.

Task:
%s`, Filename, userPrompt)
	}
}

// ReadAndConsume reads the response artifact from the workspace if present,
// then deletes it. The second return is false when the agent never wrote the
// file; that is an expected outcome, not an error.
func ReadAndConsume(workspacePath string) (string, bool) {
	path := filepath.Join(workspacePath, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to read response file %s: %v", path, err)
		}
		return "", false
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("Failed to delete response file %s: %v", path, err)
	}
	return string(data), true
}

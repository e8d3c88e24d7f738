package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/handoff/internal/gitrepo"
	"github.com/mark3labs/handoff/internal/logger"
	"github.com/mark3labs/handoff/internal/orchestrator"
	"github.com/mark3labs/handoff/internal/response"
	"github.com/mark3labs/handoff/internal/workspace"
)

// registerTools registers the delegate tool with the MCP server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("delegate",
			mcp.WithDescription("Delegate a task to a different AI model running in an isolated copy of the repository. Returns the model's response and a unified diff of every change it made, for the caller to apply."),
			mcp.WithString("prompt", mcp.Required(),
				mcp.Description("The task for the delegated model"),
			),
			mcp.WithString("model", mcp.Required(),
				mcp.Description("Model identifier, forwarded uninterpreted to the external agent"),
			),
			mcp.WithString("working_directory", mcp.Required(),
				mcp.Description("Absolute path inside the git repository to work against"),
			),
			mcp.WithString("mode",
				mcp.Description("'default' lets the model change files and returns a diff; 'query' is read-only analysis and all changes are discarded"),
				mcp.Enum("default", "query"),
			),
		),
		s.handleDelegate,
	)
}

// handleDelegate handles the delegate tool call. This blocks for the full
// duration of the external agent's run.
func (s *Server) handleDelegate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	prompt, ok := args["prompt"].(string)
	if !ok || prompt == "" {
		return mcp.NewToolResultError("missing or empty 'prompt' parameter"), nil
	}

	model, ok := args["model"].(string)
	if !ok || model == "" {
		return mcp.NewToolResultError("missing or empty 'model' parameter"), nil
	}

	workingDir, ok := args["working_directory"].(string)
	if !ok || workingDir == "" {
		return mcp.NewToolResultError("missing or empty 'working_directory' parameter"), nil
	}
	if !filepath.IsAbs(workingDir) {
		return mcp.NewToolResultError(fmt.Sprintf("'working_directory' must be an absolute path, got %q", workingDir)), nil
	}

	mode := response.ModeDefault
	if modeVal, ok := args["mode"].(string); ok && modeVal != "" {
		switch response.Mode(modeVal) {
		case response.ModeDefault, response.ModeQuery:
			mode = response.Mode(modeVal)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid 'mode' %q: must be 'default' or 'query'", modeVal)), nil
		}
	}

	result, err := s.orch.Invoke(ctx, orchestrator.Request{
		Prompt:           prompt,
		Model:            model,
		WorkingDirectory: workingDir,
		Mode:             mode,
	})
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotARepository) {
			return mcp.NewToolResultError(fmt.Sprintf("%s is not inside a git repository", workingDir)), nil
		}
		if errors.Is(err, workspace.ErrCreateFailed) {
			return mcp.NewToolResultError(fmt.Sprintf("could not create an isolated workspace: %v", err)), nil
		}
		logger.Error("delegate invocation failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result.Render()), nil
}

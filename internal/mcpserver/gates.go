package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// GatesTool handles the tw_run_gates MCP tool.
type GatesTool struct {
	gates ralph.GateRunner
}

// NewGatesTool creates a GatesTool.
func NewGatesTool(g ralph.GateRunner) *GatesTool {
	return &GatesTool{gates: g}
}

// Definition returns the MCP tool definition for registration.
func (t *GatesTool) Definition() mcp.Tool {
	return mcp.NewTool("tw_run_gates",
		mcp.WithDescription(
			"Run the project's quality gates (typecheck, lint, tests, build, security) and "+
				"return each gate's outcome plus the aggregate pass/fail. Results are cached "+
				"per commit unless skip_cache is set.",
		),
		mcp.WithBoolean("skip_cache",
			mcp.Description("Ignore a cached result for the current commit (default: false)"),
		),
		mcp.WithBoolean("include_build",
			mcp.Description("Run the build gate even when it is disabled in quality config (default: false)"),
		),
	)
}

// Handle processes the tw_run_gates tool call.
func (t *GatesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.gates.Run(ctx, gate.Options{
		SkipCache:    boolArg(req, "skip_cache", false),
		IncludeBuild: boolArg(req, "include_build", false),
	})
	if err != nil {
		return mcp.NewToolResultError("quality gates could not run: " + err.Error()), nil
	}
	return jsonResult(res)
}

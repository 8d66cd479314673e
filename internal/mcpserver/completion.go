package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// CompletionTool handles the tw_evaluate_completion MCP tool.
type CompletionTool struct {
	proj  *project.Context
	gates ralph.GateRunner
}

// NewCompletionTool creates a CompletionTool.
func NewCompletionTool(proj *project.Context, g ralph.GateRunner) *CompletionTool {
	return &CompletionTool{proj: proj, gates: g}
}

// Definition returns the MCP tool definition for registration.
func (t *CompletionTool) Definition() mcp.Tool {
	return mcp.NewTool("tw_evaluate_completion",
		mcp.WithDescription(
			"Ask whether a unit of work may complete. Runs the quality gates and returns "+
				"'allow', 'block' (with a correction message and retry count) or 'escalate' "+
				"(retries exhausted, a human must intervene).",
		),
		mcp.WithString("work_unit_id",
			mcp.Description("Identifier of the work unit; a new id starts a fresh retry count"),
		),
		mcp.WithString("agent_type",
			mcp.Description("Agent role, e.g. tw-executor. Coordination roles (planner, verifier, ...) are never gated"),
		),
		mcp.WithString("agent_name",
			mcp.Description("Agent instance name"),
		),
	)
}

// Handle processes the tw_evaluate_completion tool call.
func (t *CompletionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := t.proj.Loop(t.gates).Evaluate(ctx, ralph.WorkUnit{
		ID:        req.GetString("work_unit_id", ""),
		AgentType: req.GetString("agent_type", ""),
		AgentName: req.GetString("agent_name", ""),
	})
	return jsonResult(d)
}

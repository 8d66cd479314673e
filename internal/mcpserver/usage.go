package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/project"
)

// UsageTool handles the tw_record_usage MCP tool.
type UsageTool struct {
	proj *project.Context
}

// NewUsageTool creates a UsageTool.
func NewUsageTool(proj *project.Context) *UsageTool {
	return &UsageTool{proj: proj}
}

// Definition returns the MCP tool definition for registration.
func (t *UsageTool) Definition() mcp.Tool {
	return mcp.NewTool("tw_record_usage",
		mcp.WithDescription(
			"Record token usage for a task against the session budget and return the "+
				"updated budget dashboard and threshold signal.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task identifier the usage belongs to"),
		),
		mcp.WithNumber("actual",
			mcp.Required(),
			mcp.Description("Tokens actually consumed"),
		),
		mcp.WithNumber("estimated",
			mcp.Description("Tokens estimated beforehand (defaults to actual)"),
		),
	)
}

type usageResult struct {
	Record    budget.Record `json:"record"`
	Dashboard string        `json:"dashboard"`
	Signal    budget.Signal `json:"signal"`
}

// Handle processes the tw_record_usage tool call.
func (t *UsageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("task_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	if !hasArg(req, "actual") {
		return mcp.NewToolResultError("'actual' is required"), nil
	}
	if err := t.proj.Require(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actual := intArg(req, "actual", 0)
	estimated := intArg(req, "estimated", actual)

	tracker := t.proj.Tracker()
	rec, err := tracker.RecordUsage(id, estimated, actual)
	if err != nil {
		return mcp.NewToolResultError("usage not recorded: " + err.Error()), nil
	}
	l := tracker.Load()
	return jsonResult(usageResult{Record: rec, Dashboard: l.DashboardLine(), Signal: l.Thresholds().Signal()})
}

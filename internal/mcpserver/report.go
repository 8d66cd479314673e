package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadwork-cc/threadwork/internal/project"
)

// ReportTool handles the tw_budget_report MCP tool.
type ReportTool struct {
	proj *project.Context
}

// NewReportTool creates a ReportTool.
func NewReportTool(proj *project.Context) *ReportTool {
	return &ReportTool{proj: proj}
}

// Definition returns the MCP tool definition for registration.
func (t *ReportTool) Definition() mcp.Tool {
	return mcp.NewTool("tw_budget_report",
		mcp.WithDescription(
			"Report session token usage: budget, used, remaining, percent consumed, "+
				"per-task estimate variance and phase totals.",
		),
		mcp.WithString("format",
			mcp.Description("'report' (full JSON, default) or 'dashboard' (one-line summary)"),
			mcp.Enum("report", "dashboard"),
		),
	)
}

// Handle processes the tw_budget_report tool call.
func (t *ReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l := t.proj.Tracker().Load()
	if req.GetString("format", "report") == "dashboard" {
		return mcp.NewToolResultText(l.DashboardLine()), nil
	}
	return jsonResult(l.Report())
}

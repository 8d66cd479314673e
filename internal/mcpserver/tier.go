package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

// TierTool handles the tw_get_tier MCP tool.
type TierTool struct {
	proj *project.Context
}

// NewTierTool creates a TierTool.
func NewTierTool(proj *project.Context) *TierTool {
	return &TierTool{proj: proj}
}

// Definition returns the MCP tool definition for registration.
func (t *TierTool) Definition() mcp.Tool {
	return mcp.NewTool("tw_get_tier",
		mcp.WithDescription(
			"Return the project's skill tier (beginner, advanced or ninja) and the "+
				"output-style instructions agents should follow for it.",
		),
	)
}

type tierResult struct {
	Tier         tier.Tier `json:"tier"`
	Instructions string    `json:"instructions"`
}

// Handle processes the tw_get_tier tool call.
func (t *TierTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current := t.proj.Tier()
	return jsonResult(tierResult{Tier: current, Instructions: tier.Instructions(current)})
}

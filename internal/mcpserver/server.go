// Package mcpserver exposes threadwork's gate runner, retry loop and usage
// ledger to agents as MCP tools over stdio.
//
// This is a composition root: it builds the tools from a project context
// and registers them. Tool behavior lives in the tool files.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// Version is reported to MCP clients; the CLI overrides it at startup.
var Version = "dev"

// Option configures the server.
type Option func(*deps)

type deps struct {
	gates ralph.GateRunner
}

// WithGates overrides the gate runner shared by the gate and completion tools.
func WithGates(g ralph.GateRunner) Option {
	return func(d *deps) { d.gates = g }
}

// New creates the MCP server with every threadwork tool registered.
func New(proj *project.Context, opts ...Option) *server.MCPServer {
	d := &deps{}
	for _, opt := range opts {
		opt(d)
	}
	if d.gates == nil {
		d.gates = proj.Gates(nil)
	}

	s := server.NewMCPServer(
		"threadwork",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	gates := NewGatesTool(d.gates)
	s.AddTool(gates.Definition(), gates.Handle)

	completion := NewCompletionTool(proj, d.gates)
	s.AddTool(completion.Definition(), completion.Handle)

	usage := NewUsageTool(proj)
	s.AddTool(usage.Definition(), usage.Handle)

	report := NewReportTool(proj)
	s.AddTool(report.Definition(), report.Handle)

	tierTool := NewTierTool(proj)
	s.AddTool(tierTool.Definition(), tierTool.Handle)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(proj *project.Context, opts ...Option) error {
	return server.ServeStdio(New(proj, opts...))
}

const serverInstructions = `threadwork enforces quality gates and tracks token usage for this project.

Call tw_evaluate_completion before declaring a unit of work done. If it returns
"block", fix the listed errors and call it again. "escalate" means a human must
take over. Use tw_record_usage after expensive steps and tw_budget_report to
check the remaining session budget.`

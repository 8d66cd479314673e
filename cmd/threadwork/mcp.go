package main

import (
	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve threadwork tools over MCP (stdio)",
	Long: `Run an MCP server on stdin/stdout exposing:

  tw_run_gates            Run quality gates
  tw_evaluate_completion  Decide whether a unit of work may finish
  tw_record_usage         Record token usage for a task
  tw_budget_report        Session budget report or dashboard line
  tw_get_tier             Current output tier and its instructions

Register it with: claude mcp add threadwork -- threadwork mcp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := openProject()
		if err != nil {
			return err
		}
		defer proj.Close() //nolint:errcheck // log close best-effort

		proj.Log("mcp").Info("mcp server starting", "root", proj.Root, "version", mcpserver.Version)
		return mcpserver.Serve(proj)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

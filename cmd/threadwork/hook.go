package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/config"
	"github.com/threadwork-cc/threadwork/internal/hooks"
	"github.com/threadwork-cc/threadwork/internal/project"
)

var hookMinimal bool

var hookCmd = &cobra.Command{
	Use:   "hook <event>",
	Short: "Handle a Claude Code hook event",
	Long: `Handle one hook event. The hook payload is read as JSON from stdin and
the response is written as JSON to stdout.

Events:
  session-start   Reset the session ledger and inject project context
  pre-tool-use    Inject tier instructions and budget into Task/TeamCreate calls
  post-tool-use   Record token usage and write a recovery checkpoint
  subagent-stop   Run quality gates and block incomplete work

A hook never fails the agent: it always exits 0 and problems are written
to .threadwork/state/hook-log.json.`,
	Args: cobra.ExactArgs(1),
	Run:  runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.Flags().BoolVar(&hookMinimal, "minimal", false, "session-start: emit only project and task")
}

func runHook(cmd *cobra.Command, args []string) {
	stderr := cmd.ErrOrStderr()

	event, err := hooks.ParseEvent(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "threadwork: %v\n", err)
		event = hooks.Event(args[0])
	}

	proj, err := openProject()
	if err != nil {
		fmt.Fprintf(stderr, "threadwork: %v; using defaults\n", err)
		cwd, _ := os.Getwd() //nolint:errcheck // empty root resolves to the process directory
		proj = project.New(cwd, config.Default())
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	runner := hooks.NewRunner(proj,
		hooks.WithStderr(stderr),
		hooks.WithMinimal(hookMinimal),
	)
	runner.Run(cmd.Context(), event, cmd.InOrStdin(), cmd.OutOrStdout())
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/hooks"
)

var hooksBinary string

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Claude Code hook registration",
}

var hooksShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the hooks block for .claude/settings.json",
	Long: `Print the "hooks" block that wires every threadwork hook event to this
binary. Merge it into .claude/settings.json under the "hooks" key.

Examples:
  threadwork hooks show
  threadwork hooks show --binary threadwork`,
	Args: cobra.NoArgs,
	RunE: runHooksShow,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.AddCommand(hooksShowCmd)
	hooksShowCmd.Flags().StringVar(&hooksBinary, "binary", "", "Command used in hook entries (default: this executable)")
}

func runHooksShow(cmd *cobra.Command, args []string) error {
	binary := hooksBinary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		binary = exe
	}

	data, err := json.MarshalIndent(map[string]any{"hooks": hooks.Registration(binary)}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/config"
	"github.com/threadwork-cc/threadwork/internal/formatter"
)

var (
	configShow bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View threadwork configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (THREADWORK_*)
  3. Project config (.threadwork/config.yaml)
  4. Home config (~/.threadwork/config.yaml)
  5. Defaults

Environment variables:
  THREADWORK_CONFIG                - Explicit config file path (overrides the project config location)
  THREADWORK_OUTPUT                - Default output format (table, json, yaml)
  THREADWORK_STATE_DIR             - State directory (default: .threadwork/state)
  THREADWORK_VERBOSE               - Enable verbose output (true/1)
  THREADWORK_SESSION_BUDGET        - Token budget for a new session (default: 800000)
  THREADWORK_MAX_RETRIES           - Gate failures before escalating to a human (default: 5)
  THREADWORK_GATES_PARALLEL        - Run gates concurrently (true/1)
  THREADWORK_GATES_TIMEOUT         - Per-command timeout (default: 5m)
  THREADWORK_GATES_MAX_DIAGNOSTICS - Diagnostics kept per failing gate (default: 5)

Examples:
  threadwork config --show           # Show resolved configuration
  threadwork config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

var configEnvVars = []string{
	"THREADWORK_CONFIG",
	"THREADWORK_OUTPUT",
	"THREADWORK_STATE_DIR",
	"THREADWORK_VERBOSE",
	"THREADWORK_SESSION_BUDGET",
	"THREADWORK_MAX_RETRIES",
	"THREADWORK_GATES_PARALLEL",
	"THREADWORK_GATES_TIMEOUT",
	"THREADWORK_GATES_MAX_DIAGNOSTICS",
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		return cmd.Help()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	resolved := config.Resolve(cwd, flagOverrides())

	// The output format itself may be broken in config; fall back to table
	// so the command can still show where the bad value came from.
	f, err := formatter.ParseFormat(fmt.Sprint(resolved.Output.Value))
	if err != nil {
		f = formatter.FormatTable
	}
	return formatter.Write(cmd.OutOrStdout(), f, resolved, func(w io.Writer) error {
		printResolvedConfig(w, cwd, resolved)
		return nil
	})
}

func printResolvedConfig(w io.Writer, cwd string, resolved *config.ResolvedConfig) {
	fmt.Fprintln(w, formatter.Heading("Threadwork Configuration"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config files:")
	home, _ := os.UserHomeDir() //nolint:errcheck // empty home just reports not found
	printConfigFile(w, "Home:   ", filepath.Join(home, ".threadwork", "config.yaml"))
	projectConfig := filepath.Join(cwd, ".threadwork", "config.yaml")
	if override := os.Getenv("THREADWORK_CONFIG"); override != "" {
		projectConfig = override
	}
	printConfigFile(w, "Project:", projectConfig)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved values:")
	rows := []struct {
		key string
		val any
		src config.Source
	}{
		{"output", resolved.Output.Value, resolved.Output.Source},
		{"verbose", resolved.Verbose.Value, resolved.Verbose.Source},
		{"state_dir", resolved.StateDir.Value, resolved.StateDir.Source},
		{"budget.session_budget", resolved.SessionBudget.Value, resolved.SessionBudget.Source},
		{"ralph.max_retries", resolved.MaxRetries.Value, resolved.MaxRetries.Source},
		{"gates.parallel", resolved.GatesParallel.Value, resolved.GatesParallel.Source},
		{"gates.timeout", resolved.GatesTimeout.Value, resolved.GatesTimeout.Source},
		{"gates.max_diagnostics", resolved.GatesMaxDiagnostic.Value, resolved.GatesMaxDiagnostic.Source},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-22s %v  %s\n", r.key+":", r.val, formatter.Muted("(from "+string(r.src)+")"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (if set):")
	anySet := false
	for _, env := range configEnvVars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Fprintln(w, "  (none set)")
	}
}

func printConfigFile(w io.Writer, label, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  ✓ %s %s\n", label, path)
		return
	}
	fmt.Fprintf(w, "  ✗ %s %s (not found)\n", label, path)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/config"
	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/project"
)

var (
	// Global flags
	dryRun  bool
	verbose bool
	output  string
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "threadwork",
	Short: "Quality gates and token budgets for agent sessions",
	Long: `threadwork keeps coding agents honest: it tracks token usage against a
session budget, runs quality gates before a unit of work is accepted and
sends failing work back with a correction prompt until it passes or needs
a human.

Get Started:
  init         Create the project state records
  hooks show   Print the hook block for Claude Code settings

Core Commands:
  status       Show project, tier, budget and last gate result
  gate         Run quality gates
  budget       Inspect and manage the session token budget
  tier         Get or set the output tier
  mcp          Serve threadwork tools over MCP (stdio)

Hook Entry Point:
  hook         Handle one Claude Code hook event (reads JSON on stdin)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without executing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (json, table, yaml; default from config)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .threadwork/config.yaml)")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints to the command's error stream only when verbose mode is enabled.
func VerbosePrintf(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("THREADWORK_CONFIG", path) //nolint:errcheck // best-effort, Load falls back to the default path
}

// flagOverrides returns the flag layer of the configuration chain. Zero
// values mean "not set" and leave lower layers in place.
func flagOverrides() *config.Config {
	return &config.Config{
		Output:  strings.TrimSpace(output),
		Verbose: verbose,
	}
}

// openProject builds the project context for the working directory.
func openProject() (*project.Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	proj, err := project.Open(cwd, flagOverrides())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return proj, nil
}

// outputFormat returns the effective output format for proj.
func outputFormat(proj *project.Context) formatter.Format {
	f, err := formatter.ParseFormat(proj.Config.Output)
	if err != nil {
		return formatter.FormatTable
	}
	return f
}

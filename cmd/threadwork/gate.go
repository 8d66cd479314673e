package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/gate"
)

var (
	gateSkipCache bool
	gateBuild     bool
)

// errGatesFailed makes `gate run` exit non-zero after printing a failing result.
var errGatesFailed = errors.New("quality gates failed")

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Quality gates",
	Long: `Run and inspect the quality gates (typecheck, lint, tests, build, security).

Results are cached per content version (git HEAD commit)
and quality configuration.

Examples:
  threadwork gate run
  threadwork gate run --skip-cache --build
  threadwork gate config -o yaml`,
}

var gateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality gates",
	Long: `Run every enabled gate against the project and print the outcome.

Exits 1 when a blocking gate fails.

Examples:
  threadwork gate run
  threadwork gate run --skip-cache
  threadwork gate run -o json`,
	RunE: runGateRun,
}

var gateConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective quality-gate configuration",
	RunE:  runGateConfig,
}

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateRunCmd, gateConfigCmd)
	gateRunCmd.Flags().BoolVar(&gateSkipCache, "skip-cache", false, "Ignore cached results for this content version")
	gateRunCmd.Flags().BoolVar(&gateBuild, "build", false, "Run the build gate even when disabled")
}

func runGateRun(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	VerbosePrintf(cmd, "Running gates in %s\n", proj.Root)
	result, err := proj.Gates(nil).Run(cmd.Context(), gate.Options{
		SkipCache:    gateSkipCache,
		IncludeBuild: gateBuild,
	})
	if result == nil {
		return fmt.Errorf("run gates: %w", err)
	}

	if werr := formatter.Write(cmd.OutOrStdout(), outputFormat(proj), result, func(w io.Writer) error {
		return printGateResult(w, result)
	}); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("run gates: %w", err)
	}
	if !result.Passed {
		return errGatesFailed
	}
	return nil
}

func printGateResult(w io.Writer, r *gate.RunResult) error {
	table := formatter.NewTable(w, "GATE", "STATUS", "BLOCKING", "DETAIL").SetMaxWidth(3, 80)
	for _, o := range r.Results {
		table.AddRow(string(o.Gate), outcomeStatus(o), yesNo(o.Blocking), outcomeDetail(o))
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	verdict := formatter.Pass("PASSED")
	if !r.Passed {
		verdict = formatter.Fail("FAILED")
	}
	cached := ""
	if r.Cached {
		cached = formatter.Muted(" (cached)")
	}
	fmt.Fprintf(w, "Quality gates %s%s  %s\n", verdict, cached, formatter.Muted(r.ID))

	for _, o := range r.Failures() {
		if len(o.Diagnostics) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", formatter.Heading(string(o.Gate)))
		for _, d := range o.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
	return nil
}

func outcomeStatus(o gate.Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Passed:
		return "pass"
	case o.Blocking:
		return "FAIL"
	default:
		return "warn"
	}
}

func outcomeDetail(o gate.Outcome) string {
	var parts []string
	if o.Reason != "" {
		parts = append(parts, o.Reason)
	} else if o.Command != "" {
		parts = append(parts, o.Command)
	}
	if o.Coverage != nil {
		parts = append(parts, fmt.Sprintf("coverage %.1f%%", *o.Coverage))
	}
	return strings.Join(parts, "; ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runGateConfig(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	cfg, err := gate.LoadConfig(proj.Store)
	if err != nil {
		return fmt.Errorf("load quality config: %w", err)
	}
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), cfg, func(w io.Writer) error {
		table := formatter.NewTable(w, "GATE", "ENABLED", "BLOCKING", "MIN COVERAGE")
		for _, k := range gate.Kinds {
			s := cfg.Setting(k)
			cov := "-"
			if k == gate.Tests && s.MinCoverage > 0 {
				cov = fmt.Sprintf("%.0f%%", s.MinCoverage)
			}
			table.AddRow(string(k), yesNo(s.Enabled), yesNo(s.Blocking), cov)
		}
		return table.Render()
	})
}

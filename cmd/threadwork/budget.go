package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/formatter"
)

var (
	budgetActual    int
	budgetEstimated int
	budgetPhase     int
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Session token budget",
	Long: `Inspect and manage the session token ledger.

A warning is raised once 80% of the session budget is consumed and a
critical signal at 90%.

Examples:
  threadwork budget report
  threadwork budget dashboard
  threadwork budget record T-12 --estimated 20000 --actual 23500
  threadwork budget set 400000
  threadwork budget estimate "refactor the auth middleware" --phase 2`,
}

var budgetReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show session usage and estimate variance per task",
	Args:  cobra.NoArgs,
	RunE:  runBudgetReport,
}

var budgetDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print the one-line budget dashboard",
	Args:  cobra.NoArgs,
	RunE:  runBudgetDashboard,
}

var budgetRecordCmd = &cobra.Command{
	Use:   "record <task-id>",
	Short: "Record token usage for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetRecord,
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <tokens>",
	Short: "Set the session token budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetSet,
}

var budgetResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a new session: clear usage records and mint a session ID",
	Args:  cobra.NoArgs,
	RunE:  runBudgetReset,
}

var budgetEstimateCmd = &cobra.Command{
	Use:   "estimate <description>",
	Short: "Estimate the token cost of a task description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBudgetEstimate,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetReportCmd, budgetDashboardCmd, budgetRecordCmd,
		budgetSetCmd, budgetResetCmd, budgetEstimateCmd)

	budgetRecordCmd.Flags().IntVar(&budgetActual, "actual", 0, "Tokens actually used (required)")
	budgetRecordCmd.Flags().IntVar(&budgetEstimated, "estimated", 0, "Tokens estimated before the task")
	_ = budgetRecordCmd.MarkFlagRequired("actual") //nolint:errcheck // flag is defined above
	budgetEstimateCmd.Flags().IntVar(&budgetPhase, "phase", 2, "Current phase (planning phases 0-1 are cheaper)")
}

func runBudgetReport(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	report := proj.Tracker().Load().Report()
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), report, func(w io.Writer) error {
		return printBudgetReport(w, report)
	})
}

func printBudgetReport(w io.Writer, r budget.Report) error {
	s := r.Session
	signal := string(s.Signal)
	fmt.Fprintln(w, formatter.Heading("Session Budget"))
	fmt.Fprintf(w, "  Used:      %dK / %dK\n", s.Used/1000, s.Budget/1000)
	fmt.Fprintf(w, "  Remaining: %dK\n", s.Remaining/1000)
	fmt.Fprintf(w, "  Consumed:  %s\n", formatter.Gauge(s.Percent, 30, signal))
	switch s.Signal {
	case budget.SignalCritical:
		fmt.Fprintln(w, "  "+formatter.Fail("CRITICAL: over 90% consumed, wrap up the session"))
	case budget.SignalWarning:
		fmt.Fprintln(w, "  "+formatter.Warn("Warning: over 80% consumed"))
	}
	fmt.Fprintln(w)

	if len(r.Tasks) == 0 {
		fmt.Fprintln(w, formatter.Muted("No usage recorded this session."))
		return nil
	}
	table := formatter.NewTable(w, "TASK", "ESTIMATED", "ACTUAL", "VARIANCE", "RATING").SetMaxWidth(0, 40)
	for _, t := range r.Tasks {
		table.AddRow(t.ID, strconv.Itoa(t.Estimated), strconv.Itoa(t.Actual), t.Variance, string(t.Rating))
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nPhase total: estimated %d, actual %d (%s)\n",
		r.PhaseTotal.Estimated, r.PhaseTotal.Actual, r.PhaseTotal.Variance)
	return nil
}

func runBudgetDashboard(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	fmt.Fprintln(cmd.OutOrStdout(), proj.Tracker().Load().DashboardLine())
	return nil
}

func runBudgetRecord(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort
	if err := proj.Require(); err != nil {
		return err
	}
	if budgetActual < 0 || budgetEstimated < 0 {
		return errors.New("token counts must not be negative")
	}

	tracker := proj.Tracker()
	rec, err := tracker.RecordUsage(args[0], budgetEstimated, budgetActual)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	ledger := tracker.Load()
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), rec, func(w io.Writer) error {
		fmt.Fprintf(w, "Recorded %d tokens for %s (%s, %s)\n", rec.Actual, rec.ID, rec.VariancePct, rec.Rating)
		fmt.Fprintln(w, formatter.Severity(string(ledger.Thresholds().Signal()), ledger.DashboardLine()))
		return nil
	})
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", budget.ErrInvalidBudget, args[0])
	}
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort
	if err := proj.Require(); err != nil {
		return err
	}

	if GetDryRun() {
		fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] Would set session budget to %d\n", n)
		return nil
	}
	ledger, err := proj.Tracker().SetBudget(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session budget set to %dK\n", ledger.Budget()/1000)
	return nil
}

func runBudgetReset(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort
	if err := proj.Require(); err != nil {
		return err
	}

	if GetDryRun() {
		fmt.Fprintln(cmd.OutOrStdout(), "[dry-run] Would clear usage records and start a new session")
		return nil
	}
	ledger, err := proj.Tracker().ResetSession()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "New session %s (budget %dK)\n", ledger.SessionID, ledger.Budget()/1000)
	return nil
}

func runBudgetEstimate(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	est := budget.EstimateTaskBudget(strings.Join(args, " "), budgetPhase)
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), est, func(w io.Writer) error {
		fmt.Fprintf(w, "Complexity: %s\n", est.Complexity)
		fmt.Fprintf(w, "Estimate:   %dK-%dK tokens (midpoint %dK)\n", est.Low/1000, est.High/1000, est.Midpoint/1000)
		return nil
	})
}

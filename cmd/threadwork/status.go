package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/project"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show threadwork status",
	Long: `Display the current threadwork state of this project.

Shows:
  - Project, phase, milestone and active task
  - Output tier
  - Session token budget
  - Last quality gate result
  - Pending recovery checkpoint

Exits 1 when the project is not initialized.

Examples:
  threadwork status
  threadwork status -o json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Project    string          `json:"project" yaml:"project"`
	Phase      int             `json:"phase" yaml:"phase"`
	Milestone  int             `json:"milestone" yaml:"milestone"`
	ActiveTask string          `json:"activeTask,omitempty" yaml:"active_task,omitempty"`
	Tier       tier.Tier       `json:"tier" yaml:"tier"`
	Budget     budgetBrief     `json:"budget" yaml:"budget"`
	LastGate   *gateBrief      `json:"lastGate,omitempty" yaml:"last_gate,omitempty"`
	Checkpoint *checkpointInfo `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
}

type budgetBrief struct {
	Used      int           `json:"used" yaml:"used"`
	Budget    int           `json:"budget" yaml:"budget"`
	Remaining int           `json:"remaining" yaml:"remaining"`
	Percent   int           `json:"percent" yaml:"percent"`
	Signal    budget.Signal `json:"signal" yaml:"signal"`
}

type gateBrief struct {
	Passed bool        `json:"passed" yaml:"passed"`
	RanAt  time.Time   `json:"ranAt" yaml:"ran_at"`
	Failed []gate.Kind `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type checkpointInfo struct {
	WrittenAt time.Time `json:"writtenAt" yaml:"written_at"`
	Branch    string    `json:"branch,omitempty" yaml:"branch,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	if !proj.Initialized() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Threadwork is not initialized in this project. Run 'threadwork init' first.")
		return proj.Require()
	}

	status, err := collectStatus(proj)
	if err != nil {
		return err
	}
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), status, func(w io.Writer) error {
		printStatus(w, status)
		return nil
	})
}

func collectStatus(proj *project.Context) (*statusOutput, error) {
	rec, err := proj.Record()
	if err != nil {
		return nil, fmt.Errorf("read project record: %w", err)
	}
	ledger := proj.Tracker().Load()
	status := &statusOutput{
		Project:    rec.ProjectName,
		Phase:      rec.CurrentPhase,
		Milestone:  rec.CurrentMilestone,
		ActiveTask: rec.ActiveTask,
		Tier:       rec.SkillTier.Normalize(),
		Budget: budgetBrief{
			Used:      ledger.Used(),
			Budget:    ledger.Budget(),
			Remaining: ledger.Remaining(),
			Percent:   ledger.Percent(),
			Signal:    ledger.Thresholds().Signal(),
		},
	}
	if last, ok := proj.Gates(nil).Latest(); ok {
		brief := &gateBrief{Passed: last.Passed, RanAt: last.RanAt}
		for _, o := range last.Failures() {
			brief.Failed = append(brief.Failed, o.Gate)
		}
		status.LastGate = brief
	}
	if cp := proj.ReadCheckpoint(); cp.Active() {
		status.Checkpoint = &checkpointInfo{WrittenAt: cp.WrittenAt, Branch: cp.Git.Branch}
	}
	return status, nil
}

func printStatus(w io.Writer, s *statusOutput) {
	name := s.Project
	if name == "" {
		name = "Unknown"
	}
	task := s.ActiveTask
	if task == "" {
		task = "None"
	}
	signal := string(s.Budget.Signal)

	lines := []string{
		formatter.Heading("Threadwork Status"),
		fmt.Sprintf("Project:      %s", name),
		fmt.Sprintf("Phase:        %d", s.Phase),
		fmt.Sprintf("Milestone:    %d", s.Milestone),
		fmt.Sprintf("Active task:  %s", task),
		fmt.Sprintf("Skill tier:   %s", s.Tier),
		fmt.Sprintf("Token budget: %dK / %dK (%s)", s.Budget.Used/1000, s.Budget.Budget/1000,
			formatter.Severity(signal, fmt.Sprintf("%d%%", s.Budget.Percent))),
		"              " + formatter.Gauge(s.Budget.Percent, 30, signal),
		"Last gates:   " + gateSummary(s.LastGate),
	}
	if s.Checkpoint != nil {
		lines = append(lines, formatter.Warn("⚠ Recovery checkpoint found from "+
			s.Checkpoint.WrittenAt.Format("2006-01-02")+" — run /tw:resume to restore"))
	}
	fmt.Fprintln(w, formatter.Box(lines...))
}

func gateSummary(g *gateBrief) string {
	if g == nil {
		return formatter.Muted("never run")
	}
	when := g.RanAt.Local().Format("2006-01-02 15:04")
	if g.Passed {
		return formatter.Pass("passed") + " " + formatter.Muted(when)
	}
	failed := make([]string, len(g.Failed))
	for i, k := range g.Failed {
		failed[i] = string(k)
	}
	return formatter.Fail("failed: "+strings.Join(failed, ", ")) + " " + formatter.Muted(when)
}

package project

import (
	"github.com/threadwork-cc/threadwork/internal/budget"
	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/gitutil"
	"github.com/threadwork-cc/threadwork/internal/procexec"
	"github.com/threadwork-cc/threadwork/internal/ralph"
)

// Tracker returns the usage ledger tracker for this project.
func (c *Context) Tracker() *budget.Tracker {
	return budget.NewTracker(c.Store,
		budget.WithLogger(c.Log("budget")),
		budget.WithClock(c.now),
		budget.WithDefaultBudget(c.Config.Budget.SessionBudget),
	)
}

// Gates returns a gate runner for the project root using x for commands.
// A nil x runs commands through the shell with the configured timeout.
func (c *Context) Gates(x procexec.Runner) *gate.Runner {
	if x == nil {
		x = procexec.NewShell(c.Config.GateTimeout())
	}
	return gate.NewRunner(c.Root, c.Store,
		gate.WithExec(x),
		gate.WithVersion(gitutil.Versioner{Dir: c.Root}),
		gate.WithLogger(c.Log("gate")),
		gate.WithParallel(c.Config.ParallelGates()),
		gate.WithMaxDiagnostics(c.Config.Gates.MaxDiagnostics),
		gate.WithClock(c.now),
	)
}

// Loop returns the retry loop evaluating completions against gates.
func (c *Context) Loop(gates ralph.GateRunner) *ralph.Loop {
	return ralph.New(gates, c.Store,
		ralph.WithMaxRetries(c.Config.Ralph.MaxRetries),
		ralph.WithTier(c.Tier),
		ralph.WithLogger(c.Log("ralph")),
		ralph.WithClock(c.now),
	)
}

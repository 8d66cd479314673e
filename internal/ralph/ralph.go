// Package ralph implements the bounded retry loop that intercepts an agent's
// attempt to finish a unit of work. Failing quality gates block completion
// with a correction prompt until the retry limit is exhausted, at which point
// the failure is escalated to a human and completion is allowed.
package ralph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/threadwork-cc/threadwork/internal/gate"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

// DefaultMaxRetries is the number of blocked attempts before escalation.
const DefaultMaxRetries = 5

// Action is the verdict on a completion attempt.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionBlock    Action = "block"
	ActionEscalate Action = "escalate"
)

// Reasons attached to allow decisions.
const (
	ReasonCoordination = "coordination-only work unit"
	ReasonPassed       = "quality gates passed"
	ReasonFault        = "gate infrastructure fault"
)

// Decision is the outcome of evaluating a completion attempt.
type Decision struct {
	Action      Action   `json:"action" yaml:"action"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message     string   `json:"message,omitempty" yaml:"message,omitempty"`
	RetryCount  int      `json:"retryCount,omitempty" yaml:"retry_count,omitempty"`
	MaxRetries  int      `json:"maxRetries,omitempty" yaml:"max_retries,omitempty"`
	FailedGates []string `json:"failedGates,omitempty" yaml:"failed_gates,omitempty"`
	Escalation  string   `json:"escalation,omitempty" yaml:"escalation,omitempty"`
}

func allow(reason string) Decision {
	return Decision{Action: ActionAllow, Reason: reason}
}

// WorkUnit identifies the agent work being completed.
type WorkUnit struct {
	ID        string `json:"id,omitempty"`
	AgentType string `json:"agentType,omitempty"`
	AgentName string `json:"agentName,omitempty"`
}

// coordinationRoles never produce code artifacts, so their completion is
// not gated. Matching is by substring, which also covers the tw- prefixed
// agent names.
var coordinationRoles = []string{
	"planner", "researcher", "verifier", "dispatch", "spec-writer", "orchestrator",
}

// IsCoordinationOnly reports whether a work unit belongs to a non-coding role.
func (u WorkUnit) IsCoordinationOnly() bool {
	for _, role := range coordinationRoles {
		if strings.Contains(u.AgentType, role) || strings.Contains(u.AgentName, role) {
			return true
		}
	}
	return false
}

// GateRunner runs quality gates.
type GateRunner interface {
	Run(ctx context.Context, opts gate.Options) (*gate.RunResult, error)
}

// Loop is the retry state machine.
type Loop struct {
	gates      GateRunner
	store      *storage.FileStore
	tier       func() tier.Tier
	maxRetries int
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxRetries sets the retry limit; values below 1 keep the default.
func WithMaxRetries(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithTier sets where the presentation tier is read from.
func WithTier(fn func() tier.Tier) Option {
	return func(l *Loop) {
		if fn != nil {
			l.tier = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// New creates a retry loop over gates, persisting its state in store.
func New(gates GateRunner, store *storage.FileStore, opts ...Option) *Loop {
	l := &Loop{
		gates:      gates,
		store:      store,
		tier:       func() tier.Tier { return tier.Default },
		maxRetries: DefaultMaxRetries,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRetries returns the configured retry limit.
func (l *Loop) MaxRetries() int { return l.maxRetries }

// State returns the current retry state.
func (l *Loop) State() State { return l.loadState() }

// Reset clears the retry state.
func (l *Loop) Reset() error {
	return l.saveState(State{LastUpdated: l.now().UTC()})
}

// Evaluate decides whether a unit of work may complete. It never returns an
// error: any fault, including a panic, resolves to allow.
func (l *Loop) Evaluate(ctx context.Context, unit WorkUnit) Decision {
	return Guard(l.logger, "evaluate-completion", allow(ReasonFault), func() Decision {
		return l.evaluate(ctx, unit)
	})
}

func (l *Loop) evaluate(ctx context.Context, unit WorkUnit) Decision {
	if unit.IsCoordinationOnly() {
		l.clearState()
		l.logger.Info("completion allowed", "reason", ReasonCoordination, "agent_type", unit.AgentType, "agent_name", unit.AgentName)
		return allow(ReasonCoordination)
	}

	t := l.tier().Normalize()
	res, err := l.gates.Run(ctx, gate.Options{SkipCache: true})
	if err != nil {
		l.logger.Error("quality gates could not run, allowing completion", "error", err)
		return allow(ReasonFault)
	}

	if res.Passed {
		l.clearState()
		l.logger.Info("quality gates passed", "tier", string(t), "run_id", res.ID)
		return allow(ReasonPassed)
	}

	prev := l.loadState()
	if unit.ID != "" && prev.LastWorkUnitID != "" && prev.LastWorkUnitID != unit.ID {
		prev.Retries = 0
	}
	retries := prev.Retries + 1

	if retries > l.maxRetries {
		failed := gateNames(res.BlockingFailures())
		if len(failed) == 0 {
			failed = gateNames(res.Failures())
		}
		escalation := tier.FormatWarning(tier.Critical,
			fmt.Sprintf("Quality gates failed after %d retries: %s. Manual intervention required.",
				l.maxRetries, strings.Join(failed, ", ")), t)
		l.clearState()
		l.logger.Error("max retries reached, escalating", "max_retries", l.maxRetries, "gates", strings.Join(failed, ","))
		return Decision{
			Action:      ActionEscalate,
			Message:     escalation,
			RetryCount:  l.maxRetries,
			MaxRetries:  l.maxRetries,
			FailedGates: failed,
			Escalation:  escalation,
		}
	}

	state := State{Retries: retries, LastWorkUnitID: unit.ID, LastUpdated: l.now().UTC()}
	if err := l.saveState(state); err != nil {
		// Without a persisted count the loop could block forever.
		l.logger.Error("retry state not saved, allowing completion", "error", err)
		return allow(ReasonFault)
	}

	failures := res.Failures()
	l.logger.Warn("quality gates failed, blocking completion",
		"retry", retries, "max_retries", l.maxRetries, "tier", string(t), "gates", strings.Join(gateNames(failures), ","))
	return Decision{
		Action:      ActionBlock,
		Message:     tier.FormatCorrection(toFailures(failures), t),
		RetryCount:  retries,
		MaxRetries:  l.maxRetries,
		FailedGates: gateNames(failures),
	}
}

func gateNames(outcomes []gate.Outcome) []string {
	names := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		names = append(names, string(o.Gate))
	}
	return names
}

func toFailures(outcomes []gate.Outcome) []tier.Failure {
	out := make([]tier.Failure, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, tier.Failure{Gate: string(o.Gate), Diagnostics: o.Diagnostics})
	}
	return out
}

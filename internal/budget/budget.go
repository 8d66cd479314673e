// Package budget tracks estimated token consumption against a per-session
// allotment and turns it into threshold signals, reports and the one-line
// dashboard injected into agent prompts.
package budget

import (
	"math"
	"time"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

// Thresholds for session budget management, as percentages of the budget.
const (
	// WarningPercent surfaces a warning to the user.
	WarningPercent = 80

	// CriticalPercent asks the user to wrap up the session now.
	CriticalPercent = 90

	// DefaultSessionBudget is the budget assumed when none was configured.
	DefaultSessionBudget = 800_000
)

// Signal is the threshold state of a ledger.
type Signal string

const (
	SignalNone     Signal = "none"
	SignalWarning  Signal = "warning"
	SignalCritical Signal = "critical"
)

// Thresholds holds the two independent threshold flags.
// Critical implies Warning.
type Thresholds struct {
	Warning  bool `json:"warning"`
	Critical bool `json:"critical"`
}

// Signal collapses the flags into the strongest signal.
func (t Thresholds) Signal() Signal {
	switch {
	case t.Critical:
		return SignalCritical
	case t.Warning:
		return SignalWarning
	default:
		return SignalNone
	}
}

// CheckThresholds maps a consumed percentage to threshold flags. It has no
// memory: the same percent always yields the same flags.
func CheckThresholds(percent float64) Thresholds {
	return Thresholds{
		Warning:  percent >= WarningPercent,
		Critical: percent >= CriticalPercent,
	}
}

// Rating grades how close an estimate came to the actual usage.
type Rating string

const (
	RatingExcellent        Rating = "Excellent"
	RatingGood             Rating = "Good"
	RatingNeedsImprovement Rating = "Needs Improvement"
)

// Record is one immutable usage entry for a unit of work.
type Record struct {
	ID          string    `json:"id"`
	Estimated   int       `json:"estimated"`
	Actual      int       `json:"actual"`
	VariancePct string    `json:"variancePct"`
	Rating      Rating    `json:"rating"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// Ledger is the persisted usage record for the current session.
// UsedTotal always equals the sum of Records[i].Actual.
type Ledger struct {
	storage.Meta
	SessionID   string   `json:"sessionId,omitempty"`
	BudgetTotal int      `json:"budgetTotal"`
	UsedTotal   int      `json:"usedTotal"`
	Records     []Record `json:"records"`
}

// NewLedger returns an empty ledger with the given budget.
func NewLedger(budgetTotal int) *Ledger {
	return &Ledger{BudgetTotal: budgetTotal, Records: []Record{}}
}

// Record appends a usage entry and adds actual to the running total.
// Negative values are treated as zero; recording never fails.
func (l *Ledger) Record(id string, estimated, actual int, at time.Time) Record {
	estimated = max(estimated, 0)
	actual = max(actual, 0)
	r := Record{
		ID:          id,
		Estimated:   estimated,
		Actual:      actual,
		VariancePct: VariancePercent(estimated, actual),
		Rating:      VarianceRating(estimated, actual),
		RecordedAt:  at.UTC(),
	}
	l.Records = append(l.Records, r)
	l.UsedTotal += actual
	return r
}

// Reset starts a new session: usage goes to zero and records are cleared.
func (l *Ledger) Reset(sessionID string) {
	l.SessionID = sessionID
	l.UsedTotal = 0
	l.Records = []Record{}
}

// Used returns the units consumed this session.
func (l *Ledger) Used() int { return l.UsedTotal }

// Budget returns the session allotment.
func (l *Ledger) Budget() int { return l.BudgetTotal }

// Remaining returns the unconsumed budget, never negative.
func (l *Ledger) Remaining() int {
	return max(0, l.BudgetTotal-l.UsedTotal)
}

// ratio returns the exact consumed percentage. A zero budget counts as
// fully consumed.
func (l *Ledger) ratio() float64 {
	if l.BudgetTotal <= 0 {
		return 100
	}
	return 100 * float64(l.UsedTotal) / float64(l.BudgetTotal)
}

// Percent returns the consumed percentage rounded to an integer in [0, 100].
// Overuse is clamped for display; UsedTotal itself is not capped.
func (l *Ledger) Percent() int {
	return min(100, int(math.Round(l.ratio())))
}

// Thresholds evaluates the thresholds on the exact, unrounded percentage so
// that usage just below a threshold never reports it.
func (l *Ledger) Thresholds() Thresholds {
	return CheckThresholds(l.ratio())
}

// ShouldCheckBudget reports whether the warning threshold has been reached.
func (l *Ledger) ShouldCheckBudget() bool {
	return l.Thresholds().Warning
}

// IsOverBudget reports whether the critical threshold has been reached.
func (l *Ledger) IsOverBudget() bool {
	return l.Thresholds().Critical
}

package budget

import (
	"fmt"
	"math"
)

// VariancePercent formats (actual-estimated)/estimated as a signed percentage,
// e.g. "+18%" or "-11%". A zero estimate yields "N/A".
func VariancePercent(estimated, actual int) string {
	if estimated == 0 {
		return "N/A"
	}
	pct := int(math.Round(float64(actual-estimated) / float64(estimated) * 100))
	if pct >= 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

// VarianceRating grades an estimate: under 10% off is Excellent, 10-20%
// inclusive is Good, anything else (or a zero estimate) needs improvement.
func VarianceRating(estimated, actual int) Rating {
	if estimated == 0 {
		return RatingNeedsImprovement
	}
	abs := math.Abs(float64(actual-estimated) / float64(estimated) * 100)
	switch {
	case abs < 10:
		return RatingExcellent
	case abs <= 20:
		return RatingGood
	default:
		return RatingNeedsImprovement
	}
}

// SessionSummary is the session part of a Report.
type SessionSummary struct {
	SessionID string `json:"sessionId,omitempty" yaml:"session_id,omitempty"`
	Budget    int    `json:"budget" yaml:"budget"`
	Used      int    `json:"used" yaml:"used"`
	Remaining int    `json:"remaining" yaml:"remaining"`
	Percent   int    `json:"percent" yaml:"percent"`
	Signal    Signal `json:"signal" yaml:"signal"`
}

// TaskSummary is one usage record as shown in a Report.
type TaskSummary struct {
	ID        string `json:"id" yaml:"id"`
	Estimated int    `json:"estimated" yaml:"estimated"`
	Actual    int    `json:"actual" yaml:"actual"`
	Variance  string `json:"variance" yaml:"variance"`
	Rating    Rating `json:"rating" yaml:"rating"`
}

// PhaseTotal sums estimates and actuals across all records.
type PhaseTotal struct {
	Estimated int    `json:"estimated" yaml:"estimated"`
	Actual    int    `json:"actual" yaml:"actual"`
	Variance  string `json:"variance" yaml:"variance"`
}

// Report summarizes budget status and estimation quality.
type Report struct {
	Session    SessionSummary `json:"session" yaml:"session"`
	Tasks      []TaskSummary  `json:"tasks" yaml:"tasks"`
	PhaseTotal PhaseTotal     `json:"phaseTotal" yaml:"phase_total"`
}

// Report builds the budget and variance report for the session.
func (l *Ledger) Report() Report {
	r := Report{
		Session: SessionSummary{
			SessionID: l.SessionID,
			Budget:    l.BudgetTotal,
			Used:      l.UsedTotal,
			Remaining: l.Remaining(),
			Percent:   l.Percent(),
			Signal:    l.Thresholds().Signal(),
		},
		Tasks: make([]TaskSummary, 0, len(l.Records)),
	}
	for _, rec := range l.Records {
		r.Tasks = append(r.Tasks, TaskSummary{
			ID:        rec.ID,
			Estimated: rec.Estimated,
			Actual:    rec.Actual,
			Variance:  rec.VariancePct,
			Rating:    rec.Rating,
		})
		r.PhaseTotal.Estimated += rec.Estimated
		r.PhaseTotal.Actual += rec.Actual
	}
	r.PhaseTotal.Variance = VariancePercent(r.PhaseTotal.Estimated, r.PhaseTotal.Actual)
	return r
}

// Status markers appended to the dashboard line.
const (
	criticalMarker = " | 🚨 CRITICAL: >90% consumed — run /tw:done now"
	warningMarker  = " | ⚠️ Warning: >80% consumed"
)

// DashboardLine formats the single-line budget summary injected into hooks.
func (l *Ledger) DashboardLine() string {
	status := ""
	switch l.Thresholds().Signal() {
	case SignalCritical:
		status = criticalMarker
	case SignalWarning:
		status = warningMarker
	}
	return fmt.Sprintf("[TOKEN: %dK/%dK used | %d%% consumed | %dK remaining%s]",
		thousands(l.UsedTotal), thousands(l.BudgetTotal), l.Percent(), thousands(l.Remaining()), status)
}

func thousands(n int) int {
	return int(math.Round(float64(n) / 1000))
}

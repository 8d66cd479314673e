package budget

import (
	"math"
	"strings"
)

// EstimateTokens estimates tokens from text length using the rough
// 4-characters-per-token approximation, rounded up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Complexity buckets for task estimates.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// TaskEstimate is a heuristic token range for a task.
type TaskEstimate struct {
	Low        int    `json:"low" yaml:"low"`
	High       int    `json:"high" yaml:"high"`
	Midpoint   int    `json:"midpoint" yaml:"midpoint"`
	Complexity string `json:"complexity" yaml:"complexity"`
}

var (
	complexSignals = []string{"architect", "refactor", "migration", "integration", "authentication", "auth", "database", "schema", "multi", "complex", "redesign"}
	simpleSignals  = []string{"add", "update", "fix", "rename", "move", "remove", "delete", "simple", "small"}
)

// planningMultiplier discounts estimates for planning phases (phase <= 1).
const planningMultiplier = 0.7

// EstimateTaskBudget guesses a token range from a task description's wording
// and length. Signals match as substrings of the lowercased description.
func EstimateTaskBudget(description string, phase int) TaskEstimate {
	desc := strings.ToLower(description)
	words := len(strings.Fields(desc))

	complexScore := countSignals(desc, complexSignals)
	simpleScore := countSignals(desc, simpleSignals)

	var e TaskEstimate
	switch {
	case complexScore >= 2 || words > 20:
		e = TaskEstimate{Complexity: ComplexityComplex, Low: 40_000, High: 80_000}
	case simpleScore >= 2 || words < 6:
		e = TaskEstimate{Complexity: ComplexitySimple, Low: 5_000, High: 15_000}
	default:
		e = TaskEstimate{Complexity: ComplexityMedium, Low: 15_000, High: 40_000}
	}

	multiplier := 1.0
	if phase <= 1 {
		multiplier = planningMultiplier
	}
	e.Low = int(math.Round(float64(e.Low) * multiplier))
	e.High = int(math.Round(float64(e.High) * multiplier))
	e.Midpoint = int(math.Round(float64(e.Low+e.High) / 2))
	return e
}

func countSignals(desc string, signals []string) int {
	n := 0
	for _, s := range signals {
		if strings.Contains(desc, s) {
			n++
		}
	}
	return n
}

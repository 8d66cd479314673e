// Package gate runs the configured quality checks (type check, lint, tests,
// build, security scan) against a project and aggregates them into a single
// pass/fail result that is cached per content version.
package gate

import (
	"fmt"
	"time"
)

// Kind identifies one quality gate.
type Kind string

const (
	Typecheck Kind = "typecheck"
	Lint      Kind = "lint"
	Tests     Kind = "tests"
	Build     Kind = "build"
	Security  Kind = "security"
)

// Kinds lists every gate in canonical order. Results are always reported in
// this order regardless of execution order.
var Kinds = []Kind{Typecheck, Lint, Tests, Build, Security}

// ParseKind validates a gate name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown gate %q (valid: typecheck|lint|tests|build|security)", s)
}

// Outcome is the result of one gate. A skipped gate counts as passed.
type Outcome struct {
	Gate        Kind     `json:"gate" yaml:"gate"`
	Passed      bool     `json:"passed" yaml:"passed"`
	Skipped     bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Blocking    bool     `json:"blocking" yaml:"blocking"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Command     string   `json:"command,omitempty" yaml:"command,omitempty"`
	Diagnostics []string `json:"diagnostics" yaml:"diagnostics"`
	Coverage    *float64 `json:"coverage,omitempty" yaml:"coverage,omitempty"`
}

// Failed reports whether the gate ran and did not pass.
func (o Outcome) Failed() bool {
	return !o.Passed && !o.Skipped
}

func skipped(kind Kind, reason string) Outcome {
	return Outcome{Gate: kind, Passed: true, Skipped: true, Reason: reason, Diagnostics: []string{}}
}

// RunResult aggregates all gate outcomes of one run.
type RunResult struct {
	ID      string    `json:"id" yaml:"id"`
	Key     string    `json:"key" yaml:"key"`
	Passed  bool      `json:"passed" yaml:"passed"`
	Results []Outcome `json:"results" yaml:"results"`
	RanAt   time.Time `json:"ranAt" yaml:"ran_at"`
	Cached  bool      `json:"cached" yaml:"cached"`
}

// aggregate computes Passed as the AND over every enabled, non-skipped,
// blocking gate. Non-blocking failures are reported but never flip it.
func aggregate(results []Outcome) bool {
	for _, o := range results {
		if o.Blocking && o.Failed() {
			return false
		}
	}
	return true
}

// Failures returns every gate that ran and failed, blocking or not.
func (r *RunResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Results {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// BlockingFailures returns the failed gates that decide the aggregate.
func (r *RunResult) BlockingFailures() []Outcome {
	var out []Outcome
	for _, o := range r.Results {
		if o.Failed() && o.Blocking {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the result for a gate, if present.
func (r *RunResult) Outcome(kind Kind) (Outcome, bool) {
	for _, o := range r.Results {
		if o.Gate == kind {
			return o, true
		}
	}
	return Outcome{}, false
}

// Package tier controls how much guidance threadwork's generated text carries.
// A tier only shapes presentation; it never changes control flow.
package tier

import (
	"fmt"
	"regexp"
	"strings"
)

// Tier is a verbosity level applied to correction, warning and instruction text.
type Tier string

const (
	Beginner Tier = "beginner"
	Advanced Tier = "advanced"
	Ninja    Tier = "ninja"

	// Default is used whenever the configured tier is missing or unknown.
	Default = Advanced
)

// All lists the valid tiers from most to least verbose.
var All = []Tier{Beginner, Advanced, Ninja}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case Beginner, Advanced, Ninja:
		return true
	}
	return false
}

// Normalize returns t when valid and Default otherwise.
func (t Tier) Normalize() Tier {
	if t.Valid() {
		return t
	}
	return Default
}

func (t Tier) String() string { return string(t) }

// Parse validates an explicitly requested tier name. Unlike Normalize it
// fails closed, since it backs deliberate user changes.
func Parse(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w '%s': must be one of: beginner, advanced, ninja", ErrInvalidTier, s)
	}
	return t, nil
}

// Level is the severity of a warning.
type Level string

const (
	Info     Level = "info"
	Warning  Level = "warning"
	Critical Level = "critical"
)

// Instructions returns the output-style block injected into agent prompts.
func Instructions(t Tier) string {
	var lines []string
	switch t.Normalize() {
	case Beginner:
		lines = []string{
			"## Output Style: Beginner Mode",
			"Explain your reasoning step-by-step before implementing.",
			"Include inline comments throughout generated code explaining what each section does.",
			"When a quality gate fails, explain what the error means and why it matters before fixing it.",
			`After each significant action, include a brief "What just happened" summary.`,
			"Token budget warnings: briefly explain why managing tokens matters.",
			`Phase transitions: include a "You are here" orientation block.`,
		}
	case Ninja:
		lines = []string{
			"## Output Style: Ninja Mode",
			"Minimal output. Code only — no narration unless explicitly asked.",
			"Omit reasoning entirely unless requested.",
			"Quality gate failures: raw error + minimal correction. No explanation.",
			"Slash commands: machine-readable compact summaries.",
			"Token warnings: single indicator only (e.g., 🚨 91%).",
			"No orientation blocks, no summaries, no explanations unless asked.",
		}
	default:
		lines = []string{
			"## Output Style: Advanced Mode",
			"Summarize reasoning in 1–2 sentences — no elaborate explanations.",
			"Code comments only for non-obvious logic.",
			"Quality gate failures: show the error and the fix, no background lecture.",
			"Slash command output: information-dense, no hand-holding.",
			"Token warnings: brief one-liner.",
			"Phase transitions: terse status updates.",
		}
	}
	return strings.Join(lines, "\n")
}

var (
	headingLine = regexp.MustCompile(`(?m)^#{1,3}[ \t]+.+\n`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// FormatOutput shapes command output for a tier. Ninja drops markdown
// headings and collapses runs of blank lines; other tiers pass through.
func FormatOutput(content string, t Tier) string {
	if t.Normalize() != Ninja {
		return content
	}
	content = headingLine.ReplaceAllString(content, "")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

package tier

import (
	"fmt"
	"strings"
)

// Failure is one failing gate as seen by the formatter.
type Failure struct {
	Gate        string
	Diagnostics []string
}

// Diagnostics shown per gate in a correction.
const (
	terseDiagnostics   = 3
	verboseDiagnostics = 5
)

// FormatCorrection renders the correction prompt handed back to an agent
// whose completion was blocked by failing gates.
func FormatCorrection(failures []Failure, t Tier) string {
	switch t.Normalize() {
	case Ninja:
		blocks := make([]string, 0, len(failures))
		for _, f := range failures {
			blocks = append(blocks, strings.ToUpper(f.Gate)+":\n"+
				strings.Join(head(f.Diagnostics, terseDiagnostics), "\n"))
		}
		return "Fix these errors:\n\n" + strings.Join(blocks, "\n\n")

	case Beginner:
		lines := []string{
			"## Quality Gate Failures — Please Fix",
			"",
			"Some automated checks failed on your code. Here is what needs to be fixed:",
			"",
		}
		for _, f := range failures {
			items := make([]string, 0, verboseDiagnostics)
			for _, d := range head(f.Diagnostics, verboseDiagnostics) {
				items = append(items, "- `"+d+"`")
			}
			lines = append(lines,
				fmt.Sprintf("### %s Errors", capitalize(f.Gate)),
				fmt.Sprintf("These %s errors need to be fixed before your changes can be accepted:", f.Gate),
				"",
				strings.Join(items, "\n"),
				"",
				"Fix each error listed above, then your changes will pass the quality check.",
			)
		}
		return strings.Join(lines, "\n")

	default:
		sections := make([]string, 0, len(failures))
		for _, f := range failures {
			sections = append(sections, fmt.Sprintf("**%s**: %s",
				f.Gate, strings.Join(head(f.Diagnostics, terseDiagnostics), "; ")))
		}
		return "Quality gates failed. Fix and re-verify:\n\n" + strings.Join(sections, "\n")
	}
}

// FormatWarning renders a budget or escalation warning.
func FormatWarning(level Level, message string, t Tier) string {
	switch t.Normalize() {
	case Ninja:
		icon := map[Level]string{Info: "ℹ", Warning: "⚠", Critical: "🚨"}[level]
		if message == "" {
			return icon
		}
		if icon == "" {
			return message
		}
		return icon + " " + message

	case Beginner:
		switch level {
		case Info:
			return "ℹ️ Note: " + message + "\n(This is informational — no action required right now.)"
		case Warning:
			return "⚠️ Heads up: " + message + "\n(You should address this before starting a new session to avoid losing context.)"
		case Critical:
			return "🚨 Important: " + message + "\n(You need to act on this now. Run '/tw:done' to save your session before context is lost.)"
		}
		return message

	default:
		switch level {
		case Info:
			return "ℹ️ " + message
		case Warning:
			return "⚠️ " + message
		case Critical:
			return "🚨 " + message
		}
		return message
	}
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

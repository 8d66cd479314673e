package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors are ANSI 256 indexes so they degrade sensibly on small palettes.
// lipgloss drops styling entirely when stdout is not a terminal.
var (
	colorPass  = lipgloss.Color("10")
	colorWarn  = lipgloss.Color("11")
	colorFail  = lipgloss.Color("9")
	colorMuted = lipgloss.Color("8")

	passStyle    = lipgloss.NewStyle().Foreground(colorPass).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Pass renders s as a success marker.
func Pass(s string) string { return passStyle.Render(s) }

// Warn renders s as a warning marker.
func Warn(s string) string { return warnStyle.Render(s) }

// Fail renders s as a failure marker.
func Fail(s string) string { return failStyle.Render(s) }

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Heading renders a section title.
func Heading(s string) string { return headingStyle.Render(s) }

// Box frames a block of lines.
func Box(lines ...string) string { return boxStyle.Render(strings.Join(lines, "\n")) }

// Severity picks a style by threshold signal name (none, warning, critical).
func Severity(signal, s string) string {
	switch signal {
	case "critical":
		return Fail(s)
	case "warning":
		return Warn(s)
	}
	return Pass(s)
}

// Gauge draws a fixed-width usage bar for percent (clamped to 0..100),
// colored by signal.
func Gauge(percent, width int, signal string) string {
	if width < 4 {
		width = 4
	}
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	return fmt.Sprintf("%s%s %3d%%",
		Severity(signal, strings.Repeat("█", filled)),
		Muted(strings.Repeat("░", width-filled)),
		percent)
}

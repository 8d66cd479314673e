// Package formatter renders CLI output: tab-aligned tables for humans,
// JSON or YAML documents for scripts, and lipgloss styling for terminals.
package formatter

import (
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Table buffers rows and renders them tab-aligned under a header and a
// dashed separator. A table with no rows renders nothing.
type Table struct {
	out      io.Writer
	headers  []string
	rows     [][]string
	maxWidth map[int]int
}

// NewTable creates a table that writes to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{out: w, headers: headers, maxWidth: make(map[int]int)}
}

// SetMaxWidth caps the display width, in runes, of a column (0-indexed).
// Longer values are cut and end in "...".
func (t *Table) SetMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// AddRow appends a data row. Extra values beyond the header count are
// dropped; missing values are left blank.
func (t *Table) AddRow(values ...string) {
	cells := make([]string, len(t.headers))
	for i := range cells {
		if i < len(values) {
			cells[i] = t.truncate(i, values[i])
		}
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table.
func (t *Table) Render() error {
	if len(t.rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", utf8.RuneCountInString(h))
	}

	lines := append([][]string{t.headers, sep}, t.rows...)
	for _, cells := range lines {
		if _, err := io.WriteString(tw, strings.Join(cells, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (t *Table) truncate(col int, s string) string {
	// Tabs and newlines would break alignment.
	s = strings.Join(strings.Fields(s), " ")
	limit, ok := t.maxWidth[col]
	if !ok || limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

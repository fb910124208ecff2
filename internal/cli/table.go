package cli

import (
	"regexp"
	"strings"
)

// ansiEscape matches SGR escape sequences, which take no screen width.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// Table formats rows into aligned columns. Cells may carry ANSI colour
// codes; widths are measured on the visible text only.
type Table struct {
	headers []string
	rows    [][]string
	padding int
	align   map[int]bool // right-align columns by index
}

// NewTable creates a new table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		padding: 2,
		align:   make(map[int]bool),
	}
}

// AlignRight right-aligns the column at colIndex.
func (t *Table) AlignRight(colIndex int) {
	t.align[colIndex] = true
}

// AddRow adds a row, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	if len(row) == len(t.headers) {
		t.rows = append(t.rows, row)
		return
	}
	fitted := make([]string, len(t.headers))
	copy(fitted, row)
	t.rows = append(t.rows, fitted)
}

// Render formats and returns the table as a string.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], visibleWidth(cell))
		}
	}

	gap := strings.Repeat(" ", t.padding)
	var b strings.Builder

	t.writeRow(&b, t.headers, widths, gap)

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(sep, gap))
	b.WriteString("\n")

	for _, row := range t.rows {
		t.writeRow(&b, row, widths, gap)
	}

	return b.String()
}

func (t *Table) writeRow(b *strings.Builder, row []string, widths []int, gap string) {
	parts := make([]string, len(row))
	for i, cell := range row {
		fill := strings.Repeat(" ", widths[i]-visibleWidth(cell))
		if t.align[i] {
			parts[i] = fill + cell
		} else {
			parts[i] = cell + fill
		}
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, gap), " "))
	b.WriteString("\n")
}

// visibleWidth returns the printed width of s, ignoring ANSI escapes.
func visibleWidth(s string) int {
	return len([]rune(ansiEscape.ReplaceAllString(s, "")))
}

package cli

import (
	"strings"
	"testing"

	"github.com/jmylchreest/palettepeek/internal/colour"
)

func TestTableAddRow(t *testing.T) {
	table := NewTable([]string{"Hex", "Share"})

	table.AddRow([]string{"#FF0000", "50%"})
	table.AddRow([]string{"#00FF00"})
	table.AddRow([]string{"#0000FF", "25%", "extra"})

	if len(table.rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table.rows))
	}
	if len(table.rows[1]) != 2 || table.rows[1][1] != "" {
		t.Errorf("Expected short row to be padded, got %q", table.rows[1])
	}
	if len(table.rows[2]) != 2 {
		t.Errorf("Expected long row to be truncated, got %q", table.rows[2])
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable([]string{"#", "Hex", "Share"})
	table.AlignRight(2)
	table.AddRow([]string{"1", "#FF0000", "50%"})
	table.AddRow([]string{"2", "#00FF00", "<1%"})
	table.AddRow([]string{"10", "#0000FF", "5%"})

	want := strings.Join([]string{
		"#   Hex      Share",
		"--  -------  -----",
		"1   #FF0000    50%",
		"2   #00FF00    <1%",
		"10  #0000FF     5%",
		"",
	}, "\n")

	if got := table.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestTableRenderIgnoresANSI(t *testing.T) {
	preview := colour.ColourPreview(colour.RGB{R: 255}, 4)
	table := NewTable([]string{"Preview", "Hex"})
	table.AddRow([]string{preview, "#FF0000"})

	lines := strings.Split(table.Render(), "\n")
	if got := visibleWidth(lines[2]); got != len(lines[1]) {
		t.Errorf("row width %d != separator width %d:\n%q", got, len(lines[1]), lines)
	}
}

func TestTableRenderEmpty(t *testing.T) {
	if got := NewTable(nil).Render(); got != "" {
		t.Errorf("Render() with no headers = %q, want empty", got)
	}
}

func TestVisibleWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"\x1b[48;2;255;0;0m    \x1b[0m", 4},
		{"\x1b[38;2;1;2;3mhi\x1b[0m!", 3},
	}
	for _, tt := range tests {
		if got := visibleWidth(tt.in); got != tt.want {
			t.Errorf("visibleWidth(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

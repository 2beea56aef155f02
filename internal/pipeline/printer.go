package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jittakal/sentimentetl/pkg/table"
)

const ruleWidth = 70

// Printer writes the human-readable run report.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer on w. A nil w discards output.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = io.Discard
	}
	return &Printer{w: w}
}

// Header prints a ruled section title.
func (p *Printer) Header(title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(p.w, "\n%s\n  %s\n%s\n", rule, title, rule)
}

// Linef prints one formatted line.
func (p *Printer) Linef(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Bullet prints an indented "label: value" line.
func (p *Printer) Bullet(label string, value any) {
	fmt.Fprintf(p.w, "   - %s: %v\n", label, value)
}

// Table prints up to maxCols columns of t as an aligned text grid. Cells
// wider than maxWidth display columns are truncated with "...".
func (p *Printer) Table(t *table.Table, maxCols, maxWidth int) {
	cols := t.Columns()
	if maxCols > 0 && len(cols) > maxCols {
		cols = cols[:maxCols]
	}
	if len(cols) == 0 {
		p.Linef("(empty)")
		return
	}

	grid := make([][]string, 0, t.NumRows()+1)
	header := make([]string, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	grid = append(grid, header)

	for i := 0; i < t.NumRows(); i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			cell := table.FormatValue(c.Values[i])
			if c.Values[i] == nil {
				cell = "<null>"
			}
			if maxWidth > 0 {
				cell = runewidth.Truncate(cell, maxWidth, "...")
			}
			row[j] = cell
		}
		grid = append(grid, row)
	}

	widths := make([]int, len(cols))
	for _, row := range grid {
		for j, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}

	for i, row := range grid {
		var sb strings.Builder
		for j, cell := range row {
			if j > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[j]))
		}
		p.Linef("%s", strings.TrimRight(sb.String(), " "))
		if i == 0 {
			sep := make([]string, len(widths))
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}
			p.Linef("%s", strings.Join(sep, "  "))
		}
	}

	if hidden := t.NumCols() - len(cols); hidden > 0 {
		p.Linef("[%d rows x %d columns, %d not shown]", t.NumRows(), t.NumCols(), hidden)
	}
}

// humanBytes formats a byte count with a binary unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

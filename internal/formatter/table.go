package formatter

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/listx/pkg/item"
)

const (
	tableSepWidth = 2
	minColWidth   = 5
)

type tableFormatter struct {
	opts Options
}

func (f tableFormatter) Items(items []item.Item) (string, error) {
	if len(items) == 0 {
		return styled(EmptyPlaceholder, mutedStyle, f.opts.NoColor) + "\n", nil
	}
	cols := columnsFor(items, f.opts.Columns)
	rows := make([][]string, len(items))
	for i, it := range items {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = Cell(it, c)
		}
		rows[i] = row
	}
	return RenderColumns(cols, rows, f.opts), nil
}

func (f tableFormatter) Error(err error) string {
	return styled(ErrorPlaceholder, errorStyle, f.opts.NoColor) + "\n"
}

// RenderColumns draws a header, a rule and one line per row, fitting the
// columns into opts.Width (or the terminal width).
func RenderColumns(cols []string, rows [][]string, opts Options) string {
	maxWidth := opts.Width
	if maxWidth <= 0 {
		maxWidth = getTerminalWidth()
	}
	widths := fitColumns(naturalWidths(cols, rows), maxWidth)
	sep := strings.Repeat(" ", tableSepWidth)

	var b strings.Builder
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = styled(pad(strings.ToUpper(c), widths[i]), headerStyle, opts.NoColor)
	}
	b.WriteString(strings.Join(header, sep) + "\n")

	total := tableSepWidth * (len(cols) - 1)
	for _, w := range widths {
		total += w
	}
	b.WriteString(styled(strings.Repeat("─", total), separatorStyle, opts.NoColor) + "\n")

	for _, row := range rows {
		cells := make([]string, len(cols))
		for i := range cols {
			st := valueStyle
			if i == 0 {
				st = keyStyle
			}
			cells[i] = styled(pad(row[i], widths[i]), st, opts.NoColor)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, sep), " ") + "\n")
	}
	return b.String()
}

func naturalWidths(cols []string, rows [][]string) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, row := range rows {
		for i, v := range row {
			if w := runewidth.StringWidth(v); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// fitColumns shrinks the widest column one cell at a time until the row fits
// maxWidth or every column is at minColWidth.
func fitColumns(widths []int, maxWidth int) []int {
	out := append([]int(nil), widths...)
	total := func() int {
		t := tableSepWidth * (len(out) - 1)
		for _, w := range out {
			t += w
		}
		return t
	}
	for total() > maxWidth {
		widest := 0
		for i, w := range out {
			if w > out[widest] {
				widest = i
			}
		}
		if out[widest] <= minColWidth {
			break
		}
		out[widest]--
	}
	return out
}

// pad truncates s to width display cells (with an ellipsis) and pads it.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

package formatter

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/listx/pkg/item"
)

type listFormatter struct {
	opts Options
}

// Items renders one block per item: a numbered title line followed by
// indented key/value pairs.
func (f listFormatter) Items(items []item.Item) (string, error) {
	if len(items) == 0 {
		return styled(EmptyPlaceholder, mutedStyle, f.opts.NoColor) + "\n", nil
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		title := item.String(it, "title")
		if title == "" {
			title = fmt.Sprintf("item %d", i+1)
		}
		b.WriteString(styled(fmt.Sprintf("%d. %s", i+1, title), headerStyle, f.opts.NoColor) + "\n")
		for _, c := range columnsFor([]item.Item{it}, f.opts.Columns) {
			if c == "title" {
				continue
			}
			val := Cell(it, c)
			if val == "" {
				continue
			}
			b.WriteString("   ")
			b.WriteString(styled(c, keyStyle, f.opts.NoColor))
			b.WriteString(": ")
			b.WriteString(styled(val, valueStyle, f.opts.NoColor))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (f listFormatter) Error(err error) string {
	msg := ErrorPlaceholder
	if err != nil {
		msg += " " + err.Error()
	}
	return styled(msg, errorStyle, f.opts.NoColor) + "\n"
}

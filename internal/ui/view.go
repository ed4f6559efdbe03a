package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/pkg/engine"
	"github.com/oakwood-commons/listx/pkg/item"
	"github.com/oakwood-commons/listx/pkg/settings"
)

const helpLine = "tab focus  ←/→ move  space toggle  enter open  x clear  [ ] history  y copy url  ctrl+r reset  q quit"

const defaultWidth = 80

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Content())
	v.AltScreen = true
	// Needed to tell shift+tab and alt+arrows apart on some terminals.
	v.KeyboardEnhancements.ReportEventTypes = true
	return v
}

// Content renders the whole screen as a string.
func (m *Model) Content() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	results, loadErr := m.rendered()

	top := []string{m.header(len(results), loadErr)}
	if loadErr == nil && m.eng != nil {
		if m.eng.SearchEnabled() {
			search := m.input.View()
			if m.focus == focusSearch {
				search = m.st.focused.Render("›") + " " + search
			} else {
				search = "  " + search
			}
			top = append(top, search)
		}
		for i, c := range m.controls {
			top = append(top, m.controlLines(c, i == m.focus, width)...)
		}
	}
	rule := m.st.muted.Render(strings.Repeat("─", width))
	top = append(top, rule)

	bottom := []string{
		rule,
		m.statusLine(width),
		m.st.muted.Render(runewidth.Truncate(helpLine, width, "...")),
	}

	body := m.resultLines(results, loadErr, width)
	if m.height > 0 {
		avail := max(m.height-len(top)-len(bottom), 1)
		m.offset = min(m.offset, max(len(body)-avail, 0))
		end := min(m.offset+avail, len(body))
		body = body[m.offset:end]
		for len(body) < avail {
			body = append(body, "")
		}
	}

	lines := make([]string, 0, len(top)+len(body)+len(bottom))
	lines = append(lines, top...)
	lines = append(lines, body...)
	lines = append(lines, bottom...)
	return strings.Join(lines, "\n")
}

func (m *Model) header(n int, loadErr error) string {
	title := m.st.focused.Render(settings.CliBinaryName)
	if loadErr != nil || m.eng == nil {
		return title
	}
	return title + "  " + m.st.muted.Render(fmt.Sprintf("%d of %d items", n, m.eng.Len()))
}

// resultLines renders the result pane with the configured formatter so the
// TUI and the one-shot output share placeholders and layout.
func (m *Model) resultLines(results []item.Item, loadErr error, width int) []string {
	f, err := formatter.New(m.opts.Format, formatter.Options{
		Columns: m.opts.Columns,
		NoColor: m.opts.NoColor,
		Width:   width,
	})
	if err != nil {
		return []string{m.st.err.Render(err.Error())}
	}
	var out string
	if loadErr != nil {
		out = f.Error(loadErr)
	} else {
		out, err = f.Items(results)
		if err != nil {
			out = f.Error(err)
		}
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func (m *Model) statusLine(width int) string {
	url := ""
	if m.eng != nil {
		url = m.eng.URL()
	}
	line := runewidth.Truncate(url, width, "...")
	if m.flash == "" {
		return m.st.status.Render(line)
	}
	flashStyle := m.st.flash
	if m.flashIsErr {
		flashStyle = m.st.err
	}
	room := width - runewidth.StringWidth(line) - 2
	if room <= 3 {
		return flashStyle.Render(runewidth.Truncate(m.flash, width, "..."))
	}
	return m.st.status.Render(line) + "  " + flashStyle.Render(runewidth.Truncate(m.flash, room, "..."))
}

// token is one option chip: plain text for width accounting plus its styled
// rendering.
type token struct {
	plain  string
	styled string
}

func (m *Model) controlLines(c engine.Control, focused bool, width int) []string {
	marker := "  "
	labelStyle := m.st.label
	if focused {
		marker = m.st.focused.Render("›") + " "
		labelStyle = m.st.focused
	}
	cursor := -1
	if focused {
		cursor = min(m.cursors[c.Field], len(c.Options)-1)
	}

	if c.Kind == config.ControlMultiSelect {
		open := m.expanded[c.Field]
		arrow := "▸"
		if open {
			arrow = "▾"
		}
		head := marker + labelStyle.Render(arrow+" "+c.Title())
		if !open {
			if summary := selectedSummary(c); summary != "" {
				head += "  " + m.st.muted.Render(runewidth.Truncate(summary, max(width-runewidth.StringWidth(c.Title())-6, 4), "..."))
			}
			return []string{head}
		}
		toks := make([]token, len(c.Options))
		for i, o := range c.Options {
			box := "[ ]"
			if o.Selected {
				box = "[x]"
			}
			toks[i] = m.chip(fmt.Sprintf("%s %s (%d)", box, o.Display, o.Count), o.Selected, i == cursor)
		}
		return append([]string{head}, wrapTokens(toks, "    ", width)...)
	}

	label := c.Title() + ":"
	toks := make([]token, len(c.Options))
	for i, o := range c.Options {
		toks[i] = m.chip(fmt.Sprintf(" %s %d ", o.Display, o.Count), o.Selected, i == cursor)
	}
	lines := wrapTokens(toks, strings.Repeat(" ", runewidth.StringWidth(label)+3), width-runewidth.StringWidth(label)-3)
	if len(lines) == 0 {
		return []string{marker + labelStyle.Render(label)}
	}
	lines[0] = marker + labelStyle.Render(label) + " " + strings.TrimLeft(lines[0], " ")
	return lines
}

func (m *Model) chip(text string, selected, atCursor bool) token {
	st := m.st.option
	if selected {
		st = m.st.selected
	}
	if atCursor {
		st = st.Inherit(m.st.cursor)
	}
	return token{plain: text, styled: st.Render(text)}
}

func selectedSummary(c engine.Control) string {
	var names []string
	for _, o := range c.Options {
		if o.Selected {
			names = append(names, o.Display)
		}
	}
	return strings.Join(names, ", ")
}

// wrapTokens lays tokens out in lines no wider than width, each prefixed by
// indent.
func wrapTokens(toks []token, indent string, width int) []string {
	if len(toks) == 0 {
		return nil
	}
	var lines []string
	var b strings.Builder
	used := 0
	b.WriteString(indent)
	for _, t := range toks {
		w := runewidth.StringWidth(t.plain)
		if used > 0 && used+1+w > width {
			lines = append(lines, b.String())
			b.Reset()
			b.WriteString(indent)
			used = 0
		}
		if used > 0 {
			b.WriteString(" ")
			used++
		}
		b.WriteString(t.styled)
		used += w
	}
	return append(lines, b.String())
}

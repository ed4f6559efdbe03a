package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme defines colors used across the UI.
type Theme struct {
	Accent      color.Color // focused control and headings
	Muted       color.Color // counts, hints and the status line
	SelectedFG  color.Color
	SelectedBG  color.Color
	Error       color.Color
	Success     color.Color
	StatusBG    color.Color
	OptionFG    color.Color
	Unselected  color.Color
}

// DefaultTheme uses ANSI 256 codes that read well on dark terminals.
func DefaultTheme() Theme {
	return Theme{
		Accent:      lipgloss.Color("81"),
		Muted:       lipgloss.Color("244"),
		SelectedFG:  lipgloss.Color("230"),
		SelectedBG:  lipgloss.Color("24"),
		Error:       lipgloss.Color("203"),
		Success:     lipgloss.Color("114"),
		StatusBG:    lipgloss.Color("236"),
		OptionFG:    lipgloss.Color("250"),
		Unselected:  lipgloss.Color("240"),
	}
}

type styles struct {
	label    lipgloss.Style
	focused  lipgloss.Style
	option   lipgloss.Style
	selected lipgloss.Style
	cursor   lipgloss.Style
	muted    lipgloss.Style
	status   lipgloss.Style
	err      lipgloss.Style
	flash    lipgloss.Style
}

func newStyles(t Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			label:    plain,
			focused:  plain.Bold(true),
			option:   plain,
			selected: plain,
			cursor:   plain.Reverse(true),
			muted:    plain,
			status:   plain,
			err:      plain,
			flash:    plain,
		}
	}
	return styles{
		label:    lipgloss.NewStyle().Foreground(t.OptionFG),
		focused:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		option:   lipgloss.NewStyle().Foreground(t.Unselected),
		selected: lipgloss.NewStyle().Foreground(t.SelectedFG).Background(t.SelectedBG),
		cursor:   lipgloss.NewStyle().Underline(true).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(t.Muted),
		status:   lipgloss.NewStyle().Foreground(t.Muted).Background(t.StatusBG),
		err:      lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		flash:    lipgloss.NewStyle().Foreground(t.Success),
	}
}

// Package formatter renders filtered item lists for the terminal and for
// machine consumers.
package formatter

import (
	"fmt"
	"image/color"
	"os"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/listx/pkg/item"
)

// Placeholders shown instead of a result list.
const (
	EmptyPlaceholder = "No items found."
	ErrorPlaceholder = "Error loading items."
)

// Output format names.
const (
	FormatTable = "table"
	FormatList  = "list"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatHTML  = "html"
)

var (
	defaultHeaderFG   = lipgloss.Color("12")
	defaultHeaderBG   = lipgloss.Color("236")
	defaultKeyColor   = lipgloss.Color("14")
	defaultValueColor = lipgloss.Color("248")
	defaultSeparator  = lipgloss.Color("240")
	defaultMutedColor = lipgloss.Color("244")
	defaultErrorColor = lipgloss.Color("9")

	headerStyle    lipgloss.Style
	keyStyle       lipgloss.Style
	valueStyle     lipgloss.Style
	separatorStyle lipgloss.Style
	mutedStyle     lipgloss.Style
	errorStyle     lipgloss.Style
)

// TableColors controls the rendered colors. Nil fields fall back to the
// defaults (ANSI 256 codes).
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	KeyColor       color.Color
	ValueColor     color.Color
	SeparatorColor color.Color
}

func applyTableTheme(tc TableColors) {
	pick := func(c, def color.Color) color.Color {
		if c == nil {
			return def
		}
		return c
	}
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(pick(tc.HeaderFG, defaultHeaderFG)).
		Background(pick(tc.HeaderBG, defaultHeaderBG))
	keyStyle = lipgloss.NewStyle().Foreground(pick(tc.KeyColor, defaultKeyColor))
	valueStyle = lipgloss.NewStyle().Foreground(pick(tc.ValueColor, defaultValueColor))
	separatorStyle = lipgloss.NewStyle().Foreground(pick(tc.SeparatorColor, defaultSeparator))
	mutedStyle = lipgloss.NewStyle().Foreground(defaultMutedColor).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(defaultErrorColor).Bold(true)
}

// SetTableTheme overrides the global styles.
func SetTableTheme(tc TableColors) {
	applyTableTheme(tc)
}

//nolint:gochecknoinits // initialize default theme for package consumers
func init() {
	applyTableTheme(TableColors{})
}

// Options configures every formatter.
type Options struct {
	// Columns selects and orders the item fields shown by table and list.
	// Empty means every key, sorted.
	Columns []string
	NoColor bool
	// Width caps the table width. Zero uses the terminal width.
	Width int
}

// Formatter turns results (or a load failure) into output text.
type Formatter interface {
	Items(items []item.Item) (string, error)
	Error(err error) string
}

// Names lists the supported formats.
func Names() []string {
	return []string{FormatTable, FormatList, FormatJSON, FormatYAML, FormatHTML}
}

// New returns the formatter for name.
func New(name string, opts Options) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", FormatTable:
		return tableFormatter{opts: opts}, nil
	case FormatList:
		return listFormatter{opts: opts}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatYAML:
		return yamlFormatter{}, nil
	case FormatHTML:
		return htmlFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

// Cell renders a field of it as a single display string; list values are
// joined with ", ".
func Cell(it item.Item, field string) string {
	return escapeScalarString(strings.Join(item.Text(it, field), ", "))
}

// columnsFor returns opts.Columns or, when empty, the sorted union of keys.
func columnsFor(items []item.Item, columns []string) []string {
	if len(columns) > 0 {
		return columns
	}
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		for k := range it {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	slices.Sort(out)
	return out
}

// escapeScalarString flattens line breaks so table rows stay single-line.
func escapeScalarString(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// getTerminalWidth returns the terminal width, or a default if detection fails
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}

func styled(s string, st lipgloss.Style, noColor bool) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

// Package ui is the interactive terminal front end. It builds one control per
// visible field, a search box and the result pane, and drives an engine.
package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/debounce"
	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/engine"
	"github.com/oakwood-commons/listx/pkg/item"
)

// focusSearch is the focus index of the search box. Controls use 0..n-1.
const focusSearch = -1

// Options configures a Model.
type Options struct {
	NoColor bool
	// Format names the formatter used for the result pane (default table).
	Format  string
	Columns []string
	// Width and Height pin the layout; zero waits for the terminal size.
	Width  int
	Height int
	Theme  *Theme
}

// ReloadMsg swaps in a freshly started engine, e.g. after the source changed.
// The engine must have been created with the model as its renderer.
type ReloadMsg struct {
	Engine *engine.Engine
}

// searchTickMsg wakes the model when a debounced query becomes due.
type searchTickMsg struct {
	Token debounce.Token
}

// flashClearMsg clears a transient status message.
type flashClearMsg struct {
	ID int
}

// Model is the Bubble Tea model. It is also the engine's renderer: results
// and load errors arrive through Render and RenderError.
type Model struct {
	opts   Options
	st     styles
	eng    *engine.Engine
	input  textinput.Model
	search *debounce.Machine[string]

	controls []engine.Control
	focus    int
	cursors  map[string]int
	expanded map[string]bool
	offset   int
	width    int
	height   int

	flash      string
	flashIsErr bool
	flashID    int

	mu      sync.Mutex
	results []item.Item
	loadErr error
}

var _ engine.Renderer = (*Model)(nil)

// NewModel returns a model with no engine attached.
func NewModel(opts Options) *Model {
	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatTable
	}

	ti := textinput.New()
	ti.Prompt = "search: "
	ti.Placeholder = "type to filter"
	ti.CharLimit = 256
	ti.SetWidth(60)

	return &Model{
		opts:     opts,
		st:       newStyles(theme, opts.NoColor),
		input:    ti,
		search:   debounce.NewMachine[string](0),
		focus:    focusSearch,
		cursors:  make(map[string]int),
		expanded: make(map[string]bool),
		width:    opts.Width,
		height:   opts.Height,
	}
}

// Render stores the latest results.
func (m *Model) Render(results []item.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	m.loadErr = nil
}

// RenderError stores a load failure.
func (m *Model) RenderError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = nil
	m.loadErr = err
}

func (m *Model) rendered() ([]item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results, m.loadErr
}

// Attach makes eng the engine driven by the model. Any previous engine is
// closed. eng should already be started.
func (m *Model) Attach(eng *engine.Engine) {
	if m.eng != nil && m.eng != eng {
		m.eng.Close()
	}
	m.eng = eng
	m.search = debounce.NewMachine[string](eng.Config().Engine.Debounce())
	eng.OnSync(m.syncSnapshot)

	snap := eng.Snapshot()
	m.input.SetValue(snap.Search)
	m.input.CursorEnd()
	m.refreshControls()

	if eng.SearchEnabled() {
		m.focus = focusSearch
		m.input.Focus()
	} else {
		m.input.Blur()
		m.focus = 0
	}
	m.offset = 0
}

// Engine returns the attached engine.
func (m *Model) Engine() *engine.Engine {
	return m.eng
}

// syncSnapshot mirrors a navigated selection into the widgets. Only the
// search box holds state of its own; controls are rebuilt from the engine.
func (m *Model) syncSnapshot(snap selection.Snapshot) {
	m.search.Cancel()
	m.input.SetValue(snap.Search)
	m.input.CursorEnd()
}

func (m *Model) refreshControls() {
	if m.eng == nil {
		m.controls = nil
		return
	}
	m.controls = m.eng.Controls()
	if m.focus >= len(m.controls) {
		m.focus = len(m.controls) - 1
	}
	if m.focus < 0 && !m.eng.SearchEnabled() && len(m.controls) > 0 {
		m.focus = 0
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.opts.Width <= 0 {
			m.width = msg.Width
		}
		if m.opts.Height <= 0 {
			m.height = msg.Height
		}
		m.input.SetWidth(max(m.width-len(m.input.Prompt)-2, 10))
		return m, nil

	case ReloadMsg:
		if msg.Engine != nil {
			m.Attach(msg.Engine)
			return m, m.setFlash("reloaded", false)
		}
		return m, nil

	case searchTickMsg:
		if q, ok := m.search.Fire(msg.Token); ok && m.eng != nil {
			m.report(m.eng.SearchNow(q))
			m.afterChange()
		}
		return m, nil

	case flashClearMsg:
		if msg.ID == m.flashID {
			m.flash = ""
			m.flashIsErr = false
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusSearch {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	case "alt+left":
		m.navigate(false)
		return m, nil
	case "alt+right":
		m.navigate(true)
		return m, nil
	case "up":
		m.scroll(-1)
		return m, nil
	case "down":
		m.scroll(1)
		return m, nil
	case "pgup":
		m.scroll(-m.pageSize())
		return m, nil
	case "pgdown":
		m.scroll(m.pageSize())
		return m, nil
	case "ctrl+r":
		return m, m.resetAll()
	}

	if m.eng == nil {
		if key == "q" || key == "esc" {
			return m, tea.Quit
		}
		return m, nil
	}
	if _, err := m.rendered(); err != nil {
		if key == "q" || key == "esc" {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.focus == focusSearch {
		return m.handleSearchKey(msg)
	}
	return m.handleControlKey(key)
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Cancel()
		m.input.SetValue("")
		m.report(m.eng.ClearSearch())
		m.afterChange()
		return m, nil
	case "enter":
		if q, ok := m.search.Flush(); ok {
			m.report(m.eng.SearchNow(q))
			m.afterChange()
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	after := m.input.Value()
	if after == before {
		return m, cmd
	}
	tok := m.search.Schedule(time.Now(), after)
	return m, tea.Batch(cmd, tea.Tick(m.search.Delay(), func(time.Time) tea.Msg {
		return searchTickMsg{Token: tok}
	}))
}

func (m *Model) handleControlKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "[":
		m.navigate(false)
		return m, nil
	case "]":
		m.navigate(true)
		return m, nil
	case "y":
		return m, m.copyURL()
	case "esc":
		if c, ok := m.focused(); ok && m.expanded[c.Field] {
			m.expanded[c.Field] = false
			return m, nil
		}
		if m.eng.SearchEnabled() {
			m.setFocus(focusSearch)
		}
		return m, nil
	}

	c, ok := m.focused()
	if !ok {
		return m, nil
	}
	switch key {
	case "left", "h":
		m.moveCursor(c, -1)
	case "right", "l":
		m.moveCursor(c, 1)
	case "enter":
		if c.Kind == config.ControlMultiSelect {
			m.expanded[c.Field] = !m.expanded[c.Field]
			return m, nil
		}
		m.toggleAtCursor(c)
	case "space":
		if c.Kind == config.ControlMultiSelect && !m.expanded[c.Field] {
			m.expanded[c.Field] = true
			return m, nil
		}
		m.toggleAtCursor(c)
	case "x", "backspace":
		m.report(m.eng.ClearField(c.Field))
		m.afterChange()
	}
	return m, nil
}

func (m *Model) focused() (engine.Control, bool) {
	if m.focus < 0 || m.focus >= len(m.controls) {
		return engine.Control{}, false
	}
	return m.controls[m.focus], true
}

// cycleFocus moves through the search box (when enabled) and the controls.
func (m *Model) cycleFocus(delta int) {
	var order []int
	if m.eng == nil || m.eng.SearchEnabled() {
		order = append(order, focusSearch)
	}
	for i := range m.controls {
		order = append(order, i)
	}
	if len(order) == 0 {
		return
	}
	pos := 0
	for i, f := range order {
		if f == m.focus {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(order)) % len(order)
	m.setFocus(order[pos])
}

func (m *Model) setFocus(f int) {
	m.focus = f
	if f == focusSearch {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

func (m *Model) moveCursor(c engine.Control, delta int) {
	n := len(c.Options)
	if n == 0 {
		return
	}
	m.cursors[c.Field] = (m.cursors[c.Field] + delta + n) % n
}

func (m *Model) toggleAtCursor(c engine.Control) {
	if len(c.Options) == 0 {
		return
	}
	i := min(m.cursors[c.Field], len(c.Options)-1)
	opt := c.Options[i]
	m.report(m.eng.Toggle(c.Field, opt.Value, !opt.Selected))
	m.afterChange()
}

func (m *Model) navigate(forward bool) {
	if m.eng == nil {
		return
	}
	var moved bool
	if forward {
		moved = m.eng.Forward()
	} else {
		moved = m.eng.Back()
	}
	if moved {
		m.afterChange()
	}
}

func (m *Model) resetAll() tea.Cmd {
	if m.eng == nil {
		return nil
	}
	m.search.Cancel()
	m.input.SetValue("")
	m.report(m.eng.Clear())
	m.afterChange()
	return nil
}

func (m *Model) copyURL() tea.Cmd {
	url := m.eng.URL()
	if err := CopyToClipboard(url); err != nil {
		return m.setFlash(fmt.Sprintf("copy failed: %v", err), true)
	}
	return m.setFlash("copied "+url, false)
}

// afterChange rebuilds the controls and keeps the result pane in range.
func (m *Model) afterChange() {
	m.refreshControls()
	m.offset = 0
}

func (m *Model) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, engine.ErrFailed) || errors.Is(err, engine.ErrNotStarted) {
		m.flash = "engine unavailable: " + err.Error()
	} else {
		m.flash = err.Error()
	}
	m.flashIsErr = true
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	id := m.flashID
	m.flash = text
	m.flashIsErr = isErr
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return flashClearMsg{ID: id}
	})
}

func (m *Model) scroll(delta int) {
	m.offset = max(m.offset+delta, 0)
}

func (m *Model) pageSize() int {
	return max(m.height/2, 1)
}

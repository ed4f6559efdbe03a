package engine

import (
	"fmt"

	"github.com/oakwood-commons/listx/internal/config"
)

// ControlOption is one choice of a control.
type ControlOption struct {
	Display  string
	Value    string
	Count    int
	Selected bool
}

// Control describes the widget a UI builds for one field.
type Control struct {
	Field string
	Label string
	// Kind is config.ControlToggle or config.ControlMultiSelect.
	Kind     string
	Options  []ControlOption
	Selected int
}

// Title is the control caption. Multi-selects show the selection count, as in
// "Status (2)", once anything is selected.
func (c Control) Title() string {
	if c.Kind == config.ControlMultiSelect && c.Selected > 0 {
		return fmt.Sprintf("%s (%d)", c.Label, c.Selected)
	}
	return c.Label
}

// Controls returns one control per visible field, in declared order, with the
// current selection applied.
func (e *Engine) Controls() []Control {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil || e.state == nil {
		return nil
	}

	var out []Control
	for _, f := range e.index.Fields() {
		if f.Hidden() {
			continue
		}
		c := Control{
			Field:    f.Name,
			Label:    f.Label,
			Kind:     f.Control,
			Options:  make([]ControlOption, len(f.Options)),
			Selected: e.state.Count(f.Name),
		}
		for i, o := range f.Options {
			c.Options[i] = ControlOption{
				Display:  o.Display,
				Value:    o.Value,
				Count:    o.Count,
				Selected: e.state.Has(f.Name, o.Value),
			}
		}
		out = append(out, c)
	}
	return out
}

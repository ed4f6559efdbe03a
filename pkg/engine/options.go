package engine

import (
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/listx/internal/cel"
	"github.com/oakwood-commons/listx/internal/debounce"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/internal/predicate"
	"github.com/oakwood-commons/listx/pkg/loader"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithRenderer sets the result renderer. The default discards output.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) error {
		e.renderer = r
		return nil
	}
}

// WithHistory sets the history channel. The default is an in-memory history
// starting at the page path.
func WithHistory(ch history.Channel) Option {
	return func(e *Engine) error {
		e.history = ch
		return nil
	}
}

// WithSource sets the data source read by Start.
func WithSource(src loader.Source) Option {
	return func(e *Engine) error {
		e.source = src
		return nil
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// WithClock sets the clock driving the search debouncer.
func WithClock(c debounce.Clock) Option {
	return func(e *Engine) error {
		e.clock = c
		return nil
	}
}

// WithWhere adds a CEL expression every result must satisfy. An empty
// expression is ignored.
func WithWhere(expr string) Option {
	return func(e *Engine) error {
		if expr == "" {
			return nil
		}
		prg, err := cel.Compile(expr)
		if err != nil {
			return err
		}
		e.where = append(e.where, prg)
		return nil
	}
}

// WithPredicate adds an arbitrary predicate every result must satisfy.
func WithPredicate(fn predicate.Func) Option {
	return func(e *Engine) error {
		e.extra = append(e.extra, fn)
		return nil
	}
}

// WithSearchEnabled overrides engine.search_enabled.
func WithSearchEnabled(enabled bool) Option {
	return func(e *Engine) error {
		e.searchEnabled = enabled
		return nil
	}
}

// WithPath sets the page path URLs are built on. The default is "/".
func WithPath(path string) Option {
	return func(e *Engine) error {
		e.path = path
		return nil
	}
}

package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/oakwood-commons/listx/internal/formatter"
	"github.com/oakwood-commons/listx/internal/limiter"
	"github.com/oakwood-commons/listx/pkg/engine"
	"github.com/oakwood-commons/listx/pkg/item"
)

// formatURL prints the canonical URL instead of the items.
const formatURL = "url"

// lastRender keeps only the most recent render so a one-shot run prints the
// final state once, after every flag has been applied.
type lastRender struct {
	mu      sync.Mutex
	results []item.Item
	err     error
	count   int
}

var _ engine.Renderer = (*lastRender)(nil)

func (r *lastRender) Render(results []item.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = results
	r.err = nil
	r.count++
}

func (r *lastRender) RenderError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
	r.err = err
	r.count++
}

func (r *lastRender) get() ([]item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results, r.err
}

// outputOptions selects how results are written.
type outputOptions struct {
	Format  string
	Columns []string
	NoColor bool
	Width   int
	Limit   limiter.Config
}

// writeResults renders the last results of r with the chosen formatter. A
// load failure writes the error placeholder and is returned.
func writeResults(w io.Writer, eng *engine.Engine, r *lastRender, opts outputOptions) error {
	results, loadErr := r.get()
	if opts.Format == formatURL {
		if loadErr != nil {
			return loadErr
		}
		_, err := fmt.Fprintln(w, eng.URL())
		return err
	}

	f, err := formatter.New(opts.Format, formatter.Options{
		Columns: opts.Columns,
		NoColor: opts.NoColor,
		Width:   opts.Width,
	})
	if err != nil {
		return err
	}
	if loadErr != nil {
		if _, err := io.WriteString(w, f.Error(loadErr)); err != nil {
			return err
		}
		return loadErr
	}

	out, err := f.Items(opts.Limit.Apply(results))
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.Format, err)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	if summary := opts.Limit.Summary(len(results)); summary != "" && isTextFormat(opts.Format) {
		_, err = fmt.Fprintln(w, summary)
	}
	return err
}

// isTextFormat reports whether a format is meant for people, so trailing
// notes do not corrupt machine-readable output.
func isTextFormat(format string) bool {
	return format == formatter.FormatTable || format == formatter.FormatList
}

// validOutput reports whether name is a formatter or the url pseudo-format.
func validOutput(name string) bool {
	if name == formatURL {
		return true
	}
	for _, n := range formatter.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Package engine wires the item store, field index, selection, predicate,
// debouncer and history into the list filter a page or terminal drives.
//
// Every user operation runs mutation, predicate, render and publish in that
// order under one lock. Navigation replaces the selection from the URL and
// re-renders without publishing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/listx/internal/cel"
	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/debounce"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/internal/index"
	"github.com/oakwood-commons/listx/internal/predicate"
	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/internal/urlstate"
	"github.com/oakwood-commons/listx/pkg/item"
	"github.com/oakwood-commons/listx/pkg/loader"
)

// DefaultPath is the page path used when none is configured.
const DefaultPath = "/"

// Renderer displays results. It is called with the engine lock held and must
// not call back into the engine.
type Renderer interface {
	Render(results []item.Item)
	RenderError(err error)
}

type discardRenderer struct{}

func (discardRenderer) Render([]item.Item) {}
func (discardRenderer) RenderError(error)  {}

// navigator is implemented by histories that can move between entries.
type navigator interface {
	Back() bool
	Forward() bool
}

// Engine is the orchestrator. Create it with New and call Start once.
type Engine struct {
	cfg           config.Config
	log           logr.Logger
	renderer      Renderer
	history       history.Channel
	source        loader.Source
	clock         debounce.Clock
	where         []*cel.Program
	extra         []predicate.Func
	searchEnabled bool
	path          string

	mu       sync.Mutex
	started  bool
	closed   bool
	loadErr  error
	store    *item.Store
	index    *index.Index
	state    *selection.State
	rec      *history.Reconciler
	match    predicate.Options
	preds    []predicate.Func
	results  []item.Item
	search   *debounce.Debouncer[string]
	unlisten func()

	hooksMu     sync.Mutex
	hooks       []func(selection.Snapshot)
	pendingSync *selection.Snapshot
}

// New validates cfg and applies opts.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	e := &Engine{
		cfg:           cfg,
		log:           logr.Discard(),
		renderer:      discardRenderer{},
		searchEnabled: cfg.Engine.IsSearchEnabled(),
		path:          DefaultPath,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.history == nil {
		e.history = history.NewMemory(e.path)
	}
	return e, nil
}

// Start loads the items, builds the index, seeds the selection from the
// current history entry and renders. A load failure is rendered once and
// returned as a *LoadError; the engine then refuses further work.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.loadErr != nil {
		return ErrFailed
	}
	if e.started {
		return nil
	}

	items, err := e.load(ctx)
	if err != nil {
		lerr := &LoadError{Source: e.describeSource(), Err: err}
		var status *loader.StatusError
		if errors.As(err, &status) {
			lerr.Status = status.StatusCode
		}
		e.loadErr = lerr
		e.log.Error(err, "failed to load items", "source", lerr.Source)
		e.renderer.RenderError(lerr)
		return lerr
	}

	e.store = item.NewStore(items)
	e.index = index.Build(e.store, e.cfg.Fields, e.cfg.Engine.DropdownThreshold)

	excludeEmpty := e.cfg.Engine.ExcludeEmpty()
	var fields []string
	keys := make(map[string]string)
	var defaults map[string][]string
	if excludeEmpty {
		defaults = make(map[string][]string)
	}
	for _, f := range e.index.Fields() {
		if f.Hidden() {
			continue
		}
		fields = append(fields, f.Name)
		keys[f.Name] = f.Key
		if excludeEmpty {
			defaults[f.Name] = f.Values()
		}
	}

	e.state = selection.New(fields, defaults)
	e.match = predicate.Options{
		SearchFields:   e.cfg.Engine.SearchFields,
		MinSearchChars: e.cfg.Engine.MinSearchChars,
		ExcludeEmpty:   excludeEmpty,
		Keys:           keys,
	}
	e.preds = append([]predicate.Func(nil), e.extra...)
	for _, prg := range e.where {
		e.preds = append(e.preds, prg.Predicate(e.log))
		for _, key := range prg.Keys() {
			if e.store.Len() > 0 && !e.store.HasKey(key) {
				e.log.Info("where expression reads a key no item has", "expr", prg.String(), "key", key)
			}
		}
	}
	e.rec = &history.Reconciler{
		Channel: e.history,
		Codec: urlstate.Codec{
			SearchParam:    e.cfg.Engine.SearchParam,
			MinSearchChars: e.cfg.Engine.MinSearchChars,
			Fields:         fields,
			Defaults:       defaults,
		},
		State:   e.state,
		Path:    e.path,
		Refresh: e.refreshLocked,
		Sync:    e.queueSync,
		Log:     e.log,
	}
	e.search = debounce.New(e.cfg.Engine.Debounce(), e.clock, e.applySearch)

	e.rec.Seed()
	e.refreshLocked()
	e.unlisten = e.history.Subscribe(e.onNavigate)
	e.started = true

	e.log.V(1).Info("engine started",
		"items", e.store.Len(),
		"fields", len(fields),
		"results", len(e.results),
		"url", e.history.Current())
	return nil
}

func (e *Engine) load(ctx context.Context) ([]item.Item, error) {
	if e.source == nil {
		return nil, errors.New("no data source configured")
	}
	return e.source.Load(ctx)
}

func (e *Engine) describeSource() string {
	if e.source == nil {
		return "<none>"
	}
	return loader.Describe(e.source)
}

// ready reports why the engine cannot serve operations. Callers hold mu.
func (e *Engine) ready() error {
	if e.closed {
		return ErrClosed
	}
	if e.loadErr != nil {
		return ErrFailed
	}
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// Toggle selects or deselects value for field.
func (e *Engine) Toggle(field, value string, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if !e.state.Known(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if e.state.Toggle(field, value, on) {
		e.commitLocked()
	}
	return nil
}

// ClearField deselects every value of field.
func (e *Engine) ClearField(field string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if !e.state.Known(field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if e.state.ClearField(field) {
		e.commitLocked()
	}
	return nil
}

// Search schedules q to be applied once typing pauses for the debounce delay.
// Only the last call in a burst is applied.
func (e *Engine) Search(q string) error {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.mu.Unlock()
		return err
	}
	search := e.search
	e.mu.Unlock()

	search.Call(q)
	return nil
}

// SearchNow cancels any pending search and applies q immediately.
func (e *Engine) SearchNow(q string) error {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.mu.Unlock()
		return err
	}
	search := e.search
	e.mu.Unlock()

	search.Now(q)
	return nil
}

// ClearSearch empties the search immediately.
func (e *Engine) ClearSearch() error {
	return e.SearchNow("")
}

// FlushSearch applies a pending search right away. It reports whether one was
// pending.
func (e *Engine) FlushSearch() bool {
	e.mu.Lock()
	search := e.search
	e.mu.Unlock()
	if search == nil {
		return false
	}
	return search.Flush()
}

func (e *Engine) applySearch(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready() != nil {
		return
	}
	if e.state.SetSearch(q) {
		e.commitLocked()
	}
}

// Clear resets every field and the search.
func (e *Engine) Clear() error {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.mu.Unlock()
		return err
	}
	search := e.search
	e.mu.Unlock()

	search.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	e.state.Reset()
	e.commitLocked()
	return nil
}

// Back navigates the history one entry back when the history supports it.
func (e *Engine) Back() bool {
	nav, ok := e.history.(navigator)
	if !ok {
		return false
	}
	return nav.Back()
}

// Forward navigates the history one entry forward when the history supports
// it.
func (e *Engine) Forward() bool {
	nav, ok := e.history.(navigator)
	if !ok {
		return false
	}
	return nav.Forward()
}

// commitLocked runs predicate, render and publish after a mutation.
func (e *Engine) commitLocked() {
	e.refreshLocked()
	e.rec.Changed()
}

// refreshLocked recomputes the results and renders them.
func (e *Engine) refreshLocked() {
	snap := e.state.Snapshot()
	var terms []string
	if e.searchEnabled {
		terms = predicate.ParseQuery(snap.Search, e.match.MinSearchChars)
	}

	candidates := e.index.Candidates(snap.Filters, e.match.ExcludeEmpty)
	results := make([]item.Item, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		row := e.store.At(int(it.Next()))
		if e.match.Match(row, nil, terms, e.preds...) {
			results = append(results, row)
		}
	}
	e.results = results
	e.renderer.Render(results)
}

func (e *Engine) queueSync(s selection.Snapshot) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.pendingSync = &s
}

// dispatchSync runs the sync hooks for a navigation outside the engine lock so
// hooks may query the engine.
func (e *Engine) dispatchSync() {
	e.hooksMu.Lock()
	snap := e.pendingSync
	e.pendingSync = nil
	hooks := slices.Clone(e.hooks)
	e.hooksMu.Unlock()
	if snap == nil {
		return
	}
	for _, fn := range hooks {
		fn(snap.Clone())
	}
}

// OnSync registers fn to mirror the selection after history navigation.
func (e *Engine) OnSync(fn func(selection.Snapshot)) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Navigated applies url as if the history had navigated to it. Histories that
// deliver navigation through Subscribe do not need this.
func (e *Engine) Navigated(url string) error {
	e.mu.Lock()
	err := e.ready()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.onNavigate(url)
	return nil
}

// onNavigate replaces the selection from url, re-renders without publishing
// and then mirrors the new state into the sync hooks.
func (e *Engine) onNavigate(url string) {
	e.search.Stop()

	e.mu.Lock()
	e.rec.Navigated(url)
	e.mu.Unlock()

	e.dispatchSync()
}

// Close stops listening to history and drops any pending search.
func (e *Engine) Close() {
	e.mu.Lock()
	unlisten, search := e.unlisten, e.search
	e.unlisten = nil
	e.closed = true
	e.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	if search != nil {
		search.Stop()
	}
}

// Err returns the *LoadError recorded by a failed Start, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// Results returns the current results in store order.
func (e *Engine) Results() []item.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]item.Item(nil), e.results...)
}

// Snapshot returns a copy of the current selection.
func (e *Engine) Snapshot() selection.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return selection.Snapshot{Filters: map[string]*selection.Set{}}
	}
	return e.state.Snapshot()
}

// URL returns the URL encoding the current selection.
func (e *Engine) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return e.path
	}
	return e.rec.URL()
}

// Query returns the query string encoding the current selection, without "?".
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return ""
	}
	return urlstate.Query(e.rec.Codec, e.state.Snapshot())
}

// Index returns the field index, or nil before Start.
func (e *Engine) Index() *index.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Len returns the number of loaded items.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Len()
}

// SearchEnabled reports whether search text constrains results.
func (e *Engine) SearchEnabled() bool {
	return e.searchEnabled
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/debounce"
	"github.com/oakwood-commons/listx/internal/history"
	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/item"
	"github.com/oakwood-commons/listx/pkg/loader"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type captureRenderer struct {
	mu      sync.Mutex
	renders [][]item.Item
	errs    []error
}

func (r *captureRenderer) Render(results []item.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, results)
}

func (r *captureRenderer) RenderError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *captureRenderer) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		return nil
	}
	return titles(r.renders[len(r.renders)-1])
}

func (r *captureRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.at.After(c.now) {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

func titles(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = item.String(it, "title")
	}
	return out
}

func papers() []item.Item {
	return []item.Item{
		{"title": "Deep Learning", "status": "Published", "subject": []any{"ML"}, "authors": "Ada"},
		{"title": "Graph Theory", "status": "Draft", "subject": []any{"Math"}, "authors": "Grace"},
		{"title": "Deep Graphs", "status": "Published", "subject": []any{"ML", "Math", "Networks"}},
	}
}

type harness struct {
	eng     *Engine
	hist    *history.Memory
	render  *captureRenderer
	clock   *fakeClock
	initial string
}

func newHarness(t *testing.T, initial string, mutate func(*config.Config), opts ...Option) *harness {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		hist:    history.NewMemory(initial),
		render:  &captureRenderer{},
		clock:   &fakeClock{now: time.Unix(0, 0)},
		initial: initial,
	}
	all := append([]Option{
		WithSource(loader.StaticSource(papers())),
		WithHistory(h.hist),
		WithRenderer(h.render),
		WithClock(h.clock),
		WithPath("/papers"),
	}, opts...)
	h.eng, err = New(cfg, all...)
	require.NoError(t, err)
	require.NoError(t, h.eng.Start(context.Background()))
	t.Cleanup(h.eng.Close)
	return h
}

func TestStartRendersWithoutPublishing(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	assert.Equal(t, []string{"Deep Learning", "Graph Theory", "Deep Graphs"}, h.render.last())
	assert.Equal(t, 1, h.render.count())
	assert.Equal(t, 1, h.hist.Len())
	assert.Equal(t, 3, h.eng.Len())
}

func TestScenarioSearch(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.SearchNow("deep"))
	assert.Equal(t, []string{"Deep Learning", "Deep Graphs"}, h.render.last())
	assert.Equal(t, "/papers?q=deep", h.hist.Current())
}

func TestScenarioSingleFilter(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.Toggle("status", "Published", true))
	assert.Equal(t, []string{"Deep Learning", "Deep Graphs"}, h.render.last())
	assert.Equal(t, "/papers?status=published", h.hist.Current())
}

func TestScenarioWholeDomainKeepsOrder(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.Toggle("status", "published", true))
	require.NoError(t, h.eng.Toggle("status", "draft", true))
	assert.Equal(t, []string{"Deep Learning", "Graph Theory", "Deep Graphs"}, h.render.last())
	assert.Equal(t, "/papers?status=published%2Cdraft", h.hist.Current())
}

func TestScenarioRoundTripFromURL(t *testing.T) {
	h := newHarness(t, "/papers?status=published,draft&q=graph", nil)
	assert.Equal(t, []string{"Graph Theory", "Deep Graphs"}, h.render.last())
	snap := h.eng.Snapshot()
	assert.Equal(t, "graph", snap.Search)
	assert.True(t, snap.Selected("status").Equal(selection.NewSet("draft", "published")))
	assert.Equal(t, "q=graph&status=published%2Cdraft", h.eng.Query())
}

func TestScenarioShortQueryIgnored(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.SearchNow("de"))
	assert.Len(t, h.render.last(), 3)
	assert.Equal(t, "/papers", h.hist.Current())
	assert.Equal(t, "de", h.eng.Snapshot().Search)
}

func TestScenarioBackToBareURL(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	var synced []selection.Snapshot
	h.eng.OnSync(func(s selection.Snapshot) {
		// Hooks run outside the engine lock.
		_ = h.eng.Controls()
		synced = append(synced, s)
	})

	require.NoError(t, h.eng.Toggle("status", "published", true))
	require.NoError(t, h.eng.SearchNow("deep"))
	require.Equal(t, 3, h.hist.Len())
	renders := h.render.count()

	require.True(t, h.eng.Back())
	require.True(t, h.eng.Back())

	assert.Equal(t, "/papers", h.hist.Current())
	assert.Equal(t, 3, h.hist.Len(), "navigation must not push")
	assert.Equal(t, []string{"Deep Learning", "Graph Theory", "Deep Graphs"}, h.render.last())
	assert.Equal(t, renders+2, h.render.count())
	snap := h.eng.Snapshot()
	assert.Equal(t, "", snap.Search)
	assert.Equal(t, 0, snap.Selected("status").Len())
	require.Len(t, synced, 2)
	assert.Equal(t, "", synced[1].Search)

	require.True(t, h.eng.Forward())
	assert.Equal(t, []string{"Deep Learning", "Deep Graphs"}, h.render.last())
}

func TestSearchIsDebounced(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	renders := h.render.count()
	for _, q := range []string{"g", "gr", "gra", "grap", "graph"} {
		require.NoError(t, h.eng.Search(q))
		h.clock.Advance(50 * time.Millisecond)
	}
	assert.Equal(t, renders, h.render.count())

	h.clock.Advance(200 * time.Millisecond)
	assert.Equal(t, renders+1, h.render.count())
	assert.Equal(t, []string{"Graph Theory", "Deep Graphs"}, h.render.last())
	assert.Equal(t, 2, h.hist.Len())
}

func TestClearSearchCancelsPending(t *testing.T) {
	h := newHarness(t, "/papers?q=deep", nil)
	require.NoError(t, h.eng.Search("graph"))
	require.NoError(t, h.eng.ClearSearch())
	h.clock.Advance(time.Second)

	assert.Equal(t, "", h.eng.Snapshot().Search)
	assert.Len(t, h.render.last(), 3)
	assert.Equal(t, "/papers", h.hist.Current())
}

func TestFlushSearch(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	assert.False(t, h.eng.FlushSearch())
	require.NoError(t, h.eng.Search("theory"))
	assert.True(t, h.eng.FlushSearch())
	assert.Equal(t, []string{"Graph Theory"}, h.render.last())
}

func TestClearResetsEverything(t *testing.T) {
	h := newHarness(t, "/papers?status=draft&q=graph", nil)
	require.NoError(t, h.eng.Clear())
	assert.Len(t, h.render.last(), 3)
	assert.Equal(t, "/papers", h.hist.Current())
}

func TestToggleErrors(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	err := h.eng.Toggle("colour", "red", true)
	require.ErrorIs(t, err, ErrUnknownField)
	require.ErrorIs(t, h.eng.ClearField("colour"), ErrUnknownField)

	cfg, err := config.Default()
	require.NoError(t, err)
	eng, err := New(cfg)
	require.NoError(t, err)
	require.ErrorIs(t, eng.Toggle("status", "draft", true), ErrNotStarted)
	require.ErrorIs(t, eng.Search("x"), ErrNotStarted)
}

func TestLoadFailureRendersErrorOnce(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	render := &captureRenderer{}
	boom := errors.New("connection refused")
	eng, err := New(cfg,
		WithRenderer(render),
		WithSource(loader.SourceFunc(func(context.Context) ([]item.Item, error) { return nil, boom })),
	)
	require.NoError(t, err)

	err = eng.Start(context.Background())
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	require.ErrorIs(t, err, ErrLoadFailure)
	require.ErrorIs(t, err, boom)
	assert.Len(t, render.errs, 1)
	assert.Equal(t, 0, render.count())

	require.ErrorIs(t, eng.Start(context.Background()), ErrFailed)
	require.ErrorIs(t, eng.Toggle("status", "draft", true), ErrFailed)
	assert.Len(t, render.errs, 1)
	assert.Same(t, lerr, eng.Err())
	eng.Close()
}

func TestNoOpOperationsDoNotPushHistory(t *testing.T) {
	const initial = "/papers?status=published,draft&q=graph"
	h := newHarness(t, initial, nil)
	renders := h.render.count()

	require.NoError(t, h.eng.SearchNow("graph"))
	require.NoError(t, h.eng.Toggle("status", "published", true))
	require.NoError(t, h.eng.Toggle("subject", "ml", false))
	require.NoError(t, h.eng.ClearField("subject"))
	assert.Equal(t, 1, h.hist.Len())
	assert.Equal(t, initial, h.hist.Current())
	assert.Equal(t, renders, h.render.count(), "unchanged state is not rendered again")

	// A keystroke typed and deleted within the debounce window.
	require.NoError(t, h.eng.Search("graphs"))
	require.NoError(t, h.eng.Search("graph"))
	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.hist.Len())

	require.NoError(t, h.eng.Clear())
	assert.Equal(t, 2, h.hist.Len())
	assert.True(t, h.eng.Back())
	assert.Equal(t, "graph", h.eng.Snapshot().Search)
	assert.True(t, h.eng.Snapshot().Selected("status").Has("draft"))
}

func TestOperationsAfterClose(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.Search("graph"))
	h.eng.Close()
	h.clock.Advance(time.Second)

	assert.Equal(t, 1, h.hist.Len(), "a search pending at Close is dropped")
	require.ErrorIs(t, h.eng.Search("deep"), ErrClosed)
	require.ErrorIs(t, h.eng.Toggle("status", "draft", true), ErrClosed)
	require.ErrorIs(t, h.eng.Navigated("/papers?status=draft"), ErrClosed)
	require.ErrorIs(t, h.eng.Start(context.Background()), ErrClosed)
	assert.Equal(t, "", h.eng.Snapshot().Search)
}

func TestLoadFailureRecordsHTTPStatus(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	eng, err := New(cfg, WithSource(loader.SourceFunc(func(context.Context) ([]item.Item, error) {
		return nil, &loader.StatusError{URL: "http://x", StatusCode: 503, Status: "503 Service Unavailable"}
	})))
	require.NoError(t, err)
	var lerr *LoadError
	require.ErrorAs(t, eng.Start(context.Background()), &lerr)
	assert.Equal(t, 503, lerr.Status)
}

func TestControls(t *testing.T) {
	h := newHarness(t, "/papers?subject=ml,math", nil)
	controls := h.eng.Controls()
	require.Len(t, controls, 2, "tags has no values and stays hidden")

	status := controls[0]
	assert.Equal(t, "status", status.Field)
	assert.Equal(t, config.ControlToggle, status.Kind)
	assert.Equal(t, "Status", status.Title())
	require.Len(t, status.Options, 2)
	assert.Equal(t, "Draft", status.Options[0].Display)
	assert.Equal(t, 2, status.Options[1].Count)

	subject := controls[1]
	assert.Equal(t, config.ControlMultiSelect, subject.Kind)
	assert.Equal(t, "Subject (2)", subject.Title())
	var selected []string
	for _, o := range subject.Options {
		if o.Selected {
			selected = append(selected, o.Value)
		}
	}
	assert.Equal(t, []string{"math", "ml"}, selected)
}

func TestWhereExpression(t *testing.T) {
	h := newHarness(t, "/papers", nil, WithWhere(`item.authors == "Ada"`))
	assert.Equal(t, []string{"Deep Learning"}, h.render.last())

	cfg, err := config.Default()
	require.NoError(t, err)
	_, err = New(cfg, WithWhere(`item.authors ==`))
	require.Error(t, err)
}

func TestWhereWarnsAboutMissingKeys(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{})

	newHarness(t, "/papers", nil, WithLogger(log), WithWhere(`item.autors == "Ada" || item.title != ""`))

	mu.Lock()
	defer mu.Unlock()
	var warned []string
	for _, l := range lines {
		if strings.Contains(l, "where expression reads a key no item has") {
			warned = append(warned, l)
		}
	}
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], `"key"="autors"`)
}

func TestSearchDisabled(t *testing.T) {
	h := newHarness(t, "/papers?q=graph", nil, WithSearchEnabled(false))
	assert.Len(t, h.render.last(), 3)
	assert.False(t, h.eng.SearchEnabled())
}

func TestExcludeEmptyPolicy(t *testing.T) {
	h := newHarness(t, "/papers", func(c *config.Config) {
		c.Engine.EmptySelection = config.EmptyExclude
	})
	// Every value starts selected.
	assert.Len(t, h.render.last(), 3)
	assert.Equal(t, "/papers", h.eng.URL())

	require.NoError(t, h.eng.Toggle("status", "draft", false))
	assert.Equal(t, []string{"Deep Learning", "Deep Graphs"}, h.render.last())
	assert.Equal(t, "/papers?status=published", h.hist.Current())

	require.NoError(t, h.eng.Toggle("status", "published", false))
	assert.Empty(t, h.render.last())
	assert.Equal(t, "/papers?status=", h.hist.Current())

	require.True(t, h.eng.Back())
	assert.Len(t, h.render.last(), 2)
	require.True(t, h.eng.Back())
	assert.Len(t, h.render.last(), 3)
}

func TestNavigatedWithForeignHistory(t *testing.T) {
	h := newHarness(t, "/papers", nil)
	require.NoError(t, h.eng.Navigated("/papers?status=draft"))
	assert.Equal(t, []string{"Graph Theory"}, h.render.last())
	assert.Equal(t, 1, h.hist.Len())
}

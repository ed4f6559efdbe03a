package history

import (
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/internal/urlstate"
)

// Reconciler keeps a selection and a history channel consistent.
//
// User changes flow state -> URL through Changed. Navigation flows URL ->
// state through Navigated, which refreshes without publishing so the entry the
// user moved to is not pushed again.
type Reconciler struct {
	Channel Channel
	Codec   urlstate.Codec
	State   *selection.State
	// Path is the page path URLs are built on.
	Path string
	// Refresh re-runs filtering and rendering.
	Refresh func()
	// Sync lets UI widgets mirror the state after navigation (search box,
	// per-field counts). Optional.
	Sync func(selection.Snapshot)
	Log  logr.Logger
}

// URL returns the URL encoding the current state.
func (r *Reconciler) URL() string {
	return urlstate.Encode(r.Codec, r.Path, r.State.Snapshot())
}

// Changed publishes the current state unless the current entry already
// encodes it. It reports whether a new history entry was pushed.
func (r *Reconciler) Changed() bool {
	if r.canonical(r.Channel.Current()).Equal(r.canonical("?" + urlstate.Query(r.Codec, r.State.Snapshot()))) {
		return false
	}
	url := r.URL()
	pushed := r.Channel.Publish(url)
	if pushed {
		r.Log.V(1).Info("history entry pushed", "url", url)
	}
	return pushed
}

// canonical decodes raw the way load does and passes the result through the
// codec once more, so raw commas, parameter order, the path and a search too
// short to encode do not make two equal selections differ.
func (r *Reconciler) canonical(raw string) selection.Snapshot {
	decode := func(raw string) selection.Snapshot {
		st := selection.New(r.State.Fields(), r.Codec.Defaults)
		st.Replace(urlstate.Decode(r.Codec, raw, st.Fields()))
		return st.Snapshot()
	}
	return decode("?" + urlstate.Query(r.Codec, decode(raw)))
}

// Seed loads the state from the current entry without publishing. It is used
// on initial load, where the entry already exists.
func (r *Reconciler) Seed() {
	r.load(r.Channel.Current())
}

// Navigated replaces the state from url, mirrors it into the UI and refreshes
// without publishing.
func (r *Reconciler) Navigated(url string) {
	r.load(url)
	r.Log.V(1).Info("history navigation", "url", url)
	if r.Sync != nil {
		r.Sync(r.State.Snapshot())
	}
	if r.Refresh != nil {
		r.Refresh()
	}
}

func (r *Reconciler) load(url string) {
	snap := urlstate.Decode(r.Codec, url, r.State.Fields())
	r.State.Replace(snap)
}

package predicate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/index"
	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/item"
)

var defaultOpts = Options{
	SearchFields:   []string{"title", "authors", "journal", "desc", "content"},
	MinSearchChars: 3,
}

func scenarioItems() []item.Item {
	return []item.Item{
		{"title": "Deep Learning", "status": "Published"},
		{"title": "Graph Theory", "status": "Draft"},
	}
}

func filters(kv ...any) map[string]*selection.Set {
	out := map[string]*selection.Set{}
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1].(*selection.Set)
	}
	return out
}

func TestParseQuery(t *testing.T) {
	assert.Nil(t, ParseQuery("", 3))
	assert.Nil(t, ParseQuery("  de  ", 3))
	assert.Equal(t, []string{"deep"}, ParseQuery(" Deep ", 3))
	assert.Equal(t, []string{"deep", "graph"}, ParseQuery("deep \t Graph", 3))
	assert.Equal(t, []string{"ab"}, ParseQuery("ab", 0))
}

func TestScenarios(t *testing.T) {
	items := scenarioItems()

	t.Run("A search only", func(t *testing.T) {
		got := defaultOpts.Filter(items, selection.Snapshot{Search: "deep"}, true)
		require.Len(t, got, 1)
		assert.Equal(t, "Deep Learning", got[0]["title"])
	})

	t.Run("B single status", func(t *testing.T) {
		snap := selection.Snapshot{Filters: filters("status", selection.NewSet("published"))}
		got := defaultOpts.Filter(items, snap, true)
		require.Len(t, got, 1)
		assert.Equal(t, "Deep Learning", got[0]["title"])
	})

	t.Run("C both statuses keep order", func(t *testing.T) {
		snap := selection.Snapshot{Filters: filters("status", selection.NewSet("draft", "published"))}
		got := defaultOpts.Filter(items, snap, true)
		assert.Equal(t, items, got)
	})

	t.Run("E short query is no constraint", func(t *testing.T) {
		got := defaultOpts.Filter(items, selection.Snapshot{Search: "gr"}, true)
		assert.Equal(t, items, got)
	})

	t.Run("search disabled skips query", func(t *testing.T) {
		got := defaultOpts.Filter(items, selection.Snapshot{Search: "nothing matches this"}, false)
		assert.Equal(t, items, got)
	})
}

func TestMatchesFilters(t *testing.T) {
	it := item.Item{"status": "Published", "subject": []any{"Math", "CS"}, "empty": []any{}}

	tests := []struct {
		name    string
		filters map[string]*selection.Set
		exclude bool
		want    bool
	}{
		{"no filters", nil, false, true},
		{"empty set ignored", filters("status", selection.NewSet()), false, true},
		{"empty set excludes", filters("status", selection.NewSet()), true, false},
		{"scalar exact", filters("status", selection.NewSet("published")), false, true},
		{"scalar no substring", filters("status", selection.NewSet("pub")), false, false},
		{"array any", filters("subject", selection.NewSet("cs", "bio")), false, true},
		{"array none", filters("subject", selection.NewSet("bio")), false, false},
		{"missing field fails", filters("journal", selection.NewSet("nature")), false, false},
		{"empty array fails", filters("empty", selection.NewSet("x")), false, false},
		{"and across fields", filters("status", selection.NewSet("published"), "subject", selection.NewSet("bio")), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOpts
			o.ExcludeEmpty = tt.exclude
			assert.Equal(t, tt.want, o.MatchesFilters(it, tt.filters))
		})
	}
}

func TestMatchesFiltersUsesSourceKeys(t *testing.T) {
	o := defaultOpts
	o.Keys = map[string]string{"topic": "subject"}
	it := item.Item{"subject": "Math"}
	assert.True(t, o.MatchesFilters(it, filters("topic", selection.NewSet("math"))))
}

func TestMatchesSearch(t *testing.T) {
	it := item.Item{
		"title":   "Deep Learning",
		"authors": []any{"Ada Lovelace", "Alan Turing"},
		"desc":    "A survey",
		"status":  "Published",
	}
	assert.True(t, defaultOpts.MatchesSearch(it, nil))
	assert.True(t, defaultOpts.MatchesSearch(it, []string{"deep", "turing"}), "terms may match different fields")
	assert.True(t, defaultOpts.MatchesSearch(it, []string{"earn"}), "substring match")
	assert.False(t, defaultOpts.MatchesSearch(it, []string{"deep", "graph"}), "every term must match")
	assert.False(t, defaultOpts.MatchesSearch(it, []string{"published"}), "status is not searched")
	assert.False(t, defaultOpts.MatchesSearch(item.Item{}, []string{"x"}))
}

func TestExtraPredicates(t *testing.T) {
	items := scenarioItems()
	onlyDraft := func(it item.Item) bool { return it["status"] == "Draft" }
	got := defaultOpts.Filter(items, selection.Snapshot{}, true, nil, onlyDraft)
	require.Len(t, got, 1)
	assert.Equal(t, "Graph Theory", got[0]["title"])
}

func TestEmptySelectionLaw(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(7)), 200)
	for _, it := range items {
		base := defaultOpts.MatchesFilters(it, filters("status", selection.NewSet("a")))
		with := defaultOpts.MatchesFilters(it, filters("status", selection.NewSet("a"), "subject", selection.NewSet()))
		assert.Equal(t, base, with)
	}
}

func TestConjunctionLaw(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(11)), 200)
	status := selection.NewSet("a", "b")
	subject := selection.NewSet("x")
	for _, it := range items {
		both := defaultOpts.MatchesFilters(it, filters("status", status, "subject", subject))
		each := defaultOpts.MatchesFilters(it, filters("status", status)) && defaultOpts.MatchesFilters(it, filters("subject", subject))
		assert.Equal(t, each, both)
	}
}

func TestFilterIsDeterministic(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(3)), 100)
	snap := selection.Snapshot{Search: "alpha", Filters: filters("status", selection.NewSet("a", "c"))}
	first := defaultOpts.Filter(items, snap, true)
	second := defaultOpts.Filter(items, snap, true)
	assert.Equal(t, first, second)
}

func TestIndexCandidatesAgreeWithPredicate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := randomItems(rng, 300)
	idx := index.Build(item.NewStore(items), []config.Field{{Name: "status"}, {Name: "subject"}}, 2)
	values := []string{"a", "b", "c", "x", "y", "z"}

	for round := 0; round < 50; round++ {
		sel := map[string]*selection.Set{"status": selection.NewSet(), "subject": selection.NewSet()}
		for _, v := range values {
			if rng.Intn(3) == 0 {
				sel["status"].Add(v)
			}
			if rng.Intn(3) == 0 {
				sel["subject"].Add(v)
			}
		}
		for _, exclude := range []bool{false, true} {
			o := defaultOpts
			o.ExcludeEmpty = exclude
			cand := idx.Candidates(sel, exclude)
			for pos, it := range items {
				assert.Equal(t, o.MatchesFilters(it, sel), cand.Contains(uint32(pos)), "round %d item %d", round, pos)
			}
		}
	}
}

func randomItems(rng *rand.Rand, n int) []item.Item {
	statuses := []any{"A", "b", "C", "", nil}
	subjects := []string{"x", "Y", "z", ""}
	words := []string{"alpha", "beta", "gamma"}
	out := make([]item.Item, n)
	for i := range out {
		it := item.Item{"title": words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]}
		if s := statuses[rng.Intn(len(statuses))]; s != nil {
			it["status"] = s
		}
		if rng.Intn(4) > 0 {
			var subj []any
			for j := rng.Intn(3); j > 0; j-- {
				subj = append(subj, subjects[rng.Intn(len(subjects))])
			}
			it["subject"] = subj
		}
		out[i] = it
	}
	return out
}

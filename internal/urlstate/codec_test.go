package urlstate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/listx/internal/selection"
)

var fields = []string{"status", "subject"}

func testCodec() Codec {
	return Codec{SearchParam: "q", MinSearchChars: 3, Fields: fields}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantSearch string
		want       map[string][]string
	}{
		{name: "empty", raw: "", want: map[string][]string{}},
		{name: "bare path", raw: "/posts", want: map[string][]string{}},
		{
			name:       "query with leading question mark",
			raw:        "?status=Published,draft&q=graph",
			wantSearch: "graph",
			want:       map[string][]string{"status": {"published", "draft"}},
		},
		{
			name: "full url",
			raw:  "https://example.org/posts/?subject=Math%2CCS#top",
			want: map[string][]string{"subject": {"math", "cs"}},
		},
		{
			name: "bare query",
			raw:  "status=draft",
			want: map[string][]string{"status": {"draft"}},
		},
		{
			name: "unknown parameters ignored",
			raw:  "?color=red&status=draft",
			want: map[string][]string{"status": {"draft"}},
		},
		{
			name: "empty tokens dropped",
			raw:  "?status=,draft,,",
			want: map[string][]string{"status": {"draft"}},
		},
		{
			name: "repeated parameter accumulates",
			raw:  "?status=draft&status=published,draft",
			want: map[string][]string{"status": {"draft", "published"}},
		},
		{
			name: "present without value",
			raw:  "?status=",
			want: map[string][]string{"status": nil},
		},
		{
			name:       "search kept verbatim",
			raw:        "?q=Deep+Learning",
			wantSearch: "Deep Learning",
			want:       map[string][]string{},
		},
		{
			name: "malformed escapes are skipped",
			raw:  "?status=%zz&subject=math",
			want: map[string][]string{"subject": {"math"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Decode(testCodec(), tt.raw, fields)
			assert.Equal(t, tt.wantSearch, snap.Search)
			got := map[string][]string{}
			for k, v := range snap.Filters {
				got[k] = v.Values()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	c := testCodec()

	t.Run("nothing selected gives bare path", func(t *testing.T) {
		snap := selection.Snapshot{Search: "ab", Filters: map[string]*selection.Set{"status": selection.NewSet()}}
		assert.Equal(t, "/posts/", Encode(c, "/posts/", snap))
	})

	t.Run("search first then fields in declared order", func(t *testing.T) {
		snap := selection.Snapshot{
			Search: "  deep learning ",
			Filters: map[string]*selection.Set{
				"subject": selection.NewSet("math"),
				"status":  selection.NewSet("published", "draft"),
			},
		}
		assert.Equal(t, "/p?q=deep+learning&status=published%2Cdraft&subject=math", Encode(c, "/p", snap))
	})

	t.Run("short search omitted", func(t *testing.T) {
		snap := selection.Snapshot{Search: "de", Filters: map[string]*selection.Set{"status": selection.NewSet("draft")}}
		assert.Equal(t, "status=draft", Query(c, snap))
	})

	t.Run("minimum counts runes", func(t *testing.T) {
		snap := selection.Snapshot{Search: "äöü"}
		assert.Equal(t, "q=%C3%A4%C3%B6%C3%BC", Query(c, snap))
	})

	t.Run("default search parameter", func(t *testing.T) {
		snap := selection.Snapshot{Search: "graph"}
		assert.Equal(t, "q=graph", Query(Codec{MinSearchChars: 3}, snap))
	})
}

func TestEncodeWithDefaults(t *testing.T) {
	c := testCodec()
	c.Defaults = map[string][]string{"status": {"published", "draft"}}

	full := selection.Snapshot{Filters: map[string]*selection.Set{"status": selection.NewSet("draft", "published")}}
	assert.Equal(t, "", Query(c, full))

	empty := selection.Snapshot{Filters: map[string]*selection.Set{"status": selection.NewSet()}}
	assert.Equal(t, "status=", Query(c, empty))

	decoded := Decode(c, "?"+Query(c, empty), fields)
	require.Contains(t, decoded.Filters, "status")
	assert.Equal(t, 0, decoded.Filters["status"].Len())
}

func TestRoundTrip(t *testing.T) {
	c := testCodec()
	states := []selection.Snapshot{
		{Filters: map[string]*selection.Set{}},
		{Search: "graph", Filters: map[string]*selection.Set{"status": selection.NewSet("published", "draft")}},
		{Search: "deep  nets", Filters: map[string]*selection.Set{"subject": selection.NewSet("machine learning", "c++")}},
		{Filters: map[string]*selection.Set{"status": selection.NewSet("a&b", "x=y")}},
	}
	for _, s := range states {
		got := Decode(c, Encode(c, "/posts", s), fields)
		assert.True(t, s.Equal(got), "round trip of %+v gave %+v", s, got)
	}
}

func TestScenarioDReencode(t *testing.T) {
	c := testCodec()
	first := Decode(c, "?status=published,draft&q=graph", fields)
	again := Query(c, first)

	parsed, err := url.ParseQuery(again)
	require.NoError(t, err)
	assert.Equal(t, "graph", parsed.Get("q"))
	assert.ElementsMatch(t, []string{"published", "draft"}, selection.NewSet(splitComma(parsed.Get("status"))...).Values())
	assert.True(t, first.Equal(Decode(c, again, fields)))
}

func TestDecodeDoesNotAlias(t *testing.T) {
	c := testCodec()
	a := Decode(c, "?status=draft", fields)
	b := Decode(c, "?status=draft", fields)
	a.Filters["status"].Add("published")
	assert.Equal(t, 1, b.Filters["status"].Len())
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/listx/pkg/item"
)

func titles(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = item.String(it, "title")
	}
	return out
}

func TestLoadItemsFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "json array",
			input: `[{"title": "a"}, {"title": "b"}]`,
			want:  []string{"a", "b"},
		},
		{
			name: "pretty json array",
			input: `[
  {"title": "a"},
  {"title": "b"}
]`,
			want: []string{"a", "b"},
		},
		{
			name:  "json object with items",
			input: `{"items": [{"title": "a"}], "total": 1}`,
			want:  []string{"a"},
		},
		{
			name:  "single json object",
			input: `{"title": "solo"}`,
			want:  []string{"solo"},
		},
		{
			name:  "ndjson",
			input: "{\"title\": \"a\"}\n\n{\"title\": \"b\"}\r\n{\"title\": \"c\"}",
			want:  []string{"a", "b", "c"},
		},
		{
			name: "yaml list",
			input: `- title: a
  status: published
- title: b`,
			want: []string{"a", "b"},
		},
		{
			name: "multi-document yaml",
			input: `title: a
---
title: b
---
items:
  - title: c`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "toml items",
			input: `[[items]]
title = "a"

[[items]]
title = "b"`,
			want: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadItems([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestLoadItemsNormalizesScalars(t *testing.T) {
	got, err := LoadItems([]byte(`- title: a
  year: 2021
  published: 2024-03-01
  tags: [ml, cv]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"2021"}, item.Text(got[0], "year"))
	assert.Equal(t, "2024-03-01", item.String(got[0], "published"))
	assert.Equal(t, []string{"ml", "cv"}, item.Values(got[0], "tags"))

	got, err = LoadItems([]byte(`[[items]]
title = "t"
count = 3
day = 2024-03-01`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, float64(3), got[0]["count"])
	assert.Equal(t, "2024-03-01", item.String(got[0], "day"))
}

func TestLoadItemsRejectsNonObjects(t *testing.T) {
	_, err := LoadItems([]byte(`[1, 2, 3]`))
	require.ErrorIs(t, err, ErrNotItem)

	_, err = LoadItems([]byte(`just a string`))
	require.ErrorIs(t, err, ErrNotItem)

	_, err = LoadItems([]byte("   "))
	require.Error(t, err)

	_, err = LoadItems([]byte("{\"title\": \"a\"}\n{broken}"))
	require.Error(t, err)
}

func TestIsLikelyTOML(t *testing.T) {
	assert.True(t, isLikelyTOML(strings.Split("[server]\nport = 80", "\n")))
	assert.True(t, isLikelyTOML(strings.Split("a = 1\nb = \"x\"", "\n")))
	assert.False(t, isLikelyTOML(strings.Split("[1, 2, 3]", "\n")))
	assert.False(t, isLikelyTOML(strings.Split("title: a\nstatus: b", "\n")))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title": "a"}]`), 0o600))

	got, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(got))

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReaderSource(t *testing.T) {
	src := SourceFor("-", strings.NewReader(`{"title": "piped"}`))
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"piped"}, titles(got))
	assert.Equal(t, "stdin", Describe(src))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/papers.json":
			_, _ = w.Write([]byte(`[{"title": "remote"}]`))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := SourceFor(srv.URL+"/papers.json", nil)
	require.IsType(t, HTTPSource{}, src)
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"remote"}, titles(got))

	_, err = HTTPSource{URL: srv.URL + "/missing"}.Load(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestSourceForPath(t *testing.T) {
	src := SourceFor("data/papers.yaml", nil)
	assert.Equal(t, FileSource{Path: "data/papers.yaml"}, src)
	assert.Equal(t, "data/papers.yaml", Describe(src))
	assert.Equal(t, "loader.SourceFunc", Describe(SourceFunc(nil)))
}

func TestStaticSourceCopies(t *testing.T) {
	src := StaticSource{{"title": "a"}}
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	got[0] = item.Item{"title": "changed"}
	assert.Equal(t, "a", item.String(src[0], "title"))
}

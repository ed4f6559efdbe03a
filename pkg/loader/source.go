package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oakwood-commons/listx/pkg/item"
)

// DefaultHTTPTimeout bounds a single HTTP fetch when the client has none.
const DefaultHTTPTimeout = 30 * time.Second

// Source supplies the item collection once per engine start.
type Source interface {
	Load(ctx context.Context) ([]item.Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]item.Item, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) ([]item.Item, error) {
	return f(ctx)
}

// StaticSource serves a fixed collection.
type StaticSource []item.Item

// Load returns a copy of the collection.
func (s StaticSource) Load(context.Context) ([]item.Item, error) {
	return append([]item.Item(nil), s...), nil
}

// FileSource reads items from a file.
type FileSource struct {
	Path string
}

// Load reads and parses the file.
func (s FileSource) Load(ctx context.Context) ([]item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	items, err := LoadItems(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return items, nil
}

// String returns the file path.
func (s FileSource) String() string {
	return s.Path
}

// ReaderSource reads items from a stream such as stdin. It can be loaded once.
type ReaderSource struct {
	Reader io.Reader
	Name   string
}

// Load reads the stream to the end and parses it.
func (s ReaderSource) Load(ctx context.Context) ([]item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadReader(s.Reader)
}

// String returns the stream name.
func (s ReaderSource) String() string {
	if s.Name == "" {
		return "stdin"
	}
	return s.Name
}

// HTTPSource fetches items with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Load fetches and parses the response body. Any non-2xx status is an error.
func (s HTTPSource) Load(ctx context.Context) ([]item.Item, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/toml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: s.URL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	items, err := LoadReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.URL, err)
	}
	return items, nil
}

// String returns the URL.
func (s HTTPSource) String() string {
	return s.URL
}

// SourceFor picks a source for a CLI argument: "-" reads stdin, http(s) URLs
// are fetched and anything else is a file path.
func SourceFor(arg string, stdin io.Reader) Source {
	switch {
	case arg == "-":
		return ReaderSource{Reader: stdin}
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return HTTPSource{URL: arg}
	default:
		return FileSource{Path: arg}
	}
}

// Describe names a source for logs and error messages.
func Describe(src Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}

// Package limiter pages rendered results. It runs after filtering and never
// feeds back into the selection or the URL.
package limiter

import (
	"fmt"

	"github.com/oakwood-commons/listx/pkg/item"
)

// Config holds the record-limiting parameters.
type Config struct {
	Limit  int // Show only this many records (0 = unlimited)
	Offset int // Skip the first N records (0 = no skip)
	Tail   int // Show only the last N records (0 = disabled); mutually exclusive with Limit
}

// Validate checks for conflicting flag combinations and returns an error if invalid.
// Rules:
// - Limit and Tail are mutually exclusive
// - If Tail is set, Offset is ignored
// - All numeric values must be non-negative
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("--offset must be non-negative, got %d", c.Offset)
	}
	if c.Tail < 0 {
		return fmt.Errorf("--tail must be non-negative, got %d", c.Tail)
	}
	if c.Limit > 0 && c.Tail > 0 {
		return fmt.Errorf("--limit and --tail are mutually exclusive")
	}
	return nil
}

// IsActive returns true if any limiting is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open window [start, end) for a result of length n.
func (c Config) Bounds(n int) (start, end int) {
	if c.Tail > 0 {
		return max(n-c.Tail, 0), n
	}
	start = min(c.Offset, n)
	end = n
	if c.Limit > 0 {
		end = min(start+c.Limit, n)
	}
	return start, end
}

// Apply returns the window of items selected by the configuration. The input
// order is kept and the input slice is not modified.
func (c Config) Apply(items []item.Item) []item.Item {
	if !c.IsActive() {
		return items
	}
	start, end := c.Bounds(len(items))
	return items[start:end:end]
}

// Summary describes the window, e.g. "showing 11-20 of 42". It returns "" when
// limiting is inactive.
func (c Config) Summary(n int) string {
	if !c.IsActive() {
		return ""
	}
	start, end := c.Bounds(n)
	if start == end {
		return fmt.Sprintf("showing 0 of %d", n)
	}
	return fmt.Sprintf("showing %d-%d of %d", start+1, end, n)
}

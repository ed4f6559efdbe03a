// Package completion suggests values for the selection flags from a built
// field index, for shell completion of --filter, --where and --output.
package completion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oakwood-commons/listx/internal/index"
)

// Kind indicates what a completion inserts.
type Kind int

const (
	KindField    Kind = iota // field name followed by '='
	KindValue                // option value of a field
	KindFunction             // CEL function or macro
	KindFormat               // output format
)

// Completion is a single suggestion.
type Completion struct {
	Text        string // full flag value to insert
	Description string
	Kind        Kind
}

// Shell renders c the way cobra expects: "text\tdescription".
func (c Completion) Shell() string {
	if c.Description == "" {
		return c.Text
	}
	return c.Text + "\t" + c.Description
}

// Filter completes a --filter value of the form "field=a,b,pa". Without '='
// it offers the visible field names; after it, the options of that field not
// already listed whose value starts with the last partial entry.
func Filter(x *index.Index, toComplete string) []Completion {
	if x == nil {
		return nil
	}
	name, rest, hasEq := strings.Cut(toComplete, "=")
	if !hasEq {
		var out []Completion
		for _, f := range x.Fields() {
			if f.Hidden() || !strings.HasPrefix(f.Name, name) {
				continue
			}
			out = append(out, Completion{Text: f.Name + "=", Description: f.Label, Kind: KindField})
		}
		return out
	}

	f, ok := x.Field(name)
	if !ok || f.Hidden() {
		return nil
	}
	chosen := strings.Split(rest, ",")
	partial := strings.ToLower(strings.TrimSpace(chosen[len(chosen)-1]))
	chosen = chosen[:len(chosen)-1]
	taken := make(map[string]bool, len(chosen))
	for _, v := range chosen {
		taken[strings.ToLower(strings.TrimSpace(v))] = true
	}

	prefix := name + "="
	if len(chosen) > 0 {
		prefix += strings.Join(chosen, ",") + ","
	}
	var out []Completion
	for _, o := range f.Options {
		if taken[o.Value] || !strings.HasPrefix(o.Value, partial) {
			continue
		}
		out = append(out, Completion{
			Text:        prefix + o.Value,
			Description: describeOption(o),
			Kind:        KindValue,
		})
	}
	return out
}

func describeOption(o index.Option) string {
	if o.Count == 1 {
		return o.Display + " (1 item)"
	}
	return fmt.Sprintf("%s (%d items)", o.Display, o.Count)
}

// Where completes the identifier under the cursor at the end of a --where
// expression with the given function names.
func Where(functions []string, toComplete string) []Completion {
	start := len(toComplete)
	for start > 0 && isIdentByte(toComplete[start-1]) {
		start--
	}
	word := toComplete[start:]
	if word == "" {
		return nil
	}
	head := toComplete[:start]
	var out []Completion
	for _, fn := range functions {
		if strings.HasPrefix(fn, word) && fn != word {
			out = append(out, Completion{Text: head + fn, Kind: KindFunction})
		}
	}
	return out
}

// Formats completes an --output value from names.
func Formats(names []string, toComplete string) []Completion {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var out []Completion
	for _, n := range sorted {
		if strings.HasPrefix(n, toComplete) {
			out = append(out, Completion{Text: n, Kind: KindFormat})
		}
	}
	return out
}

// Strings converts completions to cobra's shell form.
func Strings(cs []Completion) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Shell()
	}
	return out
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// filterSpec is one --filter occurrence: a field and the values to select.
type filterSpec struct {
	Field  string
	Values []string
}

// filterFlag collects repeated --filter field=a,b flags.
type filterFlag struct {
	specs []filterSpec
}

var _ pflag.Value = (*filterFlag)(nil)

func (f *filterFlag) String() string {
	parts := make([]string, len(f.specs))
	for i, s := range f.specs {
		parts[i] = s.Field + "=" + strings.Join(s.Values, ",")
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Set parses field=a,b. An empty value list is allowed and selects nothing.
func (f *filterFlag) Set(raw string) error {
	field, values, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return fmt.Errorf("expected field=value[,value...], got %q", raw)
	}
	spec := filterSpec{Field: field}
	for _, v := range strings.Split(values, ",") {
		if v = strings.TrimSpace(v); v != "" {
			spec.Values = append(spec.Values, v)
		}
	}
	f.specs = append(f.specs, spec)
	return nil
}

func (f *filterFlag) Type() string {
	return "field=values"
}

func (f *filterFlag) reset() {
	f.specs = nil
}

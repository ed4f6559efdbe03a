package index

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/item"
)

// Option is one selectable value of a field.
type Option struct {
	Display string // title-cased label
	Value   string // normalized selection value
	Count   int    // number of items carrying the value
}

// FieldIndex is the derived index of one declared field.
type FieldIndex struct {
	Name    string
	Label   string
	Key     string
	Control string // config.ControlToggle or config.ControlMultiSelect
	Options []Option

	postings map[string]*roaring.Bitmap
}

// Hidden reports whether the field has no values and should not be shown.
func (f *FieldIndex) Hidden() bool {
	return len(f.Options) == 0
}

// Values returns the normalized option values in display order.
func (f *FieldIndex) Values() []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Value
	}
	return out
}

// Postings returns a copy of the item positions carrying value.
func (f *FieldIndex) Postings(value string) *roaring.Bitmap {
	if bm, ok := f.postings[item.Normalize(value)]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Index is the immutable field index for one item store.
type Index struct {
	size   int
	fields []*FieldIndex
	byName map[string]*FieldIndex
}

// Build indexes every declared field of store. Fields whose domain size is
// above threshold get a multi-select control unless the config pins one.
func Build(store *item.Store, fields []config.Field, threshold int) *Index {
	items := store.Items()
	idx := &Index{
		size:   len(items),
		byName: make(map[string]*FieldIndex, len(fields)),
	}
	for _, f := range fields {
		fi := buildField(items, f, threshold)
		idx.fields = append(idx.fields, fi)
		idx.byName[f.Name] = fi
	}
	return idx
}

func buildField(items []item.Item, f config.Field, threshold int) *FieldIndex {
	key := f.Key()
	fi := &FieldIndex{
		Name:     f.Name,
		Label:    f.Title(),
		Key:      key,
		postings: make(map[string]*roaring.Bitmap),
	}
	for pos, it := range items {
		for _, v := range item.Values(it, key) {
			bm, ok := fi.postings[v]
			if !ok {
				bm = roaring.New()
				fi.postings[v] = bm
			}
			bm.Add(uint32(pos))
		}
	}
	for _, o := range domainOptions(items, key) {
		if bm, ok := fi.postings[o.Value]; ok {
			o.Count = int(bm.GetCardinality())
		}
		fi.Options = append(fi.Options, o)
	}
	switch f.Control {
	case config.ControlToggle, config.ControlMultiSelect:
		fi.Control = f.Control
	default:
		fi.Control = config.ControlToggle
		if len(fi.Options) > threshold {
			fi.Control = config.ControlMultiSelect
		}
	}
	return fi
}

// Fields returns the field indexes in declaration order.
func (x *Index) Fields() []*FieldIndex {
	return append([]*FieldIndex(nil), x.fields...)
}

// Field returns the index of name.
func (x *Index) Field(name string) (*FieldIndex, bool) {
	f, ok := x.byName[name]
	return f, ok
}

// Size returns the number of indexed items.
func (x *Index) Size() int {
	return x.size
}

// Domains returns the normalized domain of every field, keyed by field name.
func (x *Index) Domains() map[string][]string {
	out := make(map[string][]string, len(x.fields))
	for _, f := range x.fields {
		out[f.Name] = f.Values()
	}
	return out
}

// Candidates returns the positions of items passing the filter selection:
// any selected value within a field, every constrained field across fields.
// An empty selection constrains nothing unless excludeEmpty is set, in which
// case it matches nothing.
func (x *Index) Candidates(filters map[string]*selection.Set, excludeEmpty bool) *roaring.Bitmap {
	result := roaring.New()
	result.AddRange(0, uint64(x.size))
	for _, f := range x.fields {
		set := filters[f.Name]
		if set.Len() == 0 {
			if excludeEmpty && set != nil {
				return roaring.New()
			}
			continue
		}
		field := roaring.New()
		for _, v := range set.Values() {
			if bm, ok := f.postings[v]; ok {
				field.Or(bm)
			}
		}
		result.And(field)
		if result.IsEmpty() {
			break
		}
	}
	return result
}

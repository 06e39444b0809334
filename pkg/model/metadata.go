// pkg/model/metadata.go
package model

import "sort"

// ColumnKind describes how the values of a column are stored after cleaning
type ColumnKind string

const (
	KindUnknown  ColumnKind = "object"
	KindInteger  ColumnKind = "int64"
	KindCategory ColumnKind = "category"
	KindText     ColumnKind = "text"
)

// Column represents metadata about a table column
type Column struct {
	Name       string     // Column name as it appears in the source header
	Kind       ColumnKind // Storage kind, KindUnknown until a cleaner pass settles it
	Categories []string   // Sorted distinct values once the column is a fixed category
}

// Range is an inclusive validity range for an integer column
type Range struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// SetCategories stores the sorted distinct values of the column
func (col *Column) SetCategories(values []string) {
	seen := make(map[string]struct{}, len(values))
	cats := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cats = append(cats, v)
	}
	sort.Strings(cats)
	col.Kind = KindCategory
	col.Categories = cats
}

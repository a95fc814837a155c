// Package dataset provides the in-memory tabular data model shared by
// the fetch and preparation stages: records as column/value mappings,
// ordered datasets, and derived views (column selection, row subsets).
package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// Record maps a column name to a scalar value. Values are float64,
// string or nil as decoded from JSON; after a CSV round trip every
// non-null value is a string. Records are treated as immutable once
// created: views share records, they never modify them.
type Record map[string]any

// IsNull reports whether the column is absent, nil, or an empty string.
func (r Record) IsNull(col string) bool {
	v, ok := r[col]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}

// Float returns the column value as a float64. Strings are parsed;
// the second return value is false for nulls and unparseable values.
func (r Record) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the column value as a string. Floats use the shortest
// exact representation; nulls render as the empty string.
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Dataset is an ordered sequence of records with an ordered column list.
// The column list defines which values are visible to consumers (CSV
// output, feature views); records may carry more keys than Columns.
type Dataset struct {
	Columns []string
	Rows    []Record
}

// New creates an empty dataset with the given column order.
func New(columns []string) Dataset {
	return Dataset{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Rows)
}

// HasColumn reports whether the dataset exposes the column.
func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Select returns a view exposing only the requested columns, in the
// requested order, skipping columns the dataset does not have. Rows are
// shared with the receiver.
func (d Dataset) Select(cols []string) Dataset {
	present := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		present[c] = struct{}{}
	}
	kept := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := present[c]; ok {
			kept = append(kept, c)
		}
	}
	return Dataset{Columns: kept, Rows: d.Rows}
}

// Subset returns the rows at the given indices, in index order. Indices
// are sorted first so a subset preserves the dataset's relative order.
func (d Dataset) Subset(indices []int) Dataset {
	idx := append([]int(nil), indices...)
	sort.Ints(idx)
	rows := make([]Record, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, d.Rows[i])
	}
	return Dataset{Columns: d.Columns, Rows: rows}
}

// Filter returns the rows satisfying pred, order preserved, plus the
// number of rows dropped.
func (d Dataset) Filter(pred func(Record) bool) (Dataset, int) {
	rows := make([]Record, 0, len(d.Rows))
	for _, r := range d.Rows {
		if pred(r) {
			rows = append(rows, r)
		}
	}
	return Dataset{Columns: d.Columns, Rows: rows}, len(d.Rows) - len(rows)
}

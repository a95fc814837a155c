package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIsNull(t *testing.T) {
	r := Record{"a": 1.5, "b": nil, "c": "", "d": "x"}

	assert.False(t, r.IsNull("a"))
	assert.True(t, r.IsNull("b"))
	assert.True(t, r.IsNull("c"))
	assert.False(t, r.IsNull("d"))
	assert.True(t, r.IsNull("absent"))
}

func TestRecordFloat(t *testing.T) {
	r := Record{
		"json":   123.5,
		"csv":    "123.5",
		"padded": " 42 ",
		"text":   "dix",
		"null":   nil,
	}

	v, ok := r.Float("json")
	require.True(t, ok)
	assert.Equal(t, 123.5, v)

	v, ok = r.Float("csv")
	require.True(t, ok)
	assert.Equal(t, 123.5, v)

	v, ok = r.Float("padded")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = r.Float("text")
	assert.False(t, ok)
	_, ok = r.Float("null")
	assert.False(t, ok)
}

func TestRecordString(t *testing.T) {
	r := Record{"f": 84.0, "s": "A", "n": nil}

	assert.Equal(t, "84", r.String("f"))
	assert.Equal(t, "A", r.String("s"))
	assert.Equal(t, "", r.String("n"))
}

func TestSelectKeepsOrderAndSkipsAbsent(t *testing.T) {
	d := Dataset{
		Columns: []string{"a", "b", "c"},
		Rows:    []Record{{"a": 1.0, "b": 2.0, "c": 3.0}},
	}

	view := d.Select([]string{"c", "missing", "a"})

	assert.Equal(t, []string{"c", "a"}, view.Columns)
	assert.Equal(t, 1, view.Len())
	// Rows are shared, not copied.
	assert.Equal(t, 3.0, view.Rows[0]["c"])
}

func TestSubsetPreservesRelativeOrder(t *testing.T) {
	d := Dataset{
		Columns: []string{"id"},
		Rows:    []Record{{"id": "r0"}, {"id": "r1"}, {"id": "r2"}, {"id": "r3"}},
	}

	sub := d.Subset([]int{3, 0, 2})

	require.Equal(t, 3, sub.Len())
	assert.Equal(t, "r0", sub.Rows[0].String("id"))
	assert.Equal(t, "r2", sub.Rows[1].String("id"))
	assert.Equal(t, "r3", sub.Rows[2].String("id"))
}

func TestFilterCountsDropped(t *testing.T) {
	d := Dataset{
		Columns: []string{"v"},
		Rows:    []Record{{"v": 1.0}, {"v": -1.0}, {"v": 2.0}},
	}

	kept, dropped := d.Filter(func(r Record) bool {
		v, ok := r.Float("v")
		return ok && v > 0
	})

	assert.Equal(t, 2, kept.Len())
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1.0, kept.Rows[0]["v"])
	assert.Equal(t, 2.0, kept.Rows[1]["v"])
}

package scan

import "chunkfinder.ai/internal/finder"

// MatchSet is an immutable snapshot of one completed scan pass.
type MatchSet struct {
	Generation uint64 // 0 until the first pass completes
	Center     finder.ColumnKey
	Radius     int

	cols map[finder.ColumnKey]struct{}
}

func emptyMatchSet() *MatchSet {
	return &MatchSet{cols: map[finder.ColumnKey]struct{}{}}
}

// NewMatchSet builds a standalone snapshot, mostly for hosts replaying fixed results.
func NewMatchSet(cols ...finder.ColumnKey) *MatchSet {
	m := emptyMatchSet()
	for _, k := range cols {
		m.cols[k] = struct{}{}
	}
	return m
}

func (m *MatchSet) Len() int {
	if m == nil {
		return 0
	}
	return len(m.cols)
}

func (m *MatchSet) Contains(k finder.ColumnKey) bool {
	if m == nil {
		return false
	}
	_, ok := m.cols[k]
	return ok
}

// Each calls fn for every column in unspecified order until fn returns false.
func (m *MatchSet) Each(fn func(k finder.ColumnKey) bool) {
	if m == nil {
		return
	}
	for k := range m.cols {
		if !fn(k) {
			return
		}
	}
}

// Columns returns a sorted copy of the member columns.
func (m *MatchSet) Columns() []finder.ColumnKey {
	out := make([]finder.ColumnKey, 0, m.Len())
	m.Each(func(k finder.ColumnKey) bool {
		out = append(out, k)
		return true
	})
	finder.SortColumns(out)
	return out
}

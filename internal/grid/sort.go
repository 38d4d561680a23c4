package grid

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SortState is the client-side ordering of the displayed page. An empty
// Column keeps the server's order.
type SortState struct {
	Column string
	Desc   bool
}

// Toggle returns the state after a click on column's header: a new column
// sorts ascending, the current column flips direction.
func (s SortState) Toggle(column string) SortState {
	if s.Column == column {
		s.Desc = !s.Desc
		return s
	}
	return SortState{Column: column}
}

// Direction returns "ascending" or "descending" for column, or "" when the
// grid is not sorted by it.
func (s SortState) Direction(column string) string {
	switch {
	case s.Column == "" || s.Column != column:
		return ""
	case s.Desc:
		return "descending"
	default:
		return "ascending"
	}
}

// SortRows returns a sorted copy of rows. Values compare numerically when
// both parse as numbers and as case-insensitive text otherwise. The sort is
// stable so equal values keep the server's order.
func SortRows(rows []Row, s SortState) []Row {
	if s.Column == "" {
		return rows
	}
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		av, _ := a.Lookup(s.Column)
		bv, _ := b.Lookup(s.Column)
		c := compareValues(av, bv)
		if s.Desc {
			return -c
		}
		return c
	})
	return out
}

func compareValues(a, b any) int {
	as, bs := Stringify(a), Stringify(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

// Sort orders the displayed page by column, or flips the direction when the
// page is already sorted by it. It re-renders the table without fetching and
// the order is kept across later fetches.
func (o *Orchestrator) Sort(column string) error {
	st := o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	if !o.sortable(column) {
		return fmt.Errorf("column %q is not sortable", column)
	}
	st.sort = st.sort.Toggle(column)
	st.rows = SortRows(Filter(st.result.Rows, st.query.SearchTerm), st.sort)
	o.editor.reset()
	o.renderer.Sort = st.sort
	o.renderer.Render(st.mount.Table, o.settings.Columns, st.rows, o.settings.Detail)
	return nil
}

func (o *Orchestrator) sortable(column string) bool {
	if column == "" || column == ActionsKey {
		return false
	}
	for _, c := range o.settings.Columns {
		if c.Key == column {
			return true
		}
	}
	return false
}

// SortState returns the current ordering.
func (o *Orchestrator) SortState() SortState {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return o.st.sort
}

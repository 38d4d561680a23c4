// Package grid implements the paginated, searchable, inline-editable data grid
// behind every admin page: remote page fetches, client-side re-filtering,
// accordion detail rows, single-row inline editing and the orchestrator that
// wires them to a caller-owned HTML container tree.
package grid

import (
	"maps"
	"strings"
)

// ActionsKey is the column key whose renderer receives the whole row instead
// of a single field value.
const ActionsKey = "actions"

// Row is one record as returned by the remote service, keyed by field name.
type Row map[string]any

// Lookup returns the value stored under key. A key of the form "A.B" that is
// not present verbatim is resolved as field B of the nested object A.
func (r Row) Lookup(key string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	switch nested := r[head].(type) {
	case map[string]any:
		return Row(nested).Lookup(rest)
	case Row:
		return nested.Lookup(rest)
	}
	return nil, false
}

// ID returns the string form of the identifier field.
func (r Row) ID(field string) (string, bool) {
	if field == "" {
		return "", false
	}
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	id := Stringify(v)
	return id, id != ""
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// MarkupMode decides whether a cell's content is parsed as markup or inserted
// as literal text.
type MarkupMode int

const (
	// MarkupSniff treats any string starting with "<" as markup. Plain text
	// that happens to start with "<" is therefore misread as markup; callers
	// that cannot rule that out should pick one of the explicit modes.
	MarkupSniff MarkupMode = iota
	// MarkupAlways parses the content as markup.
	MarkupAlways
	// MarkupNever inserts the content as text.
	MarkupNever
)

// CellRenderer formats a cell. value is the field value, or the whole row
// when the column key is ActionsKey.
type CellRenderer func(value any, row Row) string

// ColumnSpec describes one grid column. Column slices are built once per grid
// and never mutated.
type ColumnSpec struct {
	Key       string
	Label     string
	WidthHint string
	CellClass string
	Render    CellRenderer
	Markup    MarkupMode
}

// PageQuery fully determines one fetch.
type PageQuery struct {
	Page       int
	PageSize   int
	SearchTerm string
	Status     *StatusFilter
	Extra      map[string]any
}

func (q PageQuery) clone() PageQuery {
	c := q
	if q.Status != nil {
		s := *q.Status
		c.Status = &s
	}
	c.Extra = maps.Clone(q.Extra)
	return c
}

// PageResult is one server response. Every fetch supersedes the previous
// result wholesale.
type PageResult struct {
	Rows          []Row
	TotalRowCount int
	CurrentPage   int
	PageSize      int
}

// PageCount returns ceil(TotalRowCount / PageSize).
func (r PageResult) PageCount() int {
	return PageCount(r.TotalRowCount, r.PageSize)
}

// PageCount returns ceil(total / size), or 0 when size is not positive.
func PageCount(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

package grid

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// DetailRenderer produces the markup of a row's collapsible detail panel.
type DetailRenderer func(row Row) string

const (
	noDataMessage = "No data found."
	naPlaceholder = "N/A"

	classTrigger  = "accordion-trigger"
	classContent  = "accordion-content"
	classHidden   = "hidden"
	classExpanded = "expanded"
	classChevron  = "chevron-icon"
)

// Renderer builds the grid table inside a container node.
type Renderer struct {
	// IDField names the row identifier used for detail-row ids and in-place
	// patching. Rows without it fall back to their index.
	IDField string
	// Sort marks the sorted column's header.
	Sort SortState
}

// Render clears container and builds the header, one body row per record
// and, when detail is non-nil, a collapsed detail row after each record.
func (r Renderer) Render(container *html.Node, columns []ColumnSpec, rows []Row, detail DetailRenderer) {
	if container == nil {
		return
	}
	Clear(container)

	table := Element("table", "class", "grid-table")
	thead := Element("thead")
	headRow := Element("tr")
	for _, col := range columns {
		th := Element("th", "scope", "col", "class", strings.TrimSpace("grid-th "+col.WidthHint))
		if col.Key != ActionsKey {
			SetAttr(th, "data-column", col.Key)
			SetAttr(th, "data-action", string(ActionSort))
			if dir := r.Sort.Direction(col.Key); dir != "" {
				SetAttr(th, "aria-sort", dir)
				ToggleClass(th, "sorted", true)
			}
		}
		th.AppendChild(Text(col.Label))
		headRow.AppendChild(th)
	}
	thead.AppendChild(headRow)
	table.AppendChild(thead)

	tbody := Element("tbody")
	if len(rows) == 0 {
		span := max(len(columns), 1)
		tr := Element("tr", "class", "no-data")
		td := Element("td", "colspan", strconv.Itoa(span), "class", "no-data-cell")
		td.AppendChild(Text(noDataMessage))
		tr.AppendChild(td)
		tbody.AppendChild(tr)
	}
	for i, row := range rows {
		key := r.rowKey(row, i)
		tr := Element("tr", "data-id", key)
		if detail != nil {
			SetAttr(tr, "class", classTrigger)
			SetAttr(tr, "data-target", "#"+detailID(key))
			SetAttr(tr, "data-action", string(ActionToggle))
		}
		r.fillRow(tr, columns, row)
		tbody.AppendChild(tr)

		if detail != nil {
			content := Element("tr", "id", detailID(key), "class", classContent+" "+classHidden, "data-id", key)
			td := Element("td", "colspan", strconv.Itoa(max(len(columns), 1)))
			AppendMarkup(td, detail(row))
			content.AppendChild(td)
			tbody.AppendChild(content)
		}
	}
	table.AppendChild(tbody)
	container.AppendChild(table)
}

// fillRow appends one cell per column to tr.
func (r Renderer) fillRow(tr *html.Node, columns []ColumnSpec, row Row) {
	for _, col := range columns {
		class := col.CellClass
		if class == "" {
			class = "nowrap"
		}
		td := Element("td", "class", "grid-td "+class)
		appendCell(td, col, CellContent(col, row))
		tr.AppendChild(td)
	}
}

// PatchRow replaces the cells of the summary row for id in place. It reports
// whether the row was on the page.
func (r Renderer) PatchRow(container *html.Node, columns []ColumnSpec, id string, row Row) bool {
	tr := Find(container, All(ByTag("tr"), ByAttr("data-id", id), func(n *html.Node) bool {
		return !HasClass(n, classContent)
	}))
	if tr == nil {
		return false
	}
	Clear(tr)
	r.fillRow(tr, columns, row)
	return true
}

func (r Renderer) rowKey(row Row, index int) string {
	if id, ok := row.ID(r.IDField); ok {
		return id
	}
	return strconv.Itoa(index)
}

func detailID(key string) string {
	return "accordion-content-" + key
}

// CellContent returns the string a column shows for row: the column renderer's
// output when set, else the raw value, else "N/A".
func CellContent(col ColumnSpec, row Row) string {
	if col.Render != nil {
		var value any
		if col.Key == ActionsKey {
			value = row
		} else {
			value, _ = row.Lookup(col.Key)
		}
		return col.Render(value, row)
	}
	v, ok := row.Lookup(col.Key)
	if !ok || v == nil {
		return naPlaceholder
	}
	return Stringify(v)
}

// appendCell inserts content as markup or text according to the column mode.
// In MarkupSniff mode a leading "<" selects markup.
func appendCell(td *html.Node, col ColumnSpec, content string) {
	markup := false
	switch col.Markup {
	case MarkupAlways:
		markup = true
	case MarkupSniff:
		markup = strings.HasPrefix(content, "<")
	}
	if markup {
		AppendMarkup(td, content)
		return
	}
	td.AppendChild(Text(content))
}

// toggleDetail flips the collapsed state of the detail row paired with
// trigger and nothing else. It reports whether the row is now expanded.
func toggleDetail(table, trigger *html.Node) bool {
	target, ok := Attr(trigger, "data-target")
	if !ok {
		return false
	}
	content := Find(table, ByID(strings.TrimPrefix(target, "#")))
	if content == nil {
		return false
	}
	expanded := !FlipClass(content, classHidden)
	ToggleClass(trigger, classExpanded, expanded)
	if chevron := Find(trigger, ByClass(classChevron)); chevron != nil {
		ToggleClass(chevron, "rotate-180", expanded)
	}
	return expanded
}

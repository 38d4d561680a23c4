package entities

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/admingrid/admingrid/internal/grid"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatDate renders a timestamp as "January 2, 2006", or "N/A" when the
// value is missing or unparseable.
func FormatDate(v any) string {
	s := strings.TrimSpace(grid.Stringify(v))
	if s == "" {
		return "N/A"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return "N/A"
}

func dateCell(v any, _ grid.Row) string { return FormatDate(v) }

func yesNo(v any, _ grid.Row) string {
	if grid.Truthy(v) {
		return "Yes"
	}
	return "No"
}

func activeBadge(v any, _ grid.Row) string {
	if grid.Truthy(v) {
		return `<span class="badge badge-active">Active</span>`
	}
	return `<span class="badge badge-inactive">Inactive</span>`
}

const chevron = `<svg class="chevron-icon" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 20" width="20" height="20" aria-hidden="true"><path fill-rule="evenodd" d="M5.3 7.3a1 1 0 0 1 1.4 0L10 10.6l3.3-3.3a1 1 0 1 1 1.4 1.4l-4 4a1 1 0 0 1-1.4 0l-4-4a1 1 0 0 1 0-1.4z"/></svg>`

func detailsChevron(any, grid.Row) string { return chevron }

// NameResolver maps an identifier in a lookup table to its display name.
type NameResolver interface {
	Name(table, id string) (string, bool)
}

// lookupName renders the name of the referenced record, falling back to the
// raw id while the lookup table is cold or missing the entry.
func lookupName(names NameResolver, table string) grid.CellRenderer {
	return func(v any, _ grid.Row) string {
		id := grid.Stringify(v)
		if id == "" {
			return "N/A"
		}
		if names != nil {
			if name, ok := names.Name(table, id); ok {
				return name
			}
		}
		return id
	}
}

// excerpt renders stored markup as a short plain-text preview.
func excerpt(limit int) func(any, grid.Row) string {
	return func(v any, _ grid.Row) string {
		s := strings.Join(strings.Fields(plainText(grid.Stringify(v))), " ")
		if r := []rune(s); len(r) > limit {
			return string(r[:limit]) + "..."
		}
		return s
	}
}

// plainText returns the text tokens of an HTML fragment separated by spaces.
func plainText(markup string) string {
	var parts []string
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.TextToken:
			parts = append(parts, string(z.Text()))
		}
	}
}

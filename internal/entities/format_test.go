package entities

import (
	"strings"
	"testing"

	"github.com/admingrid/admingrid/internal/grid"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"2025-03-14T09:30:00", "March 14, 2025"},
		{"2025-04-02T18:05:00Z", "April 2, 2025"},
		{"2024-11-20", "November 20, 2024"},
		{"not refreshed", "N/A"},
		{"", "N/A"},
		{nil, "N/A"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

type staticNames map[string]string

func (s staticNames) Name(table, id string) (string, bool) {
	n, ok := s[table+"/"+id]
	return n, ok
}

func TestLookupName(t *testing.T) {
	render := lookupName(staticNames{"datasourcetypes/1": "SQL Server"}, "datasourcetypes")

	if got := render(float64(1), nil); got != "SQL Server" {
		t.Errorf("expected SQL Server, got %q", got)
	}
	if got := render(2, nil); got != "2" {
		t.Errorf("expected raw id fallback, got %q", got)
	}
	if got := render(nil, nil); got != "N/A" {
		t.Errorf("expected N/A, got %q", got)
	}
	if got := lookupName(nil, "datasourcetypes")(3, nil); got != "3" {
		t.Errorf("expected raw id without resolver, got %q", got)
	}
}

func TestBadgesAndYesNo(t *testing.T) {
	if yesNo(true, nil) != "Yes" || yesNo("false", nil) != "No" {
		t.Error("unexpected yes/no rendering")
	}
	if !strings.Contains(activeBadge(true, nil), "badge-active") {
		t.Error("expected active badge")
	}
	if !strings.Contains(activeBadge(nil, nil), "Inactive") {
		t.Error("expected inactive badge for missing value")
	}
}

func TestExcerpt(t *testing.T) {
	got := excerpt(20)("<p>Hi,</p><p>Your request has been approved.</p>", nil)
	if got != "Hi, Your request has..." {
		t.Errorf("unexpected excerpt %q", got)
	}
	if got := excerpt(20)("<b>short</b>", nil); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
}

func TestBuiltinRendersThroughGrid(t *testing.T) {
	defs := Builtin(staticNames{"datasourcetypes/2": "REST API"})
	var ds Definition
	for _, d := range defs {
		if d.Name == "datasources" {
			ds = d
		}
	}

	row := grid.Row{"DataSourceID": 9, "DataSourceTypeID": 2, "Name": "<b>x</b>", "IsActive": true, "RefreshedDate": "2025-01-02"}
	table := grid.Element("div")
	grid.Renderer{IDField: ds.IDField}.Render(table, ds.Columns, []grid.Row{row}, grid.FieldDetail(ds.IDField, ds.Fields))

	cells := grid.FindAll(table, grid.ByClass("grid-td"))
	if len(cells) != len(ds.Columns) {
		t.Fatalf("expected %d cells, got %d", len(ds.Columns), len(cells))
	}
	if got := grid.TextContent(cells[0]); got != "REST API" {
		t.Errorf("expected lookup name, got %q", got)
	}
	if got := grid.TextContent(cells[1]); got != "<b>x</b>" {
		t.Errorf("expected name as literal text, got %q", got)
	}
	if got := grid.TextContent(cells[3]); got != "January 2, 2025" {
		t.Errorf("expected formatted date, got %q", got)
	}
	if grid.Find(cells[5], grid.ByClass("chevron-icon")) == nil {
		t.Error("expected chevron in details column")
	}
}

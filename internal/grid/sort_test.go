package grid

import (
	"context"
	"strings"
	"testing"
)

func TestSortRows(t *testing.T) {
	rows := []Row{
		{"ID": 10, "Name": "beta"},
		{"ID": 9, "Name": "Alpha"},
		{"ID": 100, "Name": "alpha"},
	}

	tests := []struct {
		name  string
		state SortState
		want  string
	}{
		{"unsorted keeps order", SortState{}, "10,9,100"},
		{"numbers compare numerically", SortState{Column: "ID"}, "9,10,100"},
		{"descending", SortState{Column: "ID", Desc: true}, "100,10,9"},
		{"text ignores case and is stable", SortState{Column: "Name"}, "9,100,10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range SortRows(rows, tt.state) {
				ids = append(ids, Stringify(r["ID"]))
			}
			if got := strings.Join(ids, ","); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
	if Stringify(rows[0]["ID"]) != "10" {
		t.Error("SortRows should not reorder its input")
	}
}

func TestSortStateToggle(t *testing.T) {
	s := SortState{}.Toggle("Name")
	if s != (SortState{Column: "Name"}) {
		t.Errorf("expected ascending Name, got %+v", s)
	}
	s = s.Toggle("Name")
	if !s.Desc || s.Direction("Name") != "descending" {
		t.Errorf("expected descending Name, got %+v", s)
	}
	if s = s.Toggle("ID"); s.Desc || s.Column != "ID" {
		t.Errorf("expected new column to sort ascending, got %+v", s)
	}
	if s.Direction("Name") != "" {
		t.Error("expected no direction for an unsorted column")
	}
}

func TestHeaderClickSortsPage(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(12)
	o, m, _ := newTestGrid(t, remote, nil)
	if err := o.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	calls := remote.queryCount()

	header := Find(m.Table, All(ByTag("th"), ByAttr("data-column", "ID")))
	if header == nil {
		t.Fatal("expected sortable ID header")
	}
	click := func() {
		t.Helper()
		th := Find(m.Table, All(ByTag("th"), ByAttr("data-column", "ID")))
		if err := o.Dispatch(ctx, Event{Type: "click", Target: th}); err != nil {
			t.Fatalf("header click failed: %v", err)
		}
	}

	click()
	click()
	if got := cellTexts(bodyRows(m.Table)[0])[0]; got != "5" {
		t.Errorf("expected descending order to start with 5, got %s", got)
	}
	th := Find(m.Table, All(ByTag("th"), ByAttr("data-column", "ID")))
	if dir, _ := Attr(th, "aria-sort"); dir != "descending" {
		t.Errorf("expected aria-sort descending, got %q", dir)
	}
	if remote.queryCount() != calls {
		t.Error("sorting should not fetch")
	}

	if err := o.GoToPage(ctx, 2); err != nil {
		t.Fatalf("GoToPage failed: %v", err)
	}
	if got := cellTexts(bodyRows(m.Table)[0])[0]; got != "10" {
		t.Errorf("expected sort kept on page 2, got first id %s", got)
	}

	if err := o.Sort("Description"); err == nil {
		t.Error("expected error for a column the grid does not show")
	}
}

package grid

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestFilterMatchesSubstringCaseInsensitive(t *testing.T) {
	rows := []Row{{"Name": "Alpha"}, {"Name": "Beta"}}

	got := Filter(rows, "alp")
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0]["Name"] != "Alpha" {
		t.Errorf("expected Alpha, got %v", got[0]["Name"])
	}
}

func TestFilterEmptyTermReturnsInput(t *testing.T) {
	rows := []Row{{"Name": "Alpha"}, {"Name": "Beta"}}

	for _, term := range []string{"", "   "} {
		got := Filter(rows, term)
		if !reflect.DeepEqual(got, rows) {
			t.Errorf("term %q: expected rows unchanged, got %v", term, got)
		}
	}
}

func TestFilterSearchesEveryField(t *testing.T) {
	rows := []Row{
		{"Name": "Alpha", "Owner": map[string]any{"Email": "ops@example.com"}},
		{"Name": "Beta", "Count": json.Number("42")},
		{"Name": "Gamma", "Notes": nil},
	}

	if got := Filter(rows, "OPS@"); len(got) != 1 || got[0]["Name"] != "Alpha" {
		t.Errorf("expected nested field match on Alpha, got %v", got)
	}
	if got := Filter(rows, "42"); len(got) != 1 || got[0]["Name"] != "Beta" {
		t.Errorf("expected numeric match on Beta, got %v", got)
	}
	if got := Filter(rows, "<nil>"); len(got) != 0 {
		t.Errorf("nil values should not match, got %v", got)
	}
}

func TestFilterResultIsSubsetContainingTerm(t *testing.T) {
	rows := []Row{
		{"Name": "Customer Orders", "Type": "SQL"},
		{"Name": "Billing", "Type": "REST"},
		{"Name": "orders archive", "Type": "CSV"},
		{"Name": "Inventory", "Type": "sql"},
	}

	for _, term := range []string{"order", "SQL", "r", "zzz", "Billing"} {
		got := Filter(rows, term)
		if len(got) > len(rows) {
			t.Fatalf("term %q: result larger than input", term)
		}
		for _, r := range got {
			found := false
			for _, in := range rows {
				if reflect.DeepEqual(in, r) {
					found = true
				}
			}
			if !found {
				t.Errorf("term %q: row %v not in input", term, r)
			}
			if !rowContains(r, strings.ToLower(term)) {
				t.Errorf("term %q: row %v does not contain term", term, r)
			}
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{true, "true"},
		{json.Number("7"), "7"},
		{3.5, "3.5"},
		{float64(12), "12"},
		{map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestTruthy(t *testing.T) {
	falsy := []any{nil, false, "", "false", "0", json.Number("0"), 0.0, map[string]any{}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("expected %#v to be falsy", v)
		}
	}
	truthy := []any{true, "x", json.Number("1"), 2.0, map[string]any{"a": 1}, []any{}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("expected %#v to be truthy", v)
		}
	}
}

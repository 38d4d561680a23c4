package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"
)

// fakeRemote serves the query, update and create operations from memory.
type fakeRemote struct {
	mu      sync.Mutex
	records []Row
	queries []map[string]any
	updates []map[string]any
	creates []map[string]any

	// gates holds a query for the given page until the channel is closed.
	gates map[int]chan struct{}
	// arrived, when set, receives the page of every query as it arrives.
	arrived chan int

	queryErr   error
	updateFunc func(params map[string]any) (any, error)
}

func newFakeRemote(n int) *fakeRemote {
	f := &fakeRemote{gates: make(map[int]chan struct{})}
	for i := 1; i <= n; i++ {
		f.records = append(f.records, Row{
			"ID":          i,
			"Name":        fmt.Sprintf("Item %02d", i),
			"Description": fmt.Sprintf("description %d", i),
			"Active":      i%2 == 1,
		})
	}
	return f
}

func (f *fakeRemote) Request(ctx context.Context, op string, params map[string]any) (any, error) {
	switch op {
	case "query":
		page, _ := params["page"].(int)
		f.mu.Lock()
		f.queries = append(f.queries, params)
		gate := f.gates[page]
		arrived := f.arrived
		err := f.queryErr
		f.mu.Unlock()
		if arrived != nil {
			arrived <- page
		}
		if gate != nil {
			<-gate
		}
		if err != nil {
			return nil, err
		}
		return f.page(params), nil
	case "update":
		f.mu.Lock()
		f.updates = append(f.updates, params)
		fn := f.updateFunc
		f.mu.Unlock()
		if fn != nil {
			return fn(params)
		}
		return f.applyUpdate(params)
	case "create":
		f.mu.Lock()
		defer f.mu.Unlock()
		f.creates = append(f.creates, params)
		rec := Row{"ID": len(f.records) + 1, "Name": params["Name"], "Active": true}
		f.records = append(f.records, rec)
		b, _ := json.Marshal(rec)
		return string(b), nil
	}
	return nil, fmt.Errorf("unknown operation %s", op)
}

func (f *fakeRemote) page(params map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, _ := params["page"].(int)
	size, _ := params["pageSize"].(int)
	term, _ := params["search"].(string)

	var matched []Row
	for _, r := range f.records {
		if term == "" || strings.Contains(strings.ToLower(r["Name"].(string)), strings.ToLower(term)) {
			matched = append(matched, r)
		}
	}
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))
	env := map[string]any{
		"Results":     matched[start:end],
		"RowCount":    len(matched),
		"CurrentPage": page,
		"PageSize":    size,
	}
	b, _ := json.Marshal(env)
	return string(b)
}

func (f *fakeRemote) applyUpdate(params map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := Stringify(params["ID"])
	for _, r := range f.records {
		if Stringify(r["ID"]) == id {
			r["Name"] = params["Name"]
			r["Active"] = params["Active"]
			b, _ := json.Marshal(r)
			return string(b), nil
		}
	}
	return nil, fmt.Errorf("record %s not found", id)
}

func (f *fakeRemote) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeRemote) lastQuery() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeRemote) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func newTestMount() Mount {
	return Mount{
		Table:      Element("div", "id", "grid"),
		Pagination: Element("div", "id", "pagination"),
		Count:      Element("span", "id", "count"),
	}
}

func testColumns() []ColumnSpec {
	return []ColumnSpec{
		{Key: "ID", Label: "ID"},
		{Key: "Name", Label: "Name"},
		{Key: "Active", Label: "Active", Render: func(v any, _ Row) string {
			if Truthy(v) {
				return "Yes"
			}
			return "No"
		}},
	}
}

func testFields() []FieldSpec {
	return []FieldSpec{
		{Key: "ID", Label: "ID"},
		{Key: "Name", Label: "Name", Kind: FieldText, Editable: true, Required: true},
		{Key: "Active", Label: "Active", Kind: FieldCheckbox, Editable: true},
	}
}

func newTestGrid(t *testing.T, remote Requester, configure func(*Options)) (*Orchestrator, Mount, *Toasts) {
	t.Helper()
	opts := Options{
		Entity:            "datasources",
		Label:             "Data Source",
		OperationID:       "query",
		UpdateOperationID: "update",
		CreateOperationID: "create",
		IDField:           "ID",
		Columns:           testColumns(),
		Fields:            testFields(),
		CreateFields: []FieldSpec{
			{Key: "Name", Label: "Name", Kind: FieldText, Required: true},
		},
		PageSize:       5,
		SearchDebounce: 20 * time.Millisecond,
	}
	if configure != nil {
		configure(&opts)
	}
	mount := newTestMount()
	toasts := NewToasts()
	return New(remote, mount, toasts, opts), mount, toasts
}

// bodyRows returns the data rows of the rendered table, excluding detail rows.
func bodyRows(container *html.Node) []*html.Node {
	tbody := Find(container, ByTag("tbody"))
	var out []*html.Node
	for _, tr := range FindAll(tbody, ByTag("tr")) {
		if !HasClass(tr, classContent) && tr.Parent == tbody {
			out = append(out, tr)
		}
	}
	return out
}

func cellTexts(tr *html.Node) []string {
	var out []string
	for _, td := range FindAll(tr, ByTag("td")) {
		if td.Parent == tr {
			out = append(out, TextContent(td))
		}
	}
	return out
}

func detailBody(container *html.Node, id string) *html.Node {
	return Find(container, All(ByClass("accordion-body"), ByAttr("data-id", id)))
}

func lastNotification(t *testing.T, toasts *Toasts) Notification {
	t.Helper()
	pending := toasts.Pending()
	if len(pending) == 0 {
		t.Fatal("expected a notification")
	}
	return pending[len(pending)-1]
}

package grid

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func staticRequester(resp any, err error) RequesterFunc {
	return func(context.Context, string, map[string]any) (any, error) {
		return resp, err
	}
}

func TestFetchAcceptsStringAndObjectResponses(t *testing.T) {
	body := `{"Results":[{"ID":1,"Name":"Alpha"},{"ID":2,"Name":"Beta"}],"RowCount":7,"CurrentPage":1,"PageSize":2}`
	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatal(err)
	}

	for name, resp := range map[string]any{
		"string": body,
		"bytes":  []byte(body),
		"object": decoded,
	} {
		f := NewFetcher(staticRequester(resp, nil), "q", "ID", StatusCodes{})
		res, err := f.Fetch(context.Background(), PageQuery{Page: 1, PageSize: 2})
		if err != nil {
			t.Fatalf("%s: Fetch failed: %v", name, err)
		}
		if len(res.Rows) != 2 {
			t.Errorf("%s: expected 2 rows, got %d", name, len(res.Rows))
		}
		if res.TotalRowCount != 7 {
			t.Errorf("%s: expected 7 total, got %d", name, res.TotalRowCount)
		}
		if res.PageCount() != 4 {
			t.Errorf("%s: expected 4 pages, got %d", name, res.PageCount())
		}
		if id, _ := res.Rows[0].ID("ID"); id != "1" {
			t.Errorf("%s: expected id 1, got %s", name, id)
		}
	}
}

func TestFetchErrors(t *testing.T) {
	transport := errors.New("connection refused")
	tests := map[string]RequesterFunc{
		"transport":  staticRequester(nil, transport),
		"bad json":   staticRequester(`{"Results":`, nil),
		"null":       staticRequester("null", nil),
		"oversized":  staticRequester(`{"Results":[{"ID":1},{"ID":2},{"ID":3}],"RowCount":3,"PageSize":2}`, nil),
		"duplicate":  staticRequester(`{"Results":[{"ID":1},{"ID":1}],"RowCount":2,"PageSize":2}`, nil),
		"missing id": staticRequester(`{"Results":[{"Name":"x"}],"RowCount":1,"PageSize":2}`, nil),
		"negative":   staticRequester(`{"Results":[],"RowCount":-1,"PageSize":2}`, nil),
	}
	for name, r := range tests {
		f := NewFetcher(r, "q", "ID", StatusCodes{})
		_, err := f.Fetch(context.Background(), PageQuery{Page: 1, PageSize: 2})
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Errorf("%s: expected FetchError, got %v", name, err)
		}
	}

	f := NewFetcher(staticRequester(nil, transport), "q", "ID", StatusCodes{})
	_, err := f.Fetch(context.Background(), PageQuery{Page: 1, PageSize: 2})
	if !errors.Is(err, transport) {
		t.Errorf("expected transport error to be wrapped, got %v", err)
	}
}

func TestFetchClampsCurrentPage(t *testing.T) {
	f := NewFetcher(staticRequester(`{"Results":[],"RowCount":3,"CurrentPage":9,"PageSize":5}`, nil), "q", "", StatusCodes{})
	res, err := f.Fetch(context.Background(), PageQuery{Page: 9, PageSize: 5})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.CurrentPage != 1 {
		t.Errorf("expected current page clamped to 1, got %d", res.CurrentPage)
	}
	if res.Rows == nil {
		t.Error("expected empty, non-nil rows")
	}
}

func TestParamsIncludeStatusCodeAndExtra(t *testing.T) {
	codes := StatusCodes{Param: "activeStatus", Active: 1, Inactive: 2, Both: 3}
	f := NewFetcher(nil, "q", "ID", codes)

	inactive := StatusFilter{Inactive: true}
	p := f.Params(PageQuery{Page: 2, PageSize: 5, SearchTerm: "abc", Status: &inactive, Extra: map[string]any{"typeId": 4}})
	if p["page"] != 2 || p["pageSize"] != 5 || p["search"] != "abc" {
		t.Errorf("unexpected base params %v", p)
	}
	if p["activeStatus"] != 2 {
		t.Errorf("expected inactive code 2, got %v", p["activeStatus"])
	}
	if p["typeId"] != 4 {
		t.Errorf("expected extra param, got %v", p["typeId"])
	}

	p = f.Params(PageQuery{Page: 1, PageSize: 5})
	if _, ok := p["activeStatus"]; ok {
		t.Error("status param should be omitted without a filter")
	}
}

func TestFetchAllWalksEveryPage(t *testing.T) {
	remote := newFakeRemote(23)
	f := NewFetcher(remote, "query", "ID", StatusCodes{})

	rows, err := f.FetchAll(context.Background(), PageQuery{PageSize: 10})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(rows) != 23 {
		t.Errorf("expected 23 rows, got %d", len(rows))
	}
	if remote.queryCount() != 3 {
		t.Errorf("expected 3 requests, got %d", remote.queryCount())
	}
}

func TestDecodeRecord(t *testing.T) {
	for _, resp := range []any{nil, "", "null", false, map[string]any{}, "{}"} {
		if _, err := decodeRecord(resp); !errors.Is(err, ErrEmptyMutationResult) {
			t.Errorf("response %#v: expected ErrEmptyMutationResult, got %v", resp, err)
		}
	}
	rec, err := decodeRecord(`{"ID":3,"Name":"x"}`)
	if err != nil {
		t.Fatalf("decodeRecord failed: %v", err)
	}
	if rec["Name"] != "x" {
		t.Errorf("expected x, got %v", rec["Name"])
	}
}

package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Requester is the remote request service shared by page queries and
// mutations. operationID is an opaque routing token supplied by the page. The
// response may be a JSON string, raw JSON bytes or an already-decoded value.
type Requester interface {
	Request(ctx context.Context, operationID string, params map[string]any) (any, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, operationID string, params map[string]any) (any, error)

// Request implements Requester.
func (f RequesterFunc) Request(ctx context.Context, operationID string, params map[string]any) (any, error) {
	return f(ctx, operationID, params)
}

var errEmptyResponse = errors.New("empty response")

// pageEnvelope is the wire shape of a paged-query response.
type pageEnvelope struct {
	Results     []Row `json:"Results"`
	RowCount    int   `json:"RowCount"`
	CurrentPage int   `json:"CurrentPage"`
	PageSize    int   `json:"PageSize"`
	PageCount   int   `json:"PageCount"`
}

// Fetcher reads one page at a time from a paged-query operation.
type Fetcher struct {
	requester   Requester
	operationID string
	idField     string
	status      StatusCodes
	group       singleflight.Group
}

// NewFetcher creates a Fetcher. idField, when set, must be present and unique
// in every returned row.
func NewFetcher(r Requester, operationID, idField string, status StatusCodes) *Fetcher {
	return &Fetcher{
		requester:   r,
		operationID: operationID,
		idField:     idField,
		status:      status,
	}
}

// Params builds the request parameters for q.
func (f *Fetcher) Params(q PageQuery) map[string]any {
	params := make(map[string]any, 4+len(q.Extra))
	for k, v := range q.Extra {
		params[k] = v
	}
	params["page"] = q.Page
	params["pageSize"] = q.PageSize
	params["search"] = q.SearchTerm
	if q.Status != nil && f.status.Param != "" {
		params[f.status.Param] = f.status.Code(*q.Status)
	}
	return params
}

// Fetch reads the page described by q. On failure it returns a *FetchError
// and the caller's previous result stays authoritative.
func (f *Fetcher) Fetch(ctx context.Context, q PageQuery) (PageResult, error) {
	res, _, err := f.fetch(ctx, q)
	return res, err
}

// FetchAll walks every page of the query starting at page 1 and returns the
// concatenated rows.
func (f *Fetcher) FetchAll(ctx context.Context, q PageQuery) ([]Row, error) {
	q.Page = 1
	first, pages, err := f.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := append([]Row(nil), first.Rows...)
	for page := 2; page <= pages; page++ {
		q.Page = page
		res, _, err := f.fetch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d of %d: %w", page, pages, err)
		}
		rows = append(rows, res.Rows...)
	}
	return rows, nil
}

func (f *Fetcher) fetch(ctx context.Context, q PageQuery) (PageResult, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		return PageResult{}, 0, newFetchError(nil, "invalid page size %d", q.PageSize)
	}
	params := f.Params(q)
	key, err := json.Marshal(params)
	if err != nil {
		return PageResult{}, 0, newFetchError(err, "encoding query")
	}

	resp, err, _ := f.group.Do(f.operationID+"|"+string(key), func() (any, error) {
		return f.requester.Request(ctx, f.operationID, params)
	})
	if err != nil {
		return PageResult{}, 0, newFetchError(err, "request failed")
	}

	var env pageEnvelope
	if err := decodeResponse(resp, &env); err != nil {
		return PageResult{}, 0, newFetchError(err, "parsing response")
	}
	return f.validate(q, env)
}

func (f *Fetcher) validate(q PageQuery, env pageEnvelope) (PageResult, int, error) {
	if env.RowCount < 0 {
		return PageResult{}, 0, newFetchError(nil, "negative row count %d", env.RowCount)
	}
	size := env.PageSize
	if size <= 0 {
		size = q.PageSize
	}
	if len(env.Results) > size {
		return PageResult{}, 0, newFetchError(nil, "page holds %d rows, more than page size %d", len(env.Results), size)
	}
	if f.idField != "" {
		seen := make(map[string]struct{}, len(env.Results))
		for i, r := range env.Results {
			id, ok := r.ID(f.idField)
			if !ok {
				return PageResult{}, 0, newFetchError(nil, "row %d has no %s", i, f.idField)
			}
			if _, dup := seen[id]; dup {
				return PageResult{}, 0, newFetchError(nil, "duplicate %s %q", f.idField, id)
			}
			seen[id] = struct{}{}
		}
	}

	pages := env.PageCount
	if pages <= 0 {
		pages = PageCount(env.RowCount, size)
	}
	current := env.CurrentPage
	if current <= 0 {
		current = q.Page
	}
	current = max(1, min(current, max(PageCount(env.RowCount, size), 1)))

	rows := env.Results
	if rows == nil {
		rows = []Row{}
	}
	return PageResult{
		Rows:          rows,
		TotalRowCount: env.RowCount,
		CurrentPage:   current,
		PageSize:      size,
	}, pages, nil
}

// decodeResponse normalises a string, byte slice or already-decoded response
// into v. Numbers inside maps decode as json.Number so identifiers keep their
// exact text.
func decodeResponse(resp any, v any) error {
	var data []byte
	switch r := resp.(type) {
	case nil:
		return errEmptyResponse
	case string:
		data = []byte(r)
	case []byte:
		data = r
	case json.RawMessage:
		data = r
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		data = b
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return errEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeRecord turns a mutation response into a Row. A falsy response is
// ErrEmptyMutationResult.
func decodeRecord(resp any) (Row, error) {
	if !Truthy(resp) {
		return nil, ErrEmptyMutationResult
	}
	var rec Row
	if err := decodeResponse(resp, &rec); err != nil {
		if errors.Is(err, errEmptyResponse) {
			return nil, ErrEmptyMutationResult
		}
		return nil, fmt.Errorf("decoding saved record: %w", err)
	}
	if len(rec) == 0 {
		return nil, ErrEmptyMutationResult
	}
	return rec, nil
}

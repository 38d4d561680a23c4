// Package upstream is an in-memory request service seeded from a YAML
// fixture. It answers the same paged-query and mutation operations as the
// real remote service and backs the console's demo mode and tests.
package upstream

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/admingrid/admingrid/internal/grid"
)

//go:embed demo.yaml
var demoFixture []byte

var (
	// ErrUnknownOperation is returned for an operation id no table serves.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNotFound is returned when an update names a missing record.
	ErrNotFound = errors.New("record not found")
)

// Fixture is the on-disk seed format.
type Fixture struct {
	Tables map[string]TableFixture `yaml:"tables"`
}

// TableFixture describes one table and the operations that reach it.
type TableFixture struct {
	IDField  string `yaml:"id_field"`
	IDParam  string `yaml:"id_param"`
	QueryOp  string `yaml:"query_op"`
	UpdateOp string `yaml:"update_op"`
	CreateOp string `yaml:"create_op"`
	// Params maps mutation parameter names to field names.
	Params       map[string]string `yaml:"params"`
	SearchFields []string          `yaml:"search_fields"`
	StatusParam  string            `yaml:"status_param"`
	ActiveField  string            `yaml:"active_field"`
	StatusCodes  struct {
		Active   int `yaml:"active"`
		Inactive int `yaml:"inactive"`
		Both     int `yaml:"both"`
	} `yaml:"status_codes"`
	Rows []map[string]any `yaml:"rows"`
}

type opKind int

const (
	opQuery opKind = iota
	opUpdate
	opCreate
)

type route struct {
	table string
	kind  opKind
}

type table struct {
	name string
	def  TableFixture
	rows []grid.Row
}

// Store is a concurrency-safe in-memory request service.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	routes map[string]route
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML.
func ParseFixture(data []byte) (*Fixture, error) {
	f := &Fixture{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return f, nil
}

// DemoFixture returns the built-in demo data set.
func DemoFixture() *Fixture {
	f, err := ParseFixture(demoFixture)
	if err != nil {
		panic(err)
	}
	return f
}

// NewStore builds a Store from a fixture. Two tables claiming the same
// operation id is an error.
func NewStore(f *Fixture) (*Store, error) {
	s := &Store{
		tables: make(map[string]*table, len(f.Tables)),
		routes: make(map[string]route),
	}
	for name, def := range f.Tables {
		if def.IDField == "" {
			return nil, fmt.Errorf("table %q: id_field is required", name)
		}
		t := &table{name: name, def: def}
		for _, r := range def.Rows {
			t.rows = append(t.rows, grid.Row(r))
		}
		s.tables[name] = t
		for op, kind := range map[string]opKind{def.QueryOp: opQuery, def.UpdateOp: opUpdate, def.CreateOp: opCreate} {
			if op == "" {
				continue
			}
			if prev, ok := s.routes[op]; ok {
				return nil, fmt.Errorf("operation %s claimed by %q and %q", op, prev.table, name)
			}
			s.routes[op] = route{table: name, kind: kind}
		}
	}
	return s, nil
}

// Tables returns the table names in sorted order.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tables))
}

// Len returns the number of rows in a table.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[name]; ok {
		return len(t.rows)
	}
	return 0
}

// Request implements grid.Requester. Responses are JSON strings, as the
// remote service returns them.
func (s *Store) Request(ctx context.Context, operationID string, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	r, ok := s.routes[operationID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownOperation, operationID)
	}

	var (
		out any
		err error
	)
	switch r.kind {
	case opQuery:
		out = s.query(r.table, params)
	case opUpdate:
		out, err = s.update(r.table, params)
	case opCreate:
		out, err = s.create(r.table, params)
	}
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return string(b), nil
}

type envelope struct {
	Results     []grid.Row `json:"Results"`
	RowCount    int        `json:"RowCount"`
	CurrentPage int        `json:"CurrentPage"`
	PageSize    int        `json:"PageSize"`
	PageCount   int        `json:"PageCount"`
}

func (s *Store) query(name string, params map[string]any) envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tables[name]

	page := max(toInt(params["page"], 1), 1)
	size := toInt(params["pageSize"], 10)
	if size <= 0 {
		size = 10
	}
	term := strings.ToLower(strings.TrimSpace(grid.Stringify(params["search"])))

	var matched []grid.Row
	for _, row := range t.rows {
		if !t.matchesStatus(row, params) {
			continue
		}
		if term != "" && !t.matchesSearch(row, term) {
			continue
		}
		matched = append(matched, row)
	}

	pages := grid.PageCount(len(matched), size)
	page = min(page, max(pages, 1))
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))

	results := make([]grid.Row, 0, end-start)
	for _, row := range matched[start:end] {
		results = append(results, row.Clone())
	}
	return envelope{
		Results:     results,
		RowCount:    len(matched),
		CurrentPage: page,
		PageSize:    size,
		PageCount:   pages,
	}
}

func (t *table) matchesStatus(row grid.Row, params map[string]any) bool {
	if t.def.StatusParam == "" || t.def.ActiveField == "" {
		return true
	}
	v, ok := params[t.def.StatusParam]
	if !ok {
		return true
	}
	active := grid.Truthy(row[t.def.ActiveField])
	switch toInt(v, t.def.StatusCodes.Both) {
	case t.def.StatusCodes.Active:
		return active
	case t.def.StatusCodes.Inactive:
		return !active
	default:
		return true
	}
}

func (t *table) matchesSearch(row grid.Row, term string) bool {
	fields := t.def.SearchFields
	if len(fields) == 0 {
		fields = slices.Collect(maps.Keys(row))
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(grid.Stringify(row[f])), term) {
			return true
		}
	}
	return false
}

func (s *Store) update(name string, params map[string]any) (grid.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[name]

	idParam := t.def.IDParam
	if idParam == "" {
		idParam = t.def.IDField
	}
	id := grid.Stringify(params[idParam])
	for _, row := range t.rows {
		if rid, _ := row.ID(t.def.IDField); rid == id {
			t.apply(row, params, idParam)
			return row.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t.def.IDField, id)
}

func (s *Store) create(name string, params map[string]any) (grid.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[name]

	next := 1
	for _, row := range t.rows {
		next = max(next, toInt(row[t.def.IDField], 0)+1)
	}
	row := grid.Row{t.def.IDField: next}
	if t.def.ActiveField != "" {
		row[t.def.ActiveField] = true
	}
	t.apply(row, params, "")
	t.rows = append(t.rows, row)
	return row.Clone(), nil
}

// apply copies mutation params onto row through the param-to-field map.
func (t *table) apply(row grid.Row, params map[string]any, skip string) {
	for param, v := range params {
		if param == skip {
			continue
		}
		field, ok := t.def.Params[param]
		if !ok {
			if _, known := row[param]; !known {
				continue
			}
			field = param
		}
		if field == t.def.IDField {
			continue
		}
		row[field] = v
	}
}

func toInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

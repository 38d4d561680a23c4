package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultPageSize       = 5
	DefaultSearchDebounce = 250 * time.Millisecond
	DefaultNotifyDuration = 3 * time.Second
)

// Observer receives pipeline outcomes. The metrics collector implements it.
type Observer interface {
	FetchCompleted(entity string, d time.Duration, err error)
	StaleResponse(entity string)
	SaveCompleted(entity string, err error)
}

type nopObserver struct{}

func (nopObserver) FetchCompleted(string, time.Duration, error) {}
func (nopObserver) StaleResponse(string)                        {}
func (nopObserver) SaveCompleted(string, error)                 {}

// Mount is the set of caller-owned container nodes the grid writes into.
// The grid owns their children for its lifetime and never touches anything
// outside them.
type Mount struct {
	Table      *html.Node
	Pagination *html.Node
	Count      *html.Node
}

// Options configures an Orchestrator.
type Options struct {
	Entity string
	// Label is the singular display name used in notifications.
	Label string

	OperationID       string
	UpdateOperationID string
	CreateOperationID string

	IDField string
	// IDParam is the mutation parameter carrying the row id. It defaults to
	// IDField.
	IDParam string

	Columns      []ColumnSpec
	Fields       []FieldSpec
	CreateFields []FieldSpec
	// Detail renders the accordion panel. When nil and Fields is set, the
	// standard field table is used.
	Detail DetailRenderer

	PageSize int
	Status   *StatusCodes
	Extra    map[string]any

	SearchDebounce    time.Duration
	NotifyDuration    time.Duration
	NumberedPageLimit int

	Observer Observer
	Logger   *slog.Logger
}

// Tuning holds the settings that can change while a grid is live.
type Tuning struct {
	PageSize          int
	SearchDebounce    time.Duration
	NotifyDuration    time.Duration
	NumberedPageLimit int
}

// GridState is the live state of one grid. Every field and every write to
// the mounted nodes is guarded by mu, which is never held across a remote
// call.
type GridState struct {
	mu     sync.Mutex
	query  PageQuery
	result PageResult
	rows   []Row
	mount  *Mount
	seq    uint64
	sort   SortState
}

// Orchestrator coordinates fetches, rendering, pagination, status filtering
// and inline editing for one grid.
type Orchestrator struct {
	st        *GridState
	settings  Options
	requester Requester
	fetcher   *Fetcher
	sink      NotificationSink
	renderer  Renderer
	observer  Observer
	log       *slog.Logger
	editor    *RowEditController

	debounceMu sync.Mutex
	pending    *pendingSearch
}

type pendingSearch struct {
	timer *time.Timer
	done  chan error
}

// New creates an Orchestrator writing into mount. Nothing is fetched until
// Load is called.
func New(r Requester, mount Mount, sink NotificationSink, opts Options) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SearchDebounce < 0 {
		opts.SearchDebounce = 0
	} else if opts.SearchDebounce == 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	if opts.NotifyDuration <= 0 {
		opts.NotifyDuration = DefaultNotifyDuration
	}
	if opts.NumberedPageLimit <= 0 {
		opts.NumberedPageLimit = DefaultNumberedPageLimit
	}
	if opts.Label == "" {
		opts.Label = opts.Entity
	}
	if opts.Detail == nil && len(opts.Fields) > 0 {
		opts.Detail = FieldDetail(opts.IDField, opts.Fields)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if sink == nil {
		sink = discardSink{}
	}

	var codes StatusCodes
	query := PageQuery{Page: 1, PageSize: opts.PageSize, Extra: opts.Extra}
	if opts.Status != nil {
		codes = *opts.Status
		both := BothStatuses()
		query.Status = &both
	}

	o := &Orchestrator{
		st:        &GridState{query: query.clone(), mount: &mount},
		settings:  opts,
		requester: r,
		fetcher:   NewFetcher(r, opts.OperationID, opts.IDField, codes),
		sink:      sink,
		renderer:  Renderer{IDField: opts.IDField},
		observer:  opts.Observer,
		log:       opts.Logger.With("entity", opts.Entity),
	}
	o.editor = newRowEditController(o, opts.Fields)
	return o
}

// Load runs the pipeline for the current query.
func (o *Orchestrator) Load(ctx context.Context) error {
	return o.run(ctx, nil)
}

// Refresh re-fetches the current page with the current search and filter.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	return o.run(ctx, nil)
}

// Search resets to page 1 and fetches with term.
func (o *Orchestrator) Search(ctx context.Context, term string) error {
	return o.run(ctx, func(q *PageQuery) {
		q.Page = 1
		q.SearchTerm = term
	})
}

// SearchInput is Search behind the search debounce. The returned channel
// receives the outcome, or ErrSuperseded if a later keystroke replaced this
// one before it fired.
func (o *Orchestrator) SearchInput(term string) <-chan error {
	o.st.mu.Lock()
	d := o.settings.SearchDebounce
	o.st.mu.Unlock()

	done := make(chan error, 1)
	o.debounceMu.Lock()
	defer o.debounceMu.Unlock()
	if prev := o.pending; prev != nil && prev.timer.Stop() {
		prev.done <- ErrSuperseded
	}
	p := &pendingSearch{done: done}
	p.timer = time.AfterFunc(d, func() {
		o.debounceMu.Lock()
		if o.pending == p {
			o.pending = nil
		}
		o.debounceMu.Unlock()
		done <- o.Search(context.Background(), term)
	})
	o.pending = p
	return done
}

// GoToPage fetches page. A page outside [1, pageCount] is rejected without
// a fetch.
func (o *Orchestrator) GoToPage(ctx context.Context, page int) error {
	return o.SubmitPageInput(ctx, strconv.Itoa(page))
}

// SubmitPageInput validates a typed page number and fetches it. Invalid
// input resets the page input to the current page and notifies the user.
func (o *Orchestrator) SubmitPageInput(ctx context.Context, raw string) error {
	st := o.st
	st.mu.Lock()
	if st.mount == nil {
		st.mu.Unlock()
		return nil
	}
	page, err := ParsePageInput(raw, st.result.PageCount())
	if err != nil {
		ResetInput(st.mount.Pagination, st.query.Page)
		o.notify(err.Error(), KindError)
		st.mu.Unlock()
		return err
	}
	st.mu.Unlock()
	return o.run(ctx, func(q *PageQuery) { q.Page = page })
}

// ToggleStatus flips one side of the status filter and fetches page 1. At
// least one side always stays selected.
func (o *Orchestrator) ToggleStatus(ctx context.Context, kind StatusKind) error {
	o.st.mu.Lock()
	enabled := o.st.query.Status != nil
	o.st.mu.Unlock()
	if !enabled {
		return ErrStatusFilterDisabled
	}
	return o.run(ctx, func(q *PageQuery) {
		f := q.Status.Toggle(kind)
		q.Status = &f
		q.Page = 1
	})
}

// Add validates form against the create fields, submits it and refreshes
// from page 1 keeping the search term. A *ValidationError is notified and
// returned without contacting the remote service.
func (o *Orchestrator) Add(ctx context.Context, form map[string]string) (Row, error) {
	st := o.st
	st.mu.Lock()
	if st.mount == nil {
		st.mu.Unlock()
		return nil, nil
	}
	settings := o.settings
	st.mu.Unlock()

	if settings.CreateOperationID == "" {
		return nil, fmt.Errorf("%s does not support create", settings.Entity)
	}
	var verr ValidationError
	payload := make(map[string]any, len(settings.CreateFields)+len(settings.Extra))
	for k, v := range settings.Extra {
		payload[k] = v
	}
	for _, f := range settings.CreateFields {
		v := form[f.Key]
		if f.missing(v) {
			verr.add(f)
			continue
		}
		payload[f.param()] = f.payloadValue(v)
	}
	if len(verr.Keys) > 0 {
		st.mu.Lock()
		o.notify("Error: "+verr.Error(), KindError)
		st.mu.Unlock()
		return nil, &verr
	}

	resp, err := o.requester.Request(ctx, settings.CreateOperationID, payload)
	var rec Row
	if err == nil {
		rec, err = decodeRecord(resp)
	}
	o.observer.SaveCompleted(settings.Entity, err)
	if err != nil {
		o.log.Warn("create failed", "error", err)
		st.mu.Lock()
		o.notify("Error: "+err.Error(), KindError)
		st.mu.Unlock()
		return nil, err
	}

	st.mu.Lock()
	o.notify(settings.Label+" created successfully!", KindSuccess)
	st.mu.Unlock()

	err = o.run(ctx, func(q *PageQuery) { q.Page = 1 })
	if errors.Is(err, ErrSuperseded) {
		err = nil
	}
	return rec, err
}

// BeginEdit opens the edit session for the row.
func (o *Orchestrator) BeginEdit(id string) error { return o.editor.Begin(id) }

// SetField records a typed value in the open edit session.
func (o *Orchestrator) SetField(id, field, value string) error {
	return o.editor.SetField(id, field, value)
}

// CancelEdit discards the open edit session.
func (o *Orchestrator) CancelEdit(id string) error { return o.editor.Cancel(id) }

// SaveEdit submits the open edit session.
func (o *Orchestrator) SaveEdit(ctx context.Context, id string) error {
	return o.editor.Save(ctx, id)
}

// ToggleDetail expands or collapses the detail row paired with the row.
func (o *Orchestrator) ToggleDetail(id string) error {
	st := o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	trigger := Find(st.mount.Table, All(ByClass(classTrigger), ByAttr("data-id", id)))
	if trigger == nil {
		return ErrRowNotFound
	}
	toggleDetail(st.mount.Table, trigger)
	return nil
}

// Tune applies new live settings. A changed page size takes effect on the
// next fetch, starting again from page 1.
func (o *Orchestrator) Tune(t Tuning) {
	st := o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if t.PageSize > 0 && t.PageSize != st.query.PageSize {
		st.query.PageSize = t.PageSize
		st.query.Page = 1
		o.settings.PageSize = t.PageSize
	}
	if t.SearchDebounce > 0 {
		o.settings.SearchDebounce = t.SearchDebounce
	}
	if t.NotifyDuration > 0 {
		o.settings.NotifyDuration = t.NotifyDuration
	}
	if t.NumberedPageLimit > 0 {
		o.settings.NumberedPageLimit = t.NumberedPageLimit
	}
}

// Detach releases the mount. Every later operation is a no-op.
func (o *Orchestrator) Detach() {
	o.st.mu.Lock()
	o.st.mount = nil
	o.editor.session = nil
	o.st.mu.Unlock()

	o.debounceMu.Lock()
	if p := o.pending; p != nil && p.timer.Stop() {
		p.done <- nil
	}
	o.pending = nil
	o.debounceMu.Unlock()
}

// Query returns a copy of the live query.
func (o *Orchestrator) Query() PageQuery {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return o.st.query.clone()
}

// Result returns the last successful page result.
func (o *Orchestrator) Result() PageResult {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return o.st.result
}

// Rows returns the rows currently displayed after client filtering.
func (o *Orchestrator) Rows() []Row {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return append([]Row(nil), o.st.rows...)
}

// Session returns a copy of the open edit session, or nil.
func (o *Orchestrator) Session() *EditSession {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return o.editor.session.clone()
}

// Settings returns the options the grid was built with, including tuning.
func (o *Orchestrator) Settings() Options {
	o.st.mu.Lock()
	defer o.st.mu.Unlock()
	return o.settings
}

// Snapshot is the serialized content of the mounted containers.
type Snapshot struct {
	Table      string `json:"table"`
	Pagination string `json:"pagination"`
	Count      string `json:"count"`
	Status     string `json:"status,omitempty"`
}

// Snapshot serializes the mounted containers. It is empty after Detach.
func (o *Orchestrator) Snapshot() Snapshot {
	st := o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return Snapshot{}
	}
	s := Snapshot{
		Table:      InnerHTML(st.mount.Table),
		Pagination: InnerHTML(st.mount.Pagination),
		Count:      TextContent(st.mount.Count),
	}
	if st.query.Status != nil {
		s.Status = st.query.Status.String()
	}
	return s
}

// run applies mutate to the query, fetches, and renders the result unless a
// newer run was started in the meantime.
func (o *Orchestrator) run(ctx context.Context, mutate func(q *PageQuery)) error {
	st := o.st
	st.mu.Lock()
	if st.mount == nil {
		st.mu.Unlock()
		return nil
	}
	if mutate != nil {
		mutate(&st.query)
	}
	st.seq++
	seq := st.seq
	q := st.query.clone()
	entity := o.settings.Entity
	st.mu.Unlock()

	start := time.Now()
	res, err := o.fetcher.Fetch(ctx, q)
	if err == nil && res.CurrentPage != q.Page {
		// The requested page no longer exists. Fetch the page the server
		// clamped to so the rows match the pagination.
		q.Page = res.CurrentPage
		res, err = o.fetcher.Fetch(ctx, q)
	}
	o.observer.FetchCompleted(entity, time.Since(start), err)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	if seq != st.seq {
		o.observer.StaleResponse(entity)
		o.log.Debug("discarding stale page", "page", q.Page, "search", q.SearchTerm)
		return ErrSuperseded
	}
	if err != nil {
		o.log.Error("fetch failed", "page", q.Page, "error", err)
		o.showError(err)
		return err
	}
	o.apply(res)
	return nil
}

// apply renders res. Called with the lock held.
func (o *Orchestrator) apply(res PageResult) {
	st := o.st
	m := st.mount
	st.result = res
	st.query.Page = res.CurrentPage
	st.rows = SortRows(Filter(res.Rows, st.query.SearchTerm), st.sort)
	o.editor.reset()

	o.renderer.Sort = st.sort
	o.renderer.Render(m.Table, o.settings.Columns, st.rows, o.settings.Detail)
	Pagination{NumberedLimit: o.settings.NumberedPageLimit}.Render(m.Pagination, res.TotalRowCount, res.PageSize, res.CurrentPage)
	if m.Count != nil {
		SetText(m.Count, strconv.Itoa(res.TotalRowCount))
	}
}

// showError replaces the table with a single error block. Called with the
// lock held.
func (o *Orchestrator) showError(err error) {
	m := o.st.mount
	o.st.rows = nil
	o.editor.reset()
	if m.Table != nil {
		Clear(m.Table)
		div := Element("div", "class", "grid-error", "role", "alert")
		div.AppendChild(Text("Error loading data: " + err.Error()))
		m.Table.AppendChild(div)
	}
	if m.Pagination != nil {
		Clear(m.Pagination)
	}
}

// displayedRow returns the displayed row with the given id. Called with the
// lock held.
func (o *Orchestrator) displayedRow(id string) Row {
	for _, r := range o.st.rows {
		if rid, ok := r.ID(o.settings.IDField); ok && rid == id {
			return r
		}
	}
	return nil
}

// notify sends a message with the configured duration. Called with the lock
// held so the duration read is consistent.
func (o *Orchestrator) notify(message string, kind Kind) {
	o.sink.Notify(message, kind, o.settings.NotifyDuration)
}

// ActionKind names a user interaction the grid responds to.
type ActionKind string

const (
	ActionToggle    ActionKind = "toggle"
	ActionEdit      ActionKind = "edit"
	ActionCancel    ActionKind = "cancel"
	ActionSave      ActionKind = "save"
	ActionInput     ActionKind = "input"
	ActionPage      ActionKind = "page"
	ActionPageInput ActionKind = "page-input"
	ActionStatus    ActionKind = "status"
	ActionSearch    ActionKind = "search"
	ActionSort      ActionKind = "sort"
)

// Action is a resolved user interaction.
type Action struct {
	Kind   ActionKind
	RowID  string
	Field  string
	Value  string
	Page   int
	Status StatusKind
}

// Do performs a.
func (o *Orchestrator) Do(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionToggle:
		return o.ToggleDetail(a.RowID)
	case ActionEdit:
		return o.BeginEdit(a.RowID)
	case ActionCancel:
		return o.CancelEdit(a.RowID)
	case ActionSave:
		return o.SaveEdit(ctx, a.RowID)
	case ActionInput:
		return o.SetField(a.RowID, a.Field, a.Value)
	case ActionPage:
		return o.GoToPage(ctx, a.Page)
	case ActionPageInput:
		return o.SubmitPageInput(ctx, a.Value)
	case ActionStatus:
		return o.ToggleStatus(ctx, a.Status)
	case ActionSearch:
		return o.Search(ctx, a.Value)
	case ActionSort:
		return o.Sort(a.Field)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}

// Event is a DOM event delivered to the grid's containers.
type Event struct {
	// Type is click, input, change or keydown.
	Type   string
	Target *html.Node
	// Value is the target control's new value for input and change events.
	Value string
	Key   string
}

// Dispatch resolves ev to the nearest element carrying data-action inside the
// mounted containers and performs it. Events outside the containers, on
// disabled controls, or of a type the action ignores are dropped.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) error {
	st := o.st
	st.mu.Lock()
	if st.mount == nil || ev.Target == nil {
		st.mu.Unlock()
		return nil
	}
	var el, root *html.Node
	for _, r := range []*html.Node{st.mount.Table, st.mount.Pagination} {
		if r == nil {
			continue
		}
		if n := Closest(ev.Target, r, HasAttr("data-action")); n != nil {
			el, root = n, r
			break
		}
	}
	if el == nil {
		st.mu.Unlock()
		return nil
	}
	if _, disabled := Attr(el, "disabled"); disabled {
		st.mu.Unlock()
		return nil
	}

	kind, _ := Attr(el, "data-action")
	a := Action{Kind: ActionKind(kind), Value: ev.Value}
	if holder := Closest(el, root, HasAttr("data-id")); holder != nil {
		a.RowID, _ = Attr(holder, "data-id")
	}
	a.Field, _ = Attr(el, "data-field")
	if a.Kind == ActionSort {
		a.Field, _ = Attr(el, "data-column")
	}
	if p, ok := Attr(el, "data-page"); ok {
		a.Page, _ = strconv.Atoi(p)
	}
	if a.Kind == ActionPageInput && a.Value == "" {
		a.Value, _ = Attr(el, "value")
	}
	st.mu.Unlock()

	if !accepts(a.Kind, ev) {
		return nil
	}
	return o.Do(ctx, a)
}

func accepts(kind ActionKind, ev Event) bool {
	switch kind {
	case ActionInput:
		return ev.Type == "input" || ev.Type == "change"
	case ActionPageInput:
		return ev.Type == "change" || (ev.Type == "keydown" && strings.EqualFold(ev.Key, "Enter"))
	default:
		return ev.Type == "click"
	}
}

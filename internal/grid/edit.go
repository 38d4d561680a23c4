package grid

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/net/html"
)

// EditStatus is the state of an EditSession.
type EditStatus int

const (
	Viewing EditStatus = iota
	Editing
	Saving
)

func (s EditStatus) String() string {
	switch s {
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "viewing"
	}
}

// EditSession is the editable state of the one expanded row being edited.
type EditSession struct {
	RowID  string
	Values map[string]string
	Status EditStatus
}

func (s *EditSession) clone() *EditSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Values = maps.Clone(s.Values)
	return &c
}

const (
	saveLabel = "Save Changes"
	busyLabel = "Saving..."
)

// RowEditController runs the Viewing/Editing/Saving state machine for a
// single row at a time. Every method takes the grid lock itself.
type RowEditController struct {
	o       *Orchestrator
	fields  []FieldSpec
	session *EditSession
}

func newRowEditController(o *Orchestrator, fields []FieldSpec) *RowEditController {
	return &RowEditController{o: o, fields: fields}
}

// Begin opens an edit session on the row. A second row cannot be edited
// while another session is open.
func (e *RowEditController) Begin(id string) error {
	st := e.o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	if s := e.session; s != nil {
		if s.RowID != id {
			e.o.notify("Finish editing the open row before editing another.", KindError)
			return ErrEditInProgress
		}
		if s.Status == Saving {
			return ErrSaveInProgress
		}
		return nil
	}
	row := e.o.displayedRow(id)
	body := e.body(id)
	if row == nil || body == nil {
		return ErrRowNotFound
	}
	values := e.formValues(row)
	setInputs(body, values)
	setEditMode(body, true)
	e.session = &EditSession{RowID: id, Values: values, Status: Editing}
	return nil
}

// SetField records a typed value for the open session.
func (e *RowEditController) SetField(id, field, value string) error {
	st := e.o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	s, err := e.open(id)
	if err != nil {
		return err
	}
	if _, ok := s.Values[field]; !ok {
		return fmt.Errorf("field %q is not editable", field)
	}
	s.Values[field] = value
	if body := e.body(id); body != nil {
		setInputs(body, map[string]string{field: value})
	}
	return nil
}

// Cancel discards the session's edits and returns the row to view mode.
func (e *RowEditController) Cancel(id string) error {
	st := e.o.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return nil
	}
	if _, err := e.open(id); err != nil {
		return err
	}
	if body := e.body(id); body != nil {
		if row := e.o.displayedRow(id); row != nil {
			setInputs(body, e.formValues(row))
		}
		setEditMode(body, false)
	}
	e.session = nil
	return nil
}

// Save submits the session's values. The save button is disabled with a busy
// label for the duration of the call and always restored afterwards. On
// success the returned record is merged into the row and patched into the
// summary row and detail panel. On failure the session returns to Editing
// with the typed values intact.
func (e *RowEditController) Save(ctx context.Context, id string) error {
	o := e.o
	st := o.st
	st.mu.Lock()
	if st.mount == nil {
		st.mu.Unlock()
		return nil
	}
	s, err := e.open(id)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	row := o.displayedRow(id)
	if row == nil {
		e.session = nil
		st.mu.Unlock()
		return ErrRowNotFound
	}
	if verr := e.validate(s.Values); verr != nil {
		e.markInvalid(id, verr.Keys)
		o.notify("Error: "+verr.Error(), KindError)
		st.mu.Unlock()
		return verr
	}
	payload := e.payload(row, s.Values)
	s.Status = Saving
	setBusy(e.saveButton(id), true)
	settings := o.settings
	st.mu.Unlock()

	defer func() {
		st.mu.Lock()
		if st.mount != nil {
			setBusy(e.saveButton(id), false)
		}
		st.mu.Unlock()
	}()

	resp, err := o.requester.Request(ctx, settings.UpdateOperationID, payload)
	var rec Row
	if err == nil {
		rec, err = decodeRecord(resp)
	}
	o.observer.SaveCompleted(settings.Entity, err)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.mount == nil {
		return err
	}
	if err != nil {
		o.log.Warn("save failed", "id", id, "error", err)
		s.Status = Editing
		if body := e.body(id); body != nil && o.displayedRow(id) != nil {
			setInputs(body, s.Values)
			setEditMode(body, true)
		} else {
			e.session = nil
		}
		o.notify("Error: "+err.Error(), KindError)
		return err
	}

	e.session = nil
	if cur := o.displayedRow(id); cur != nil {
		maps.Copy(cur, rec)
		o.renderer.PatchRow(st.mount.Table, settings.Columns, id, cur)
		if body := e.body(id); body != nil {
			e.refreshView(body, cur)
			setInputs(body, e.formValues(cur))
			setEditMode(body, false)
		}
	} else {
		o.log.Debug("saved row left the page", "id", id)
	}
	o.notify(settings.Label+" edited successfully!", KindSuccess)
	return nil
}

// reset drops a session that is not mid-save. Called with the lock held
// whenever the table is rebuilt.
func (e *RowEditController) reset() {
	if e.session != nil && e.session.Status != Saving {
		e.session = nil
	}
}

func (e *RowEditController) open(id string) (*EditSession, error) {
	s := e.session
	if s == nil || s.RowID != id {
		return nil, ErrNoSession
	}
	if s.Status == Saving {
		return nil, ErrSaveInProgress
	}
	return s, nil
}

func (e *RowEditController) validate(values map[string]string) *ValidationError {
	var verr ValidationError
	for _, f := range e.fields {
		if v, ok := values[f.Key]; ok && f.missing(v) {
			verr.add(f)
		}
	}
	if len(verr.Keys) == 0 {
		return nil
	}
	return &verr
}

func (e *RowEditController) payload(row Row, values map[string]string) map[string]any {
	settings := e.o.settings
	p := make(map[string]any, len(values)+1)
	idParam := settings.IDParam
	if idParam == "" {
		idParam = settings.IDField
	}
	p[idParam] = row[settings.IDField]
	for _, f := range e.fields {
		if f.Editable {
			f.addPayload(p, row, values)
		}
	}
	return p
}

func (e *RowEditController) formValues(row Row) map[string]string {
	values := make(map[string]string, len(e.fields))
	for _, f := range e.fields {
		if f.Editable {
			f.formValues(row, values)
		}
	}
	return values
}

func (e *RowEditController) refreshView(body *html.Node, row Row) {
	for _, f := range e.fields {
		if f.Kind == FieldMap {
			_, values := f.entries(row)
			for name, v := range values {
				if span := Find(body, All(ByClass("view-value"), ByAttr("data-field", f.entryKey(name)))); span != nil {
					SetText(span, v)
				}
			}
			continue
		}
		if span := Find(body, All(ByClass("view-value"), ByAttr("data-field", f.Key))); span != nil {
			SetText(span, f.display(row))
		}
	}
}

func (e *RowEditController) markInvalid(id string, keys []string) {
	body := e.body(id)
	if body == nil {
		return
	}
	bad := make(map[string]bool, len(keys))
	for _, k := range keys {
		bad[k] = true
	}
	for _, f := range e.fields {
		if in := Find(body, All(ByClass("edit-input"), ByAttr("data-field", f.Key))); in != nil {
			ToggleClass(in, "invalid", bad[f.Key])
		}
	}
}

func (e *RowEditController) body(id string) *html.Node {
	m := e.o.st.mount
	if m == nil {
		return nil
	}
	return Find(m.Table, All(ByClass("accordion-body"), ByAttr("data-id", id)))
}

func (e *RowEditController) saveButton(id string) *html.Node {
	body := e.body(id)
	if body == nil {
		return nil
	}
	return Find(body, ByClass("btn-save"))
}

func setEditMode(body *html.Node, editing bool) {
	for _, n := range FindAll(body, ByClass("view-state")) {
		ToggleClass(n, classHidden, editing)
	}
	for _, n := range FindAll(body, ByClass("edit-state")) {
		ToggleClass(n, classHidden, !editing)
	}
}

func setInputs(body *html.Node, values map[string]string) {
	for _, in := range FindAll(body, All(ByClass("edit-input"), HasAttr("data-field"))) {
		field, _ := Attr(in, "data-field")
		v, ok := values[field]
		if !ok {
			continue
		}
		ToggleClass(in, "invalid", false)
		switch {
		case in.Data == "textarea":
			SetText(in, v)
		case isCheckbox(in):
			if Truthy(v) {
				SetAttr(in, "checked", "")
			} else {
				RemoveAttr(in, "checked")
			}
		default:
			SetAttr(in, "value", v)
		}
	}
}

func isCheckbox(n *html.Node) bool {
	t, _ := Attr(n, "type")
	return t == "checkbox"
}

func setBusy(btn *html.Node, busy bool) {
	if btn == nil {
		return
	}
	if busy {
		SetAttr(btn, "disabled", "")
		SetText(btn, busyLabel)
		return
	}
	RemoveAttr(btn, "disabled")
	SetText(btn, saveLabel)
}

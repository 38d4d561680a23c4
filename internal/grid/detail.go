package grid

import (
	"bytes"
	"html/template"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// FieldKind selects the edit control rendered for a field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldCheckbox FieldKind = "checkbox"
	// FieldMap is a nested name/value object whose entries are listed and
	// edited one text input each. Entry values are addressed as "Key.name".
	FieldMap FieldKind = "map"
)

// FieldSpec describes one record field shown in the detail panel and, when
// Editable, in the inline edit form and the create form.
type FieldSpec struct {
	Key   string
	Label string
	// Param is the mutation parameter name. It defaults to Key. A map field
	// sends all of its entries under Param.
	Param    string
	Kind     FieldKind
	Editable bool
	Required bool
	// NameParam and ValueParam, when set on a map field, also send the first
	// changed entry (or the first entry if none changed) as a name/value pair.
	NameParam  string
	ValueParam string
	// Format renders the read-only value. Nil values show as empty text and
	// checkboxes as Yes/No when Format is unset.
	Format func(value any, row Row) string
}

func (f FieldSpec) param() string {
	if f.Param != "" {
		return f.Param
	}
	return f.Key
}

func (f FieldSpec) display(row Row) string {
	v, _ := row.Lookup(f.Key)
	if f.Format != nil {
		return f.Format(v, row)
	}
	if f.Kind == FieldCheckbox {
		if Truthy(v) {
			return "Yes"
		}
		return "No"
	}
	return Stringify(v)
}

// editValue is the initial form value for the field.
func (f FieldSpec) editValue(row Row) string {
	v, _ := row.Lookup(f.Key)
	if f.Kind == FieldCheckbox {
		return strconv.FormatBool(Truthy(v))
	}
	return Stringify(v)
}

// payloadValue converts a form value into the mutation payload value.
func (f FieldSpec) payloadValue(s string) any {
	if f.Kind == FieldCheckbox {
		return Truthy(s)
	}
	return s
}

func (f FieldSpec) missing(s string) bool {
	if !f.Required {
		return false
	}
	if f.Kind == FieldCheckbox || f.Kind == FieldMap {
		return false
	}
	return strings.TrimSpace(s) == ""
}

// entryKey is the session and data-field key of one map entry.
func (f FieldSpec) entryKey(name string) string {
	return f.Key + "." + name
}

// entries returns a map field's entry names in sorted order with their
// string values.
func (f FieldSpec) entries(row Row) ([]string, map[string]string) {
	v, _ := row.Lookup(f.Key)
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	case Row:
		m = t
	}
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = Stringify(v)
	}
	return slices.Sorted(maps.Keys(values)), values
}

// formValues adds the field's initial form values to dst.
func (f FieldSpec) formValues(row Row, dst map[string]string) {
	if f.Kind != FieldMap {
		dst[f.Key] = f.editValue(row)
		return
	}
	_, values := f.entries(row)
	for name, v := range values {
		dst[f.entryKey(name)] = v
	}
}

// addPayload adds the field's mutation parameters built from the session
// values to p. row is the record before the edit.
func (f FieldSpec) addPayload(p map[string]any, row Row, values map[string]string) {
	if f.Kind != FieldMap {
		if v, ok := values[f.Key]; ok {
			p[f.param()] = f.payloadValue(v)
		}
		return
	}
	names, before := f.entries(row)
	entries := make(map[string]any, len(names))
	pick := ""
	for _, name := range names {
		v, ok := values[f.entryKey(name)]
		if !ok {
			v = before[name]
		}
		entries[name] = v
		if pick == "" && v != before[name] {
			pick = name
		}
	}
	p[f.param()] = entries
	if f.NameParam == "" || f.ValueParam == "" || len(names) == 0 {
		return
	}
	if pick == "" {
		pick = names[0]
	}
	p[f.NameParam] = pick
	p[f.ValueParam] = entries[pick]
}

var detailTmpl = template.Must(template.New("detail").Parse(`<div class="accordion-body" data-id="{{.ID}}">
<table class="detail-table"><tbody>
{{- range .Fields}}
<tr class="detail-row"><td class="detail-label">{{.Label}}</td><td class="detail-value">
{{- if eq .Kind "map"}}
{{- if .Entries}}<table class="detail-fields"><thead><tr><th>Name</th><th>Value</th></tr></thead><tbody>
{{- range .Entries}}
<tr><td>{{.Name}}</td><td>
{{- if .Editable}}<span class="view-state view-value" data-field="{{.Key}}">{{.Value}}</span>
<input type="text" class="edit-state edit-input hidden" data-field="{{.Key}}" data-action="input" value="{{.Value}}">
{{- else}}{{.Value}}{{end -}}
</td></tr>
{{- end}}
</tbody></table>
{{- else}}<span class="no-fields">No fields found.</span>{{end}}
{{- else if .Editable}}<span class="view-state view-value" data-field="{{.Key}}">{{.Display}}</span>
{{- if eq .Kind "textarea"}}<textarea class="edit-state edit-input hidden" data-field="{{.Key}}" data-action="input" rows="3">{{.Value}}</textarea>
{{- else if eq .Kind "checkbox"}}<input type="checkbox" class="edit-state edit-input hidden" data-field="{{.Key}}" data-action="input"{{if .Checked}} checked{{end}}>
{{- else}}<input type="text" class="edit-state edit-input hidden" data-field="{{.Key}}" data-action="input" value="{{.Value}}">
{{- end}}
{{- else}}{{.Display}}{{end -}}
</td></tr>
{{- end}}
</tbody></table>
{{- if .Editable}}
<div class="detail-actions">
<div class="view-state"><button type="button" class="btn-edit" data-action="edit">Edit</button></div>
<div class="edit-state hidden"><button type="button" class="btn-cancel" data-action="cancel">Cancel</button><button type="button" class="btn-save" data-action="save">Save Changes</button></div>
</div>
{{- end}}
</div>`))

type detailField struct {
	Key      string
	Label    string
	Kind     FieldKind
	Editable bool
	Display  string
	Value    string
	Checked  bool
	Entries  []detailEntry
}

type detailEntry struct {
	Key      string
	Name     string
	Value    string
	Editable bool
}

// FieldDetail returns a DetailRenderer that lists fields in a two-column
// table with view and edit representations for the editable ones.
func FieldDetail(idField string, fields []FieldSpec) DetailRenderer {
	return func(row Row) string {
		id, _ := row.ID(idField)
		data := struct {
			ID       string
			Fields   []detailField
			Editable bool
		}{ID: id}
		for _, f := range fields {
			value := f.editValue(row)
			df := detailField{
				Key:      f.Key,
				Label:    f.Label,
				Kind:     f.Kind,
				Editable: f.Editable,
				Display:  f.display(row),
				Value:    value,
				Checked:  f.Kind == FieldCheckbox && value == "true",
			}
			if f.Kind == FieldMap {
				names, values := f.entries(row)
				for _, name := range names {
					df.Entries = append(df.Entries, detailEntry{Key: f.entryKey(name), Name: name, Value: values[name], Editable: f.Editable})
				}
			}
			data.Fields = append(data.Fields, df)
			if f.Editable {
				data.Editable = true
			}
		}
		var buf bytes.Buffer
		if err := detailTmpl.Execute(&buf, data); err != nil {
			slog.Warn("rendering detail panel failed", "id", id, "error", err)
			return ""
		}
		return buf.String()
	}
}

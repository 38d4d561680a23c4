// Package entities holds the catalogue of administered record types and the
// registry that resolves them by name for the console.
package entities

import (
	"github.com/admingrid/admingrid/internal/grid"
)

// LookupSpec names a remote table read in full to resolve ids to names.
type LookupSpec struct {
	Table       string
	OperationID string
	IDField     string
	NameField   string
}

// Definition describes one administered entity.
type Definition struct {
	Name string
	// Label is the singular display name, Title the plural heading.
	Label string
	Title string

	QueryOp  string
	UpdateOp string
	CreateOp string

	IDField string
	IDParam string

	Columns      []grid.ColumnSpec
	Fields       []grid.FieldSpec
	CreateFields []grid.FieldSpec

	PageSize int
	Status   *grid.StatusCodes
	Lookups  []LookupSpec
}

// Editable reports whether the entity accepts inline edits.
func (d Definition) Editable() bool {
	if d.UpdateOp == "" {
		return false
	}
	for _, f := range d.Fields {
		if f.Editable {
			return true
		}
	}
	return false
}

// Creatable reports whether the entity has a create form.
func (d Definition) Creatable() bool {
	return d.CreateOp != "" && len(d.CreateFields) > 0
}

// Options returns the grid options for the entity. Runtime settings such as
// the debounce and observer are left for the caller.
func (d Definition) Options() grid.Options {
	opts := grid.Options{
		Entity:       d.Name,
		Label:        d.Label,
		OperationID:  d.QueryOp,
		IDField:      d.IDField,
		IDParam:      d.IDParam,
		Columns:      d.Columns,
		Fields:       d.Fields,
		CreateFields: d.CreateFields,
		PageSize:     d.PageSize,
	}
	if d.Editable() {
		opts.UpdateOperationID = d.UpdateOp
	}
	if d.Creatable() {
		opts.CreateOperationID = d.CreateOp
	}
	if d.Status != nil {
		codes := *d.Status
		opts.Status = &codes
	}
	return opts
}

func activeStatus() *grid.StatusCodes {
	return &grid.StatusCodes{Param: "activeStatus", Active: 1, Inactive: 2, Both: 3}
}

var (
	sourceTypeLookup = LookupSpec{Table: "datasourcetypes", OperationID: "13", IDField: "DataSourceTypeID", NameField: "Name"}
	sourceLookup     = LookupSpec{Table: "datasources", OperationID: "5", IDField: "DataSourceID", NameField: "Name"}
)

// Builtin returns the standard catalogue. names resolves lookup columns and
// may be nil.
func Builtin(names NameResolver) []Definition {
	details := grid.ColumnSpec{Key: grid.ActionsKey, Label: "Details", WidthHint: "w-1/12", Render: detailsChevron, Markup: grid.MarkupAlways}
	active := grid.ColumnSpec{Key: "IsActive", Label: "Active", WidthHint: "w-1/12", Render: activeBadge, Markup: grid.MarkupAlways}
	nameField := grid.FieldSpec{Key: "Name", Label: "Name", Param: "name", Kind: grid.FieldText, Editable: true, Required: true}
	descField := grid.FieldSpec{Key: "Description", Label: "Description", Param: "description", Kind: grid.FieldTextarea, Editable: true}
	activeField := grid.FieldSpec{Key: "IsActive", Label: "Active", Param: "isActive", Kind: grid.FieldCheckbox, Editable: true}

	return []Definition{
		{
			Name:     "datasources",
			Label:    "Data Source",
			Title:    "Data Sources",
			QueryOp:  "5",
			UpdateOp: "21",
			CreateOp: "22",
			IDField:  "DataSourceID",
			IDParam:  "data_source_id",
			Columns: []grid.ColumnSpec{
				{Key: "DataSourceTypeID", Label: "Type", WidthHint: "w-2/12", Render: lookupName(names, sourceTypeLookup.Table), Markup: grid.MarkupNever},
				{Key: "Name", Label: "Name", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "Description", Label: "Description", WidthHint: "w-4/12", CellClass: "break-words", Markup: grid.MarkupNever},
				{Key: "RefreshedDate", Label: "Refreshed Date", WidthHint: "w-2/12", Render: dateCell},
				active,
				details,
			},
			Fields: []grid.FieldSpec{
				{Key: "DataSourceID", Label: "ID"},
				{Key: "DataSourceTypeID", Label: "Type", Format: lookupName(names, sourceTypeLookup.Table)},
				nameField,
				descField,
				activeField,
				{Key: "RefreshedDate", Label: "Refreshed", Format: dateCell},
				{Key: "ModifiedDate", Label: "Modified", Format: dateCell},
				{Key: "Fields", Label: "Fields", Param: "fields", Kind: grid.FieldMap, Editable: true, NameParam: "fieldName", ValueParam: "fieldValue"},
			},
			CreateFields: []grid.FieldSpec{
				nameField,
				descField,
				{Key: "DataSourceTypeID", Label: "Type ID", Param: "dataSourceTypeId", Kind: grid.FieldText, Editable: true, Required: true},
			},
			Status:  activeStatus(),
			Lookups: []LookupSpec{sourceTypeLookup},
		},
		{
			Name:     "datasourcetypes",
			Label:    "Data Source Type",
			Title:    "Data Source Types",
			QueryOp:  "13",
			UpdateOp: "27",
			CreateOp: "26",
			IDField:  "DataSourceTypeID",
			IDParam:  "data_source_type_id",
			Columns: []grid.ColumnSpec{
				{Key: "Name", Label: "Name", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "Description", Label: "Description", WidthHint: "w-5/12", CellClass: "break-words", Markup: grid.MarkupNever},
				{Key: "ModifiedDate", Label: "Date Modified", WidthHint: "w-2/12", Render: dateCell},
				active,
				details,
			},
			Fields:       []grid.FieldSpec{{Key: "DataSourceTypeID", Label: "ID"}, nameField, descField, activeField, {Key: "ModifiedDate", Label: "Modified", Format: dateCell}},
			CreateFields: []grid.FieldSpec{nameField, descField},
			Status:       activeStatus(),
		},
		{
			Name:     "datasets",
			Label:    "Data Set",
			Title:    "Data Sets",
			QueryOp:  "10",
			UpdateOp: "28",
			CreateOp: "29",
			IDField:  "DataSetID",
			IDParam:  "data_set_id",
			Columns: []grid.ColumnSpec{
				{Key: "Name", Label: "Name", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "Description", Label: "Description", WidthHint: "w-4/12", CellClass: "break-words", Markup: grid.MarkupNever},
				{Key: "DataSourceID", Label: "Data Source", WidthHint: "w-2/12", Render: lookupName(names, sourceLookup.Table), Markup: grid.MarkupNever},
				{Key: "Owner", Label: "Owner", WidthHint: "w-2/12", Markup: grid.MarkupNever},
				{Key: "IsActive", Label: "Active", WidthHint: "w-1/12", Render: yesNo},
				details,
			},
			Fields: []grid.FieldSpec{
				{Key: "DataSetID", Label: "ID"},
				nameField,
				descField,
				{Key: "Owner", Label: "Owner", Param: "owner", Kind: grid.FieldText, Editable: true},
				{Key: "DataSourceID", Label: "Data Source", Format: lookupName(names, sourceLookup.Table)},
				activeField,
			},
			CreateFields: []grid.FieldSpec{
				nameField,
				descField,
				{Key: "Owner", Label: "Owner", Param: "owner", Kind: grid.FieldText, Editable: true},
				{Key: "DataSourceID", Label: "Data Source ID", Param: "dataSourceId", Kind: grid.FieldText, Editable: true, Required: true},
			},
			Status:  activeStatus(),
			Lookups: []LookupSpec{sourceLookup},
		},
		{
			Name:     "metadata",
			Label:    "Metadata",
			Title:    "Metadata",
			QueryOp:  "12",
			UpdateOp: "30",
			CreateOp: "31",
			IDField:  "MetaDataID",
			IDParam:  "meta_data_id",
			Columns: []grid.ColumnSpec{
				{Key: "Name", Label: "Name", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "Description", Label: "Description", WidthHint: "w-5/12", CellClass: "break-words", Markup: grid.MarkupNever},
				{Key: "DataSourceID", Label: "Data Source", WidthHint: "w-2/12", Render: lookupName(names, sourceLookup.Table), Markup: grid.MarkupNever},
				active,
				details,
			},
			Fields:       []grid.FieldSpec{{Key: "MetaDataID", Label: "ID"}, nameField, descField, activeField, {Key: "ModifiedDate", Label: "Modified", Format: dateCell}},
			CreateFields: []grid.FieldSpec{nameField, descField},
			Status:       activeStatus(),
			Lookups:      []LookupSpec{sourceLookup},
		},
		{
			Name:     "emailtemplates",
			Label:    "Email Template",
			Title:    "Email Templates",
			QueryOp:  "14",
			UpdateOp: "32",
			IDField:  "EmailTemplateID",
			IDParam:  "email_template_id",
			Columns: []grid.ColumnSpec{
				{Key: "EmailTemplateType", Label: "Type", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "EmailTemplateSubject", Label: "Subject", WidthHint: "w-6/12", CellClass: "break-words", Markup: grid.MarkupNever},
				{Key: "ModifiedDate", Label: "Modified Date", WidthHint: "w-2/12", Render: dateCell},
				details,
			},
			Fields: []grid.FieldSpec{
				{Key: "EmailTemplateType", Label: "Type"},
				{Key: "EmailTemplateSubject", Label: "Subject", Param: "subject", Kind: grid.FieldText, Editable: true, Required: true},
				{Key: "EmailTemplateText", Label: "Body", Param: "text", Kind: grid.FieldTextarea, Editable: true, Format: excerpt(160)},
			},
		},
		{
			Name:    "requests",
			Label:   "Request",
			Title:   "Requests",
			QueryOp: "4",
			IDField: "RequestID",
			Columns: []grid.ColumnSpec{
				{Key: "RequestID", Label: "Request ID", WidthHint: "w-1/12"},
				{Key: "Name", Label: "Name", WidthHint: "w-3/12", Markup: grid.MarkupNever},
				{Key: "ProjectID", Label: "Project ID", WidthHint: "w-1/12"},
				{Key: "DataSetID", Label: "Data Set ID", WidthHint: "w-1/12"},
				{Key: "CreateUser", Label: "Requester", WidthHint: "w-2/12", Markup: grid.MarkupNever},
				{Key: "CreateDate", Label: "Requested", WidthHint: "w-2/12", Render: dateCell},
				{Key: "Approvers", Label: "Approvers", WidthHint: "w-2/12", Markup: grid.MarkupNever},
			},
		},
	}
}

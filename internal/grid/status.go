package grid

// StatusKind names one side of the active/inactive status filter.
type StatusKind string

const (
	StatusActive   StatusKind = "active"
	StatusInactive StatusKind = "inactive"
)

// StatusFilter is the three-state active/inactive selection. At least one of
// the two is always selected.
type StatusFilter struct {
	Active   bool
	Inactive bool
}

// BothStatuses selects active and inactive records.
func BothStatuses() StatusFilter {
	return StatusFilter{Active: true, Inactive: true}
}

// Toggle flips one side. Deselecting the only selected side forces the other
// side on instead of leaving nothing selected.
func (f StatusFilter) Toggle(kind StatusKind) StatusFilter {
	switch kind {
	case StatusActive:
		f.Active = !f.Active
		if !f.Active && !f.Inactive {
			f.Inactive = true
		}
	case StatusInactive:
		f.Inactive = !f.Inactive
		if !f.Active && !f.Inactive {
			f.Active = true
		}
	}
	return f
}

// String returns "active", "inactive" or "both".
func (f StatusFilter) String() string {
	switch {
	case f.Active && !f.Inactive:
		return "active"
	case f.Inactive && !f.Active:
		return "inactive"
	default:
		return "both"
	}
}

// StatusCodes maps the filter to the opaque values a given remote operation
// expects under Param.
type StatusCodes struct {
	Param    string
	Active   any
	Inactive any
	Both     any
}

// Code returns the remote value for f.
func (c StatusCodes) Code(f StatusFilter) any {
	switch f.String() {
	case "active":
		return c.Active
	case "inactive":
		return c.Inactive
	default:
		return c.Both
	}
}

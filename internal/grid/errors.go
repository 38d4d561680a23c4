package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyMutationResult is returned when a save call succeeds but yields
	// no usable record.
	ErrEmptyMutationResult = errors.New("API call succeeded but returned no data")

	// ErrEditInProgress is returned when an edit is started while another
	// row's edit session is still open.
	ErrEditInProgress = errors.New("another row is already being edited")

	// ErrSaveInProgress is returned when a session is changed while its save
	// is in flight.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrNoSession is returned when an edit operation names a row that has
	// no open session.
	ErrNoSession = errors.New("no edit session for row")

	// ErrRowNotFound is returned when a row is not on the displayed page.
	ErrRowNotFound = errors.New("row not found on current page")

	// ErrSuperseded is returned to callers whose request was overtaken by a
	// newer one before its result could be applied.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrStatusFilterDisabled is returned when toggling the status filter on
	// a grid configured without one.
	ErrStatusFilterDisabled = errors.New("status filter not enabled for this grid")
)

// FetchError reports a transport or parse failure while reading a page.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(err error, format string, args ...any) *FetchError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &FetchError{Message: msg, Err: err}
}

// ValidationError reports a client-side form check that failed before any
// remote call was made. Fields holds the labels of the offending fields and
// Keys their form keys, in the same order.
type ValidationError struct {
	Fields []string
	Keys   []string
}

func (e *ValidationError) add(f FieldSpec) {
	e.Fields = append(e.Fields, f.Label)
	e.Keys = append(e.Keys, f.Key)
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// OutOfRangePageError reports a typed page number outside [1, PageCount].
type OutOfRangePageError struct {
	Input     string
	PageCount int
}

func (e *OutOfRangePageError) Error() string {
	return fmt.Sprintf("Please enter a page number between 1 and %d.", e.PageCount)
}

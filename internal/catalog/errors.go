package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity means the preflight check against the rows API failed.
	ErrConnectivity = errors.New("catalog api unreachable")

	// ErrNoProducts means the API answered but nothing displayable came back.
	ErrNoProducts = errors.New("catalog api returned no products")

	// ErrLoadInProgress is returned by Load while another load runs.
	ErrLoadInProgress = errors.New("catalog load already in progress")

	// ErrLoadSuperseded is returned to a load whose result was discarded
	// because a newer load started.
	ErrLoadSuperseded = errors.New("catalog load superseded")
)

// DataFetchError is a failed rows API request: a non-2xx status, a broken
// envelope, or a transport error.
type DataFetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *DataFetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// ValidationError reports a fallback document that lacks the expected
// shape. Index is -1 for document-level problems.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		if e.Field == "" {
			return "fallback document: " + e.Reason
		}
		return fmt.Sprintf("fallback document: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("fallback products[%d].%s: %s", e.Index, e.Field, e.Reason)
}

// TransformError is a single record that could not become a Product. It is
// logged and the record skipped; it never fails a batch.
type TransformError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %s: %s %s", e.RecordID, e.Field, e.Reason)
}

// LoadError is the user-visible failure of both the API and the fallback.
type LoadError struct {
	Primary  error
	Fallback error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load products: %v; fallback also failed: %v", e.Primary, e.Fallback)
}

func (e *LoadError) Unwrap() []error { return []error{e.Primary, e.Fallback} }

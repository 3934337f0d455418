// Package apperrors defines the error kinds shared by the loader, the
// query layer and the HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing input file, store file, table or view.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly reports an attempt to run a mutating statement through
	// the read-only query interface.
	ErrReadOnly = errors.New("write statements are not allowed")
)

// FormatError reports input that does not match the expected schema:
// a header/column mismatch or an unparseable value.
type FormatError struct {
	Row    int // 1-based data row, 0 when the header itself is bad
	Column string
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("format error: %s", e.Msg)
	}
	return fmt.Sprintf("format error: row %d, column %q: %s", e.Row, e.Column, e.Msg)
}

// QueryError wraps a malformed or failing read-only query.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

package snapshot

import (
	"errors"
	"fmt"
)

// ErrIO is returned when the snapshot file cannot be opened, read or written.
var ErrIO = errors.New("snapshot: io error")

// ErrParse is returned when a snapshot row does not decode into a record.
var ErrParse = errors.New("snapshot: parse error")

// ParseError reports a malformed row. Line is 1-based and points at the
// line where the row starts.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("snapshot: line %d: %v", e.Line, e.Err)
}

// Unwrap exposes both ErrParse and the underlying cause to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}

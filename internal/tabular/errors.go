package tabular

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when a file type is not handled by the
// requested operation (unknown on import, or xls on export).
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseError reports a payload whose bytes could not be read as a table.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("payload is not readable as tabular data: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// MissingColumnError reports an expected header label absent from the file.
// The whole import is rejected; there is no partial-row success.
type MissingColumnError struct {
	Label string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q is missing from the file", e.Label)
}

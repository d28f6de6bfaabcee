package music

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Callers match them with errors.Is.
var (
	ErrRange      = errors.New("value out of range")
	ErrValidation = errors.New("validation failed")
	ErrParse      = errors.New("parse error")
	ErrNotFound   = errors.New("not found")
	ErrFormat     = errors.New("invalid document format")
)

// ParseError reports a malformed notation token.
type ParseError struct {
	Offset int    // byte offset of the token in the input
	Index  int    // token ordinal, 0-based
	Token  string // the offending token
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d (token %d %q): %s", e.Offset, e.Index, e.Token, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

func rangeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRange, fmt.Sprintf(format, args...))
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

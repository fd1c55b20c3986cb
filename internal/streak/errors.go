package streak

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one
// of them, so callers can branch with errors.Is.
var (
	ErrIO     = errors.New("input unavailable")
	ErrParse  = errors.New("parse error")
	ErrDomain = errors.New("domain error")
	ErrSchema = errors.New("schema mismatch")
	ErrConfig = errors.New("invalid parameters")
)

// ParseError reports a selected field that is missing or not numeric.
type ParseError struct {
	Line   int    // 1-based line in the source, header is line 1
	Column int    // zero-based column index
	Value  string // raw field text, empty when missing
	Err    error  // underlying strconv error, nil when the field is missing
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("line %d: column %d is missing", e.Line, e.Column)
	}
	return fmt.Sprintf("line %d: column %d: cannot parse %q as a number: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// DomainError reports input that parses but cannot be turned into a
// measurement. Pair is the zero-based streak index, or -1 when the problem
// concerns the whole dataset or its parameters.
type DomainError struct {
	Pair    int
	Line    int // source line of the first endpoint
	EndLine int // source line of the second endpoint
	Reason  string
}

func (e *DomainError) Error() string {
	if e.Pair < 0 {
		return e.Reason
	}
	return fmt.Sprintf("streak %d (lines %d-%d): %s", e.Pair, e.Line, e.EndLine, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

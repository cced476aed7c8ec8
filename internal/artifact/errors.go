package artifact

import "fmt"

// ParseError reports an artifact that could not be read or that holds a
// malformed field.
type ParseError struct {
	Path string
	// Field is the dotted path of the offending field, empty when the
	// document as a whole is unreadable.
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s: field %s: %v", e.Path, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NormalizationError reports a build configuration whose path-valued field
// is missing or not a string.
type NormalizationError struct {
	Path   string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: field %s: %s", e.Path, e.Field, e.Reason)
}

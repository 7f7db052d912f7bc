package version

import "fmt"

// ParseError reports a malformed version specification or an unclassifiable
// resolved value.
type ParseError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("version %q: %s", e.Input, e.Msg)
	}
	return fmt.Sprintf("version %q: %s (at offset %d)", e.Input, e.Msg, e.Offset)
}

// EmptyResolutionError is returned when every candidate evaluated empty.
type EmptyResolutionError struct {
	Input string
}

func (e *EmptyResolutionError) Error() string {
	return fmt.Sprintf("version %q: no candidate resolved to a non-empty value", e.Input)
}

package sets

import "fmt"

// UnknownSetError is returned when an expression references a set that
// does not exist.
type UnknownSetError struct {
	Name string
}

func (e *UnknownSetError) Error() string {
	return fmt.Sprintf("unknown repo set %q", e.Name)
}

// ParseError reports a malformed set expression.
type ParseError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("set expression %q: %s (at offset %d)", e.Expr, e.Msg, e.Offset)
}

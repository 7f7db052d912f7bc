package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table renders rows of data in aligned columns.
type Table struct {
	w       *tabwriter.Writer
	headers []string
}

// NewTable creates a new table writer with the given column headers.
func NewTable(out io.Writer, headers ...string) *Table {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	t := &Table{w: tw, headers: headers}
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return t
}

// Row appends a row of values. Missing trailing cells are padded with "-".
// Booleans render as "yes" or "-", empty strings as "-".
func (t *Table) Row(values ...any) {
	n := max(len(values), len(t.headers))
	parts := make([]string, n)
	for i := range parts {
		if i >= len(values) {
			parts[i] = "-"
			continue
		}
		parts[i] = cell(values[i])
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return "yes"
		}
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Flush writes the buffered output.
func (t *Table) Flush() error {
	return t.w.Flush()
}

package version

import (
	"fmt"
	"strings"
	"time"
)

// Variables binds %name references. An empty value is undefined.
type Variables map[string]string

// Environment binds ${{ path }} references. An empty value is undefined.
type Environment map[string]string

// Names of the built-in variables.
const (
	VarDate   = "date"
	VarTag    = "tag"
	VarBranch = "branch"
)

// Lookup returns the value bound to name, reporting false when it is unbound
// or empty.
func (v Variables) Lookup(name string) (string, bool) {
	value := v[name]
	return value, value != ""
}

// Lookup returns the value bound to path, reporting false when it is unbound
// or empty.
func (e Environment) Lookup(path string) (string, bool) {
	value := e[path]
	return value, value != ""
}

// Merge returns a copy of v overlaid with other.
func (v Variables) Merge(other Variables) Variables {
	out := make(Variables, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		if val == "" {
			delete(out, k)
			continue
		}
		out[k] = val
	}
	return out
}

func (v Variables) today() *Date {
	value, ok := v.Lookup(VarDate)
	if !ok {
		return nil
	}
	d, err := parseDate(value)
	if err != nil {
		return nil
	}
	return &d
}

// Builtins returns the built-in bindings for the given date, tag and branch.
// Empty tag or branch leaves the variable undefined.
func Builtins(today time.Time, tag, branch string) Variables {
	vars := Variables{VarDate: today.Format("2006-01-02")}
	if tag != "" {
		vars[VarTag] = tag
	}
	if branch != "" {
		vars[VarBranch] = branch
	}
	return vars
}

// ParseDefines parses key=value definitions. An empty value is kept so that
// merging it over other bindings undefines the key.
func ParseDefines(defs []string) (Variables, error) {
	vars := make(Variables, len(defs))
	for _, def := range defs {
		key, value, ok := strings.Cut(def, "=")
		if !ok {
			return nil, fmt.Errorf("invalid define %q: expected key=value", def)
		}
		key = strings.TrimSpace(key)
		if key == "" || strings.IndexFunc(key, func(r rune) bool { return !isNameChar(r) }) >= 0 {
			return nil, fmt.Errorf("invalid define %q: bad variable name", def)
		}
		vars[key] = value
	}
	return vars, nil
}

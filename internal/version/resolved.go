package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver/v4"
)

// Dates outside of this range are rejected.
const (
	baseYear = 2000
	lastYear = 2255
)

// Kind is the classification of a resolved version.
type Kind int

const (
	KindSemantic Kind = iota + 1
	KindDate
	KindName
)

func (k Kind) String() string {
	switch k {
	case KindSemantic:
		return "semantic"
	case KindDate:
		return "date"
	case KindName:
		return "name"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Date is a naive calendar date.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Resolved is the canonical result of resolving a specification. It is never
// mutated by coercion; see Format.
type Resolved struct {
	Kind   Kind     `json:"kind"`
	Prefix string   `json:"prefix,omitempty"`
	Major  uint64   `json:"major,omitempty"`
	Minor  uint64   `json:"minor,omitempty"`
	Patch  uint64   `json:"patch,omitempty"`
	Date   *Date    `json:"date,omitempty"`
	Label  string   `json:"label,omitempty"`
	Pre    *uint64  `json:"pre,omitempty"`
	Append []string `json:"append,omitempty"`
	Raw    string   `json:"raw"`
}

var (
	semverRe  = regexp.MustCompile(`^(v)?(\d+)\.(\d+)(?:\.(\d+))?(?:-([A-Za-z0-9_-]*))?((?:\.[A-Za-z0-9_]+)*)$`)
	dateRe    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:-([A-Za-z0-9_-]*))?((?:\.[A-Za-z0-9_]+)*)$`)
	nameRe    = regexp.MustCompile(`^([A-Za-z]+)(\d*)((?:\.[A-Za-z0-9_]+)*)$`)
	literalRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)((?:\.[A-Za-z0-9_]+)*)$`)
	ordinalRe = regexp.MustCompile(`^([A-Za-z]*)(\d+)$`)
)

// Classify classifies resolved text. When today is non-nil bare names are
// coerced into dated versions carrying the name as pre-release label.
func Classify(text string, today *Date) (Resolved, error) {
	r := Resolved{Raw: text}
	fail := func(msg string) (Resolved, error) {
		return Resolved{}, &ParseError{Input: text, Offset: -1, Msg: msg}
	}

	if m := dateRe.FindStringSubmatch(text); m != nil {
		d, err := makeDate(m[1], m[2], m[3])
		if err != nil {
			return fail(err.Error())
		}
		r.Kind = KindDate
		r.Date = &d
		if err := r.setTag(m[4]); err != nil {
			return fail(err.Error())
		}
		r.Append = splitAppend(m[5])
		return r, nil
	}

	if m := semverRe.FindStringSubmatch(text); m != nil {
		var err error
		r.Kind = KindSemantic
		r.Prefix = m[1]
		if r.Major, err = parseNumber(m[2]); err != nil {
			return fail(err.Error())
		}
		if r.Minor, err = parseNumber(m[3]); err != nil {
			return fail(err.Error())
		}
		if m[4] != "" {
			if r.Patch, err = parseNumber(m[4]); err != nil {
				return fail(err.Error())
			}
		}
		if err := r.setTag(m[5]); err != nil {
			return fail(err.Error())
		}
		r.Append = splitAppend(m[6])
		return r, nil
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		r.Label = m[1]
		if m[2] != "" {
			n, err := parseNumber(m[2])
			if err != nil {
				return fail(err.Error())
			}
			r.Pre = &n
		}
		r.Append = splitAppend(m[3])
		r.dated(today)
		return r, nil
	}

	if m := literalRe.FindStringSubmatch(text); m != nil {
		r.Label = m[1]
		r.Append = splitAppend(m[2])
		r.dated(today)
		return r, nil
	}

	return fail("not a semantic version, date or name")
}

func (r *Resolved) dated(today *Date) {
	if today == nil {
		r.Kind = KindName
		return
	}
	d := *today
	r.Kind = KindDate
	r.Date = &d
}

// setTag splits a pre-release tag into label and ordinal. Trailing digits
// directly appended to letters are an ordinal; any other form is kept as a
// literal label.
func (r *Resolved) setTag(tag string) error {
	switch {
	case tag == "":
		return nil
	case ordinalRe.MatchString(tag):
		m := ordinalRe.FindStringSubmatch(tag)
		n, err := parseNumber(m[2])
		if err != nil {
			return err
		}
		r.Label = m[1]
		r.Pre = &n
	default:
		r.Label = tag
	}
	return nil
}

func splitAppend(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(s, "."), ".")
}

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("number %q out of range", s)
	}
	return n, nil
}

func makeDate(y, m, d string) (Date, error) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)

	if year < baseYear || year >= lastYear {
		return Date{}, fmt.Errorf("year must be within %d..%d, but was %d", baseYear, lastYear, year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %d-%d-%d", year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

func parseDate(s string) (Date, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil || m[4] != "" || m[5] != "" {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return makeDate(m[1], m[2], m[3])
}

// Tag returns the pre-release tag, label followed by the ordinal.
func (r Resolved) Tag() string {
	if r.Pre == nil {
		return r.Label
	}
	return r.Label + strconv.FormatUint(*r.Pre, 10)
}

// String renders the canonical form of the version.
func (r Resolved) String() string {
	var b strings.Builder
	switch r.Kind {
	case KindSemantic:
		fmt.Fprintf(&b, "%s%d.%d.%d", r.Prefix, r.Major, r.Minor, r.Patch)
	case KindDate:
		b.WriteString(r.Date.String())
	}
	if tag := r.Tag(); tag != "" {
		if r.Kind != KindName {
			b.WriteByte('-')
		}
		b.WriteString(tag)
	}
	for _, a := range r.Append {
		b.WriteByte('.')
		b.WriteString(a)
	}
	return b.String()
}

// Semver maps the version onto a semantic version used for ordering. Dates
// become year.month.day; the label and ordinal become separate pre-release
// identifiers so that "nightly" < "nightly1" < "nightly2".
func (r Resolved) Semver() semver.Version {
	v := semver.Version{}
	switch r.Kind {
	case KindSemantic:
		v.Major, v.Minor, v.Patch = r.Major, r.Minor, r.Patch
	case KindDate:
		v.Major, v.Minor, v.Patch = uint64(r.Date.Year), uint64(r.Date.Month), uint64(r.Date.Day)
	}
	if r.Label != "" {
		v.Pre = append(v.Pre, semver.PRVersion{VersionStr: identifier(r.Label)})
	}
	if r.Pre != nil {
		v.Pre = append(v.Pre, semver.PRVersion{VersionNum: *r.Pre, IsNum: true})
	}
	for _, a := range r.Append {
		v.Build = append(v.Build, identifier(a))
	}
	return v
}

// Compare orders two resolved versions, returning -1, 0 or 1.
func Compare(a, b Resolved) int {
	return a.Semver().Compare(b.Semver())
}

// identifier replaces characters that are not allowed in semver identifiers.
func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if isLetter(r) || isDigit(r) || r == '-' {
			return r
		}
		return '-'
	}, s)
}

package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Target is a package system a version can be coerced into.
type Target string

const (
	TargetPlain  Target = "plain"
	TargetSemver Target = "semver"
	TargetRPM    Target = "rpm"
	TargetDeb    Target = "deb"
	TargetMSI    Target = "msi"
)

// ParseTarget parses a target name, defaulting to plain.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetPlain, "":
		return TargetPlain, nil
	case TargetSemver, TargetRPM, TargetDeb, TargetMSI:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown version format: %q (must be plain, semver, rpm, deb, or msi)", s)
	}
}

// Format coerces a resolved version into the textual form required by the
// target. It is a pure function of its inputs.
func Format(r Resolved, target Target) (string, error) {
	if target == TargetPlain || target == "" {
		return r.String(), nil
	}
	if r.Kind == KindName {
		return "", fmt.Errorf("cannot express bare name %q as a %s version without a date", r.Raw, target)
	}

	switch target {
	case TargetSemver:
		return r.Semver().String(), nil
	case TargetRPM:
		return packageVersion(r, "~", ".", func(c rune) bool {
			return isLetter(c) || isDigit(c) || strings.ContainsRune("._+~^", c)
		}), nil
	case TargetDeb:
		return packageVersion(r, "~", "+", func(c rune) bool {
			return isLetter(c) || isDigit(c) || strings.ContainsRune(".+~", c)
		}), nil
	case TargetMSI:
		return msiVersion(r)
	default:
		return "", fmt.Errorf("unknown version format: %q", target)
	}
}

// packageVersion renders the core with dots, joins the pre-release tag with
// preSep and extra parts with appendSep, then drops disallowed characters.
func packageVersion(r Resolved, preSep, appendSep string, allowed func(rune) bool) string {
	var b strings.Builder
	b.WriteString(core(r))
	if tag := r.Tag(); tag != "" {
		b.WriteString(preSep)
		b.WriteString(tag)
	}
	for _, a := range r.Append {
		b.WriteString(appendSep)
		b.WriteString(a)
	}
	return strings.Map(func(c rune) rune {
		if allowed(c) {
			return c
		}
		return -1
	}, b.String())
}

func core(r Resolved) string {
	if r.Kind == KindDate {
		return fmt.Sprintf("%d.%d.%d", r.Date.Year, r.Date.Month, r.Date.Day)
	}
	return fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Patch)
}

// msiVersion computes an MSI-safe version. The build field must fit in
// 65535, which bounds the patch to 64 and the pre-release ordinal to 998.
func msiVersion(r Resolved) (string, error) {
	pre := uint64(999)
	if r.Pre != nil {
		if *r.Pre >= 999 {
			return "", fmt.Errorf("pre-release must be below 999 for msi: %d", *r.Pre)
		}
		pre = *r.Pre
	}

	switch r.Kind {
	case KindSemantic:
		if r.Patch > 64 {
			return "", fmt.Errorf("patch version must not be greater than 64 for msi: %d", r.Patch)
		}
		return fmt.Sprintf("%d.%d.%s", r.Major, r.Minor, strconv.FormatUint(r.Patch*1000+pre, 10)), nil
	default:
		return fmt.Sprintf("%d.%d.%d", r.Date.Year-baseYear, r.Date.Month, uint64(r.Date.Day)*1000+pre), nil
	}
}

// Package version evaluates wobbly version specifications.
//
// A specification is a list of candidates separated by "||". Each candidate
// is a mix of literal text, %name (or %{dotted.name}) variables and
// ${{ path }} expressions. The first candidate that evaluates to a non-empty
// string is classified as a semantic version, a naive date or a bare name.
// The resolver never computes bindings itself: today's date, the current tag
// and branch are supplied by the caller as variables.
package version

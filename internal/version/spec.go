package version

import (
	"fmt"
	"strings"
)

// FragmentKind identifies the kind of a candidate fragment.
type FragmentKind int

const (
	// Literal is verbatim text.
	Literal FragmentKind = iota
	// Variable is a %name or %{name} reference.
	Variable
	// Expression is a ${{ path }} reference into the environment.
	Expression
)

// Fragment is one piece of a candidate.
type Fragment struct {
	Kind FragmentKind
	Text string
}

// Candidate is one "||" separated alternative.
type Candidate struct {
	Fragments []Fragment
}

// Spec is a parsed version specification.
type Spec struct {
	Input      string
	Candidates []Candidate
}

// Parse parses a version specification without evaluating it.
func Parse(input string) (*Spec, error) {
	spec := &Spec{Input: input}

	var (
		cur Candidate
		lit strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			cur.Fragments = append(cur.Fragments, Fragment{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(input); {
		rest := input[i:]
		switch {
		case strings.HasPrefix(rest, "||"):
			flush()
			spec.Candidates = append(spec.Candidates, trimCandidate(cur))
			cur = Candidate{}
			i += 2
		case strings.HasPrefix(rest, "${{"):
			end := strings.Index(rest[3:], "}}")
			if end < 0 {
				return nil, &ParseError{Input: input, Offset: i, Msg: "unterminated ${{ expression"}
			}
			path := strings.TrimSpace(rest[3 : 3+end])
			if path == "" {
				return nil, &ParseError{Input: input, Offset: i, Msg: "empty ${{ }} expression"}
			}
			flush()
			cur.Fragments = append(cur.Fragments, Fragment{Kind: Expression, Text: path})
			i += 3 + end + 2
		case strings.HasPrefix(rest, "}}"):
			return nil, &ParseError{Input: input, Offset: i, Msg: "unbalanced }}"}
		case rest[0] == '%':
			name, n, err := scanVariable(input, i)
			if err != nil {
				return nil, err
			}
			flush()
			cur.Fragments = append(cur.Fragments, Fragment{Kind: Variable, Text: name})
			i += n
		default:
			lit.WriteByte(rest[0])
			i++
		}
	}

	flush()
	spec.Candidates = append(spec.Candidates, trimCandidate(cur))

	for _, c := range spec.Candidates {
		if len(c.Fragments) > 0 {
			return spec, nil
		}
	}
	return nil, &ParseError{Input: input, Offset: -1, Msg: "empty candidate list"}
}

// scanVariable scans a variable starting at the '%' at offset i and returns
// its name and the number of bytes consumed.
func scanVariable(input string, i int) (string, int, error) {
	rest := input[i+1:]

	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", 0, &ParseError{Input: input, Offset: i, Msg: "unterminated %{ variable"}
		}
		name := rest[1:end]
		if name == "" || strings.IndexFunc(name, func(r rune) bool { return !isNameChar(r) }) >= 0 {
			return "", 0, &ParseError{Input: input, Offset: i, Msg: fmt.Sprintf("invalid variable name %q", name)}
		}
		return name, end + 2, nil
	}

	if rest == "" || !isLetter(rune(rest[0])) {
		return "", 0, &ParseError{Input: input, Offset: i, Msg: "expected variable name after %"}
	}
	n := 1
	for n < len(rest) && (isLetter(rune(rest[n])) || isDigit(rune(rest[n])) || rest[n] == '_') {
		n++
	}
	return rest[:n], n + 1, nil
}

// trimCandidate strips the whitespace surrounding a candidate.
func trimCandidate(c Candidate) Candidate {
	frags := c.Fragments
	if len(frags) > 0 && frags[0].Kind == Literal {
		frags[0].Text = strings.TrimLeft(frags[0].Text, " \t\r\n")
		if frags[0].Text == "" {
			frags = frags[1:]
		}
	}
	if last := len(frags) - 1; last >= 0 && frags[last].Kind == Literal {
		frags[last].Text = strings.TrimRight(frags[last].Text, " \t\r\n")
		if frags[last].Text == "" {
			frags = frags[:last]
		}
	}
	return Candidate{Fragments: frags}
}

// Eval evaluates the candidate against the given bindings. An undefined
// variable at the start of the candidate or inside its core empties the whole
// candidate; an undefined variable following a '-' drops only that tag.
func (c Candidate) Eval(vars Variables, env Environment) string {
	var b strings.Builder
	skipTag := false

	for _, f := range c.Fragments {
		if f.Kind == Literal {
			text := f.Text
			if skipTag {
				idx := strings.IndexAny(text, "-.")
				if idx < 0 {
					continue
				}
				text = text[idx:]
				skipTag = false
			}
			b.WriteString(text)
			continue
		}

		if skipTag {
			continue
		}

		var (
			value string
			ok    bool
		)
		if f.Kind == Variable {
			value, ok = vars.Lookup(f.Text)
		} else {
			value, ok = env.Lookup(f.Text)
		}
		if ok {
			b.WriteString(value)
			continue
		}

		sofar := b.String()
		switch {
		case strings.TrimSpace(sofar) == "":
			return ""
		case strings.HasSuffix(sofar, "-"):
			b.Reset()
			b.WriteString(strings.TrimSuffix(sofar, "-"))
			skipTag = true
		default:
			return ""
		}
	}

	return strings.TrimRight(strings.TrimSpace(b.String()), "-.")
}

// Resolve evaluates the candidates left to right and classifies the first
// non-empty one.
func (s *Spec) Resolve(vars Variables, env Environment) (Resolved, error) {
	today := vars.today()
	for _, c := range s.Candidates {
		text := c.Eval(vars, env)
		if text == "" {
			continue
		}
		return Classify(text, today)
	}
	return Resolved{}, &EmptyResolutionError{Input: s.Input}
}

// Resolve parses and evaluates a version specification.
func Resolve(input string, vars Variables, env Environment) (Resolved, error) {
	spec, err := Parse(input)
	if err != nil {
		return Resolved{}, err
	}
	return spec.Resolve(vars, env)
}

func isLetter(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }

func isNameChar(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_' || r == '-' || r == '.'
}

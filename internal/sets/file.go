package sets

import (
	"bufio"
	"bytes"
	"strings"
	"time"
)

const datePrefix = "# date: "

// File is the line representation of a persisted set. Comment and blank
// lines are kept so that hand edits survive a rewrite.
type File struct {
	Lines []string
}

// ParseFile splits data into lines.
func ParseFile(data []byte) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		f.Lines = append(f.Lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// member returns the repository named by line, if any.
func member(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return line, true
}

// Set returns the members listed in the file.
func (f *File) Set() *Set {
	s := New()
	for _, line := range f.Lines {
		if id, ok := member(line); ok {
			s.Add(id)
		}
	}
	return s
}

// Rewrite returns the file content for set. Lines of members that are no
// longer in set are dropped, other lines keep their order, and new members
// are appended. The generated header is replaced.
func (f *File) Rewrite(set *Set, hint string, date time.Time) []byte {
	var b bytes.Buffer
	if hint != "" {
		b.WriteString("# " + hint + "\n")
	}
	b.WriteString(datePrefix + date.Format(time.DateOnly) + "\n")

	written := New()
	for _, line := range f.body() {
		id, ok := member(line)
		if ok && (!set.Contains(id) || !written.Add(id)) {
			continue
		}
		b.WriteString(line + "\n")
	}
	for _, id := range set.Items() {
		if written.Add(id) {
			b.WriteString(id + "\n")
		}
	}
	return b.Bytes()
}

// body returns the lines after the generated header.
func (f *File) body() []string {
	lines := f.Lines
	for i, line := range lines {
		if strings.HasPrefix(line, datePrefix) {
			return lines[i+1:]
		}
		if _, ok := member(line); ok || !strings.HasPrefix(line, "#") || i > 0 {
			break
		}
	}
	return lines
}

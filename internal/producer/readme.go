package producer

import (
	"context"
	"strings"

	"github.com/fbkclanna/repokeep/internal/changes"
)

// Readme keeps the title of the README in line with the project name.
type Readme struct{}

// Name implements Producer.
func (Readme) Name() string { return "readme" }

// Produce implements Producer.
func (p Readme) Produce(_ context.Context, in Input) (Result, error) {
	var res Result
	name := in.Config.Readme
	title := "# " + in.Config.Name

	data, baseline, err := in.Read(name)
	if err != nil {
		return res, err
	}
	if baseline == changes.Absent {
		res.diag(p, in, LevelWarning, name, "missing README")
		res.change(p, in, name, baseline, []byte(title+"\n"), "create README")
		return res, nil
	}

	lines := strings.SplitAfter(string(data), "\n")
	headings := toplevelHeadings(lines)

	switch {
	case len(headings) == 0:
		content := append([]byte(title+"\n\n"), data...)
		res.change(p, in, name, baseline, content, "add title")
	case strings.TrimSpace(lines[headings[0]]) != title:
		lines[headings[0]] = title + lineEnding(lines[headings[0]])
		res.change(p, in, name, baseline, []byte(strings.Join(lines, "")), "fix title")
	}

	if len(headings) > 1 {
		for _, i := range headings[1:] {
			res.diag(p, in, LevelWarning, name, "line %d: extra top level heading %q", i+1, strings.TrimSpace(lines[i]))
		}
	}
	return res, nil
}

// toplevelHeadings returns the indexes of "# " lines outside of code fences.
func toplevelHeadings(lines []string) []int {
	var (
		out   []int
		fence bool
	)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = !fence
			continue
		}
		if !fence && (strings.HasPrefix(line, "# ") || strings.TrimRight(line, "\r\n") == "#") {
			out = append(out, i)
		}
	}
	return out
}

func lineEnding(line string) string {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(line, "\n"):
		return "\n"
	default:
		return ""
	}
}

package ui

import (
	"bufio"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// WriteDiff prints a unified diff, colouring added and removed lines when
// out is a terminal that supports colour.
func WriteDiff(out io.Writer, diff string) error {
	r := lipgloss.NewRenderer(out)
	var (
		add  = r.NewStyle().TabWidth(lipgloss.NoTabConversion).Foreground(lipgloss.Color("2"))
		del  = r.NewStyle().TabWidth(lipgloss.NoTabConversion).Foreground(lipgloss.Color("1"))
		hunk = r.NewStyle().TabWidth(lipgloss.NoTabConversion).Foreground(lipgloss.Color("6"))
		head = r.NewStyle().TabWidth(lipgloss.NoTabConversion).Bold(true)
	)
	w := bufio.NewWriter(out)
	sc := bufio.NewScanner(strings.NewReader(diff))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = head.Render(line)
		case strings.HasPrefix(line, "@@"):
			line = hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			line = add.Render(line)
		case strings.HasPrefix(line, "-"):
			line = del.Render(line)
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return w.Flush()
}

package ui

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Progress tracks completion of parallel tasks with a simple counter display.
type Progress struct {
	out       io.Writer
	total     int
	completed atomic.Int32
	failed    atomic.Int32
	mu        sync.Mutex
}

// NewProgress creates a progress tracker for n tasks.
func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{out: out, total: total}
}

// Done marks one task as completed and prints the current progress.
// A failed task is counted and marked in the output.
func (p *Progress) Done(label string, failed bool) {
	n := int(p.completed.Add(1))
	mark := okStyle.Render("ok")
	if failed {
		p.failed.Add(1)
		mark = failStyle.Render("failed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s %s\n", n, p.total, label, mark)
}

// Failed returns the number of tasks reported as failed.
func (p *Progress) Failed() int {
	return int(p.failed.Load())
}

// Log prints an informational message within the progress context.
func (p *Progress) Log(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

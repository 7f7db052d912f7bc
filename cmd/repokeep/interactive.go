package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fbkclanna/repokeep/internal/changes"
)

var errAborted = errors.New("user aborted")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// setNameModel asks for the name a resolved set is saved under.
type setNameModel struct {
	textInput textinput.Model
	expr      string
	members   int
	validate  func(string) error
	errMsg    string
	done      bool
	aborted   bool
}

func (m setNameModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m setNameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			if m.validate != nil {
				if err := m.validate(m.name()); err != nil {
					m.errMsg = err.Error()
					return m, nil
				}
			}
			m.done = true
			return m, tea.Quit
		}
	}
	m.errMsg = ""
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m setNameModel) name() string {
	return strings.TrimSpace(m.textInput.Value())
}

func (m setNameModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Save %d repo(s) as set", m.members)) + "\n")
	b.WriteString(dimStyle.Render("  from "+m.expr) + "\n")
	b.WriteString(m.textInput.View() + "\n")
	if m.errMsg != "" {
		b.WriteString(errStyle.Render(m.errMsg) + "\n")
	}
	return b.String()
}

// reviewDecision is the answer given for one staged change.
type reviewDecision int

const (
	skipChange reviewDecision = iota
	applyChange
	// applyRest applies this change and every one after it without asking.
	applyRest
)

// reviewModel asks whether one staged change should be applied. It
// defaults to skipping the change.
type reviewModel struct {
	change   changes.Change
	index    int
	total    int
	decision reviewDecision
	done     bool
	aborted  bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			m.done = true
			return m, tea.Quit
		case "y", "Y":
			m.decision = applyChange
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.decision = skipChange
			m.done = true
			return m, tea.Quit
		case "a", "A":
			m.decision = applyRest
			m.done = true
			return m, tea.Quit
		case "left", "right", "tab", "h", "l":
			if m.decision == applyChange {
				m.decision = skipChange
			} else {
				m.decision = applyChange
			}
		}
	}
	return m, nil
}

func (m reviewModel) View() string {
	if m.done {
		return ""
	}
	yes := " Apply "
	no := " Skip "
	if m.decision == applyChange {
		yes = selectedStyle.Render(yes)
	} else {
		no = selectedStyle.Render(no)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("[%d/%d] %s", m.index, m.total, m.change.Key())) + "\n")
	if m.change.Reason != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s (%s)", m.change.Reason, m.change.Producer)) + "\n")
	}
	b.WriteString(fmt.Sprintf("%s / %s  %s\n", yes, no, dimStyle.Render("a: apply all remaining, q: quit")))
	return b.String()
}

func promptSetName(expr string, members int, validate func(string) error) (string, error) {
	ti := textinput.New()
	ti.Placeholder = "released"
	ti.Focus()

	m := setNameModel{
		textInput: ti,
		expr:      expr,
		members:   members,
		validate:  validate,
	}

	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", err
	}
	rm := result.(setNameModel)
	if rm.aborted {
		return "", errAborted
	}
	return rm.name(), nil
}

func promptReview(c changes.Change, index, total int) (reviewDecision, error) {
	result, err := tea.NewProgram(reviewModel{change: c, index: index, total: total}).Run()
	if err != nil {
		return skipChange, err
	}
	rm := result.(reviewModel)
	if rm.aborted {
		return skipChange, errAborted
	}
	return rm.decision, nil
}

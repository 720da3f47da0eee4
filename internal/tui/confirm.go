// Package tui provides the terminal confirmation prompt used by the convert
// command.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	accent     = lipgloss.Color("#F59E0B")
	foreground = lipgloss.Color("#F9FAFB")
	muted      = lipgloss.Color("#6B7280")

	messageStyle = lipgloss.NewStyle().Foreground(foreground).Bold(true)
	acceptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#111827")).Background(accent).Padding(0, 1)
	declineStyle = lipgloss.NewStyle().Foreground(foreground).Background(muted).Padding(0, 1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 2)
)

// Confirm is a yes/no dialog model.
type Confirm struct {
	message  string
	accept   string
	decline  string
	answered bool
	accepted bool
}

// NewConfirm creates a dialog asking message with accept and decline
// buttons.
func NewConfirm(message, accept, decline string) Confirm {
	return Confirm{message: message, accept: accept, decline: decline}
}

// Accepted reports whether the user accepted.
func (c Confirm) Accepted() bool {
	return c.accepted
}

// Answered reports whether the user made a choice.
func (c Confirm) Answered() bool {
	return c.answered
}

// Init implements tea.Model.
func (c Confirm) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (c Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch strings.ToLower(key.String()) {
	case "y", "enter":
		c.answered, c.accepted = true, true
		return c, tea.Quit
	case "n", "esc", "ctrl+c", "q":
		c.answered = true
		return c, tea.Quit
	}
	return c, nil
}

// View implements tea.Model.
func (c Confirm) View() string {
	if c.answered {
		return ""
	}
	var b strings.Builder
	b.WriteString(messageStyle.Render(c.message))
	b.WriteString("\n\n")
	b.WriteString(acceptStyle.Render(label(c.accept)))
	b.WriteString("  ")
	b.WriteString(declineStyle.Render(label(c.decline)))
	return boxStyle.Render(b.String()) + "\n"
}

// label marks the shortcut key of a button: "Yes" becomes "[Y]es".
func label(s string) string {
	if s == "" {
		return s
	}
	return "[" + s[:1] + "]" + s[1:]
}

// Prompter asks for confirmation on a terminal. It implements
// editor.Prompter.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter returns a prompter reading keys from in and drawing on out.
// Nil arguments default to stdin and stderr.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: in, out: out}
}

// Confirm shows the dialog and blocks until the user answers or ctx ends.
func (p *Prompter) Confirm(ctx context.Context, message, accept, decline string) (bool, error) {
	prog := tea.NewProgram(NewConfirm(message, accept, decline),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		return false, fmt.Errorf("tui: confirm: %w", err)
	}
	c, ok := final.(Confirm)
	if !ok {
		return false, nil
	}
	return c.Accepted(), nil
}

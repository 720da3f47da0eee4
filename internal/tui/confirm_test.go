package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmKeys(t *testing.T) {
	tests := []struct {
		key      string
		answered bool
		accepted bool
	}{
		{"y", true, true},
		{"Y", true, true},
		{"enter", true, true},
		{"n", true, false},
		{"esc", true, false},
		{"ctrl+c", true, false},
		{"x", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, cmd := NewConfirm("Convert?", "Yes", "No").Update(key(tt.key))
			c := m.(Confirm)
			if c.Answered() != tt.answered || c.Accepted() != tt.accepted {
				t.Errorf("answered=%v accepted=%v", c.Answered(), c.Accepted())
			}
			if tt.answered && cmd == nil {
				t.Error("expected quit command")
			}
			if !tt.answered && cmd != nil {
				t.Error("unexpected command")
			}
		})
	}
}

func TestConfirmIgnoresOtherMessages(t *testing.T) {
	m, cmd := NewConfirm("Convert?", "Yes", "No").Update(tea.WindowSizeMsg{Width: 80})
	if m.(Confirm).Answered() || cmd != nil {
		t.Error("window size must not answer the dialog")
	}
}

func TestConfirmView(t *testing.T) {
	c := NewConfirm("Found 2 relative date(s). Convert to absolute dates?", "Yes", "No")
	v := c.View()
	for _, want := range []string{"Found 2 relative date(s)", "[Y]es", "[N]o"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}

	m, _ := c.Update(key("y"))
	if m.View() != "" {
		t.Error("answered dialog should render nothing")
	}
}

func TestLabel(t *testing.T) {
	if got := label("Yes"); got != "[Y]es" {
		t.Errorf("label = %q", got)
	}
	if got := label(""); got != "" {
		t.Errorf("label = %q", got)
	}
}

func TestPrompterReadsInput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y"), &out)
	ok, err := p.Confirm(ctx, "Convert?", "Yes", "No")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected accept")
	}

	p = NewPrompter(strings.NewReader("n"), &out)
	ok, err = p.Confirm(ctx, "Convert?", "Yes", "No")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected decline")
	}
}

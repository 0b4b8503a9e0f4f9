package repl

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"

	tea "github.com/charmbracelet/bubbletea"
)

func TestKeyMap(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want key.Binding
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, keys.Submit},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, keys.Next},
		{"shift+tab", tea.KeyMsg{Type: tea.KeyShiftTab}, keys.Prev},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, keys.Toggle},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, keys.HistoryUp},
		{"alt+up", tea.KeyMsg{Type: tea.KeyUp, Alt: true}, keys.CtrlHistoryUp},
		{"shift+down", tea.KeyMsg{Type: tea.KeyShiftDown}, keys.ModeHistoryDown},
		{"ctrl+d", tea.KeyMsg{Type: tea.KeyCtrlD}, keys.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var matched []string

			for _, b := range keys.bindings() {
				if key.Matches(tt.msg, b) {
					matched = append(matched, b.Help().Key)
				}
			}

			if len(matched) != 1 || matched[0] != tt.want.Help().Key {
				t.Errorf("%q matched %v, want only %q", tt.msg.String(), matched, tt.want.Help().Key)
			}
		})
	}
}

func TestKeyMapHelp(t *testing.T) {
	help := keys.help()

	for _, b := range keys.bindings() {
		h := b.Help()
		if h.Key == "" || h.Desc == "" {
			t.Errorf("binding %v has no help", b.Keys())
		}

		if !strings.Contains(help, h.Desc) {
			t.Errorf("help missing %q", h.Desc)
		}
	}

	if !strings.Contains(helpMessage(), help) {
		t.Error("helpMessage does not include the key help")
	}
}

package repl

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the REPL key bindings. Alt and Shift history bindings must be
// matched before the plain arrow bindings.
type keyMap struct {
	Submit          key.Binding
	Next            key.Binding
	Prev            key.Binding
	Toggle          key.Binding
	HistoryUp       key.Binding
	HistoryDown     key.Binding
	ModeHistoryUp   key.Binding
	ModeHistoryDown key.Binding
	CtrlHistoryUp   key.Binding
	CtrlHistoryDown key.Binding
	Interrupt       key.Binding
	EOF             key.Binding
}

//nolint:gochecknoglobals
var keys = keyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "evaluate, or accept the selected candidate"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next completion candidate"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous completion candidate"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "toggle eval and command modes"),
	),
	HistoryUp: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("up", "previous history entry (switches mode)"),
	),
	HistoryDown: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("down", "next history entry (switches mode)"),
	),
	ModeHistoryUp: key.NewBinding(
		key.WithKeys("shift+up"),
		key.WithHelp("shift+up", "previous history entry in this mode"),
	),
	ModeHistoryDown: key.NewBinding(
		key.WithKeys("shift+down"),
		key.WithHelp("shift+down", "next history entry in this mode"),
	),
	CtrlHistoryUp: key.NewBinding(
		key.WithKeys("alt+up"),
		key.WithHelp("alt+up", "previous command (restores mode at the end)"),
	),
	CtrlHistoryDown: key.NewBinding(
		key.WithKeys("alt+down"),
		key.WithHelp("alt+down", "next command (restores mode at the end)"),
	),
	Interrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "clear the line, or exit on an empty line"),
	),
	EOF: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "exit on an empty line"),
	),
}

// bindings returns every binding in help order.
func (k keyMap) bindings() []key.Binding {
	return []key.Binding{
		k.Submit, k.Next, k.Prev, k.Toggle,
		k.HistoryUp, k.HistoryDown,
		k.ModeHistoryUp, k.ModeHistoryDown,
		k.CtrlHistoryUp, k.CtrlHistoryDown,
		k.Interrupt, k.EOF,
	}
}

// help renders one line per binding.
func (k keyMap) help() string {
	var b strings.Builder

	for _, kb := range k.bindings() {
		h := kb.Help()
		fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
	}

	return b.String()
}

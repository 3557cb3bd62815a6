package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	Mapping struct {
		CycleFocus key.Binding
		GoBack     key.Binding
		Quit       key.Binding
	}

	// LibraryMapping drives the list of saved scores.
	LibraryMapping struct {
		Open    key.Binding
		New     key.Binding
		Refresh key.Binding
		Quit    key.Binding
	}

	// EditorMapping drives the score editor. Single letter bindings only fire
	// in staff mode, where the jianpu input is not focused.
	EditorMapping struct {
		// Help only: pointer presses are not keys.
		Pointer       key.Binding
		CycleFocus    key.Binding
		Quarter       key.Binding
		Half          key.Binding
		Whole         key.Binding
		CycleDuration key.Binding
		TimeSignature key.Binding
		TempoUp       key.Binding
		TempoDown     key.Binding
		Save          key.Binding
		Export        key.Binding
		Play          key.Binding
		Stop          key.Binding
		Reload        key.Binding
		Reset         key.Binding
		GoBack        key.Binding
		Quit          key.Binding
	}
)

var DefaultMapping = Mapping{
	CycleFocus: key.NewBinding(
		key.WithKeys(tea.KeyTab.String()),
		key.WithHelp("tab", "cycle focus"),
	),
	GoBack: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "go back"),
	),
	Quit: key.NewBinding(
		key.WithKeys(tea.KeyCtrlC.String()),
		key.WithHelp("ctrl+c", "quit"),
	),
}

var Library = LibraryMapping{
	Open: key.NewBinding(
		key.WithKeys(tea.KeyEnter.String()),
		key.WithHelp("enter", "open score"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new score"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: DefaultMapping.Quit,
}

var Editor = EditorMapping{
	Pointer: key.NewBinding(
		key.WithKeys("click"),
		key.WithHelp("click", "blank staff adds a note, a note drags"),
	),
	CycleFocus: key.NewBinding(
		key.WithKeys(tea.KeyTab.String()),
		key.WithHelp("tab", "jianpu/staff"),
	),
	Quarter: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quarter"),
	),
	Half: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "half"),
	),
	Whole: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "whole"),
	),
	CycleDuration: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "cycle last note"),
	),
	TimeSignature: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "time signature"),
	),
	TempoUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "tempo up"),
	),
	TempoDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "tempo down"),
	),
	Save: key.NewBinding(
		key.WithKeys(tea.KeyCtrlS.String()),
		key.WithHelp("ctrl+s", "save"),
	),
	Export: key.NewBinding(
		key.WithKeys(tea.KeyCtrlE.String()),
		key.WithHelp("ctrl+e", "export midi"),
	),
	Play: key.NewBinding(
		key.WithKeys(tea.KeyCtrlP.String()),
		key.WithHelp("ctrl+p", "play"),
	),
	Stop: key.NewBinding(
		key.WithKeys(tea.KeyCtrlX.String()),
		key.WithHelp("ctrl+x", "stop"),
	),
	Reload: key.NewBinding(
		key.WithKeys(tea.KeyCtrlL.String()),
		key.WithHelp("ctrl+l", "load remote changes"),
	),
	Reset: key.NewBinding(
		key.WithKeys(tea.KeyCtrlN.String()),
		key.WithHelp("ctrl+n", "clear"),
	),
	GoBack: DefaultMapping.GoBack,
	Quit:   DefaultMapping.Quit,
}

func (m LibraryMapping) ShortHelp() []key.Binding {
	return []key.Binding{m.Open, m.New, m.Refresh, m.Quit}
}

func (m LibraryMapping) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp()}
}

func (m EditorMapping) ShortHelp() []key.Binding {
	return []key.Binding{m.Pointer, m.CycleFocus, m.Save, m.Play, m.GoBack}
}

func (m EditorMapping) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Pointer, m.CycleFocus, m.Quarter, m.Half, m.Whole, m.CycleDuration},
		{m.TimeSignature, m.TempoUp, m.TempoDown, m.Reset},
		{m.Save, m.Export, m.Play, m.Stop, m.Reload},
		{m.GoBack, m.Quit},
	}
}

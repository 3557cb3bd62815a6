package scoreui_test

import (
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxscore/rmxerr"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/scoreui"
)

// Rows of the canvas, counted from the top of the staff drawing.
const (
	rowB4 = 16
	rowD5 = 14
	// Column of the centre of a lone note in the first measure.
	colOnly = 17
)

func newModel() scoreui.Model {
	return scoreui.New(scoreui.Options{Logger: log.New(io.Discard, "", 0)})
}

func update(t *testing.T, m scoreui.Model, msgs ...tea.Msg) (scoreui.Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(scoreui.Model)
		require.True(t, ok)
	}
	return m, cmd
}

func mouse(typ tea.MouseEventType, col, row int) tea.MouseMsg {
	return tea.MouseMsg{Type: typ, X: scoreui.StaffLeft + col, Y: scoreui.StaffTop + row}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMouse(t *testing.T) {
	t.Run("a left click places a note of the selected duration", func(t *testing.T) {
		m, _ := update(t, newModel(),
			mouse(tea.MouseLeft, colOnly, rowB4),
			mouse(tea.MouseRelease, colOnly, rowB4),
			runes("h"),
			mouse(tea.MouseLeft, 5, rowD5),
			mouse(tea.MouseRelease, 5, rowD5),
		)
		require.Equal(t, []score.Note{
			score.NewNote(score.NewPitch(score.B, 4), score.Quarter),
			score.NewNote(score.NewPitch(score.D, 5), score.Half),
		}, m.Score().Flatten())
	})

	t.Run("dragging a note changes its pitch", func(t *testing.T) {
		m, _ := update(t, newModel(),
			mouse(tea.MouseLeft, colOnly, rowB4),
			mouse(tea.MouseRelease, colOnly, rowB4),
			mouse(tea.MouseLeft, colOnly, rowB4),
			mouse(tea.MouseMotion, colOnly, rowD5),
			mouse(tea.MouseRelease, colOnly, rowD5),
		)
		require.Equal(t, []score.Note{
			score.NewNote(score.NewPitch(score.D, 5), score.Quarter),
		}, m.Score().Flatten())
	})

	t.Run("a right click deletes", func(t *testing.T) {
		m, _ := update(t, newModel(),
			mouse(tea.MouseLeft, colOnly, rowB4),
			mouse(tea.MouseRelease, colOnly, rowB4),
			mouse(tea.MouseRight, colOnly, rowB4),
		)
		require.Empty(t, m.Score().Measures)
	})

	t.Run("clicks above the staff drawing are ignored", func(t *testing.T) {
		m, _ := update(t, newModel(), tea.MouseMsg{Type: tea.MouseLeft, X: 10, Y: 0})
		require.Empty(t, m.Score().Measures)
	})
}

func TestJianpu(t *testing.T) {
	m, _ := update(t, newModel(),
		tea.KeyMsg{Type: tea.KeyTab},
		runes("1"), runes(" "), runes("2"), runes("-"),
	)
	require.Equal(t, []score.Note{
		score.NewNote(score.NewPitch(score.C, 4), score.Quarter),
		score.NewNote(score.NewPitch(score.D, 4), score.Half),
	}, m.Score().Flatten())

	t.Run("staff letters are typed, not bound, in jianpu mode", func(t *testing.T) {
		m, _ := update(t, m, runes(" "), runes("h"))
		require.Equal(t, 2, m.Score().NoteCount())
	})

	t.Run("clicks are ignored in jianpu mode", func(t *testing.T) {
		m, _ := update(t, m, mouse(tea.MouseLeft, colOnly, rowB4))
		require.Equal(t, 2, m.Score().NoteCount())
	})

	t.Run("tab returns to the staff", func(t *testing.T) {
		m, _ := update(t, m, tea.KeyMsg{Type: tea.KeyTab}, mouse(tea.MouseLeft, colOnly, rowB4))
		require.Equal(t, 3, m.Score().NoteCount())
	})
}

func TestKeys(t *testing.T) {
	m, _ := update(t, newModel(), runes("+"), runes("+"))
	require.Equal(t, 130, m.Score().Tempo)

	m, _ = update(t, m, runes("t"))
	require.Equal(t, score.TwoFour, m.Score().TimeSignature)

	m, _ = update(t, m, mouse(tea.MouseLeft, colOnly, rowB4), mouse(tea.MouseRelease, colOnly, rowB4), runes("c"))
	require.Len(t, m.Score().Measures, 2, "a whole note spans two 2/4 measures")
	require.Equal(t, 4, m.Score().Weight())

	t.Run("clamped tempos show a notice", func(t *testing.T) {
		m := newModel()
		for i := 0; i < 40; i++ {
			m, _ = update(t, m, runes("+"))
		}
		require.Equal(t, score.MaxTempo, m.Score().Tempo)
		require.Equal(t, score.ErrTempoClamped.Error(), m.Notice())
		require.NoError(t, m.Err())
	})
}

func TestOpen(t *testing.T) {
	doc := score.New().Document()
	doc.Title = "Ode"
	doc.Notes = []score.Note{
		score.NewNote(score.NewPitch(score.E, 5), score.Half),
		score.NewNote(score.Rest, score.Quarter),
	}
	m, _ := update(t, newModel(), scoreui.OpenMsg{Doc: doc})
	require.Equal(t, doc.Notes, m.Score().Flatten())

	view := m.View()
	require.Contains(t, view, "Ode")
	require.Contains(t, view, "4/4")
	require.Contains(t, view, "○")
	require.Contains(t, view, "blank staff adds a note, a note drags", "help explains pointer presses")
}

func TestCommands(t *testing.T) {
	t.Run("saving offline reports an error", func(t *testing.T) {
		_, cmd := update(t, newModel(), tea.KeyMsg{Type: tea.KeyCtrlS})
		require.NotNil(t, cmd)
		msg := cmd()
		errMsg, ok := msg.(rmxerr.ErrMsg)
		require.True(t, ok)
		require.Contains(t, errMsg.Error(), "not connected")

		m, _ := update(t, newModel(), errMsg)
		require.True(t, errors.Is(m.Err(), errMsg.Err))
		require.True(t, strings.Contains(m.View(), "not connected"))
	})

	t.Run("escape leaves the editor", func(t *testing.T) {
		_, cmd := update(t, newModel(), tea.KeyMsg{Type: tea.KeyEsc})
		require.Equal(t, scoreui.LeaveMsg{}, cmd())
	})
}

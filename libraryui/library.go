package libraryui

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rapidmidiex/rmxscore/api"
	"github.com/rapidmidiex/rmxscore/keymap"
	"github.com/rapidmidiex/rmxscore/rmxerr"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/styles"
)

var docStyle = styles.DocStyle

type (
	// ScoresMsg carries the scores listed by the server.
	ScoresMsg struct {
		Docs []score.Document
	}

	ScoreSelected struct {
		ID string
	}

	// NewScore asks for an empty score to be opened.
	NewScore struct{}

	Model struct {
		client  *api.Client
		docs    []score.Document
		table   table.Model
		help    help.Model
		loading bool
		err     error
		log     *log.Logger
	}
)

// New lists the scores saved on the server behind client.
// A nil client only offers new scores.
func New(client *api.Client, l *log.Logger) Model {
	if l == nil {
		l = log.Default()
	}
	return Model{
		client:  client,
		table:   makeScoreTable(nil),
		help:    help.New(),
		loading: client != nil,
		log:     l,
	}
}

func (m Model) Init() tea.Cmd {
	return m.Refresh()
}

// Refresh lists the scores again.
func (m Model) Refresh() tea.Cmd {
	client := m.client
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		docs, err := client.List(context.Background())
		if err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("could not list scores: %w", err)}
		}
		return ScoresMsg{Docs: docs}
	}
}

// Docs returns the listed scores, most recent listing.
func (m Model) Docs() []score.Document { return m.docs }

func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	km := keymap.Library

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width - 10)
	case rmxerr.ErrMsg:
		m.err = msg.Err
		m.loading = false
		m.log.Printf("library: %v", msg.Err)
	case ScoresMsg:
		m.docs = msg.Docs
		m.table = makeScoreTable(m.docs)
		m.loading = false
		m.err = nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, km.Open):
			if len(m.docs) > 0 {
				cmds = append(cmds, selectScore(m.table.SelectedRow()[1]))
			}
		case key.Matches(msg, km.New):
			cmds = append(cmds, newScore)
		case key.Matches(msg, km.Refresh):
			m.loading = m.client != nil
			cmds = append(cmds, m.Refresh())
		}
	}

	if len(m.docs) > 0 {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	physicalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	doc := strings.Builder{}

	switch {
	case m.client == nil:
		doc.WriteString(styles.MessageText.Render("Offline. Press n to write a new score.\n\n"))
	case len(m.docs) > 0:
		doc.WriteString(styles.BaseStyle.Width(styles.Width).Render(m.table.View()))
	case m.loading:
		doc.WriteString(styles.MessageText.Render("Loading scores...\n\n"))
	case m.err == nil:
		doc.WriteString(styles.MessageText.Render("No Scores Yet. Create one?\n\n"))
	}

	if m.err != nil {
		doc.WriteString("\n" + styles.RenderError(m.err.Error()))
	}

	doc.WriteString("\n" + styles.HelpMenu.Render(m.help.View(keymap.Library)))

	if physicalWidth > 0 {
		docStyle = styles.DocStyle.MaxWidth(physicalWidth)
	}
	return docStyle.Render(doc.String())
}

func makeScoreTable(docs []score.Document) table.Model {
	columns := []table.Column{
		{Title: "Title", Width: 20},
		{Title: "ID", Width: 24},
		{Title: "Time", Width: 6},
		{Title: "Notes", Width: 6},
	}

	rows := make([]table.Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, table.Row{d.Title, d.ID, d.TimeSignature.String(), fmt.Sprintf("%d", len(d.Notes))})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// Commands

func selectScore(id string) tea.Cmd {
	return func() tea.Msg {
		return ScoreSelected{ID: id}
	}
}

func newScore() tea.Msg { return NewScore{} }

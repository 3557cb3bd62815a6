package rmxscore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rapidmidiex/rmxscore/api"
	"github.com/rapidmidiex/rmxscore/config"
	"github.com/rapidmidiex/rmxscore/keymap"
	"github.com/rapidmidiex/rmxscore/libraryui"
	"github.com/rapidmidiex/rmxscore/midi"
	"github.com/rapidmidiex/rmxscore/rmxerr"
	"github.com/rapidmidiex/rmxscore/rtt"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/scoreui"
)

// ********
// Code heavily based on "Project Journal"
// https://github.com/bashbunni/pjs
// https://www.youtube.com/watch?v=uJ2egAkSkjg&t=319s
// ********

// Lines View prints above the active view.
const headerHeight = 2

const rttInterval = 2 * time.Second

type (
	appView int

	mainModel struct {
		curView appView
		library libraryui.Model
		editor  scoreui.Model
		client  *api.Client
		server  string
		latency rtt.Stats
		log     *log.Logger
	}
)

const (
	libraryView appView = iota
	editorView
)

// NewModel builds the application model. An empty server URL runs the editor
// offline.
func NewModel(serverURL string, player *midi.Player, l *log.Logger) mainModel {
	if l == nil {
		l = log.Default()
	}
	var client *api.Client
	if serverURL != "" {
		client = api.New(serverURL)
		client.SetLogger(l)
	}
	return mainModel{
		curView: libraryView,
		library: libraryui.New(client, l),
		editor:  scoreui.New(scoreui.Options{Client: client, Player: player, Logger: l}),
		client:  client,
		server:  serverURL,
		log:     l,
	}
}

func (m mainModel) Init() tea.Cmd {
	return tea.Batch(
		m.library.Init(),
		m.editor.Init(),
		m.pollRTT(),
	)
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keymap.DefaultMapping.Quit) {
			return m, tea.Quit
		}

	case tea.MouseMsg:
		// Sub views lay themselves out from the top of the screen.
		msg.Y -= headerHeight
		if m.curView == editorView {
			m.editor, cmd = update(m.editor, msg)
		}
		return m, cmd

	case libraryui.ScoreSelected:
		m.log.Printf("opening score %s", msg.ID)
		return m, m.fetch(msg.ID)

	case libraryui.NewScore:
		m.curView = editorView
		m.editor, cmd = update(m.editor, scoreui.OpenMsg{Doc: score.New().Document()})
		return m, cmd

	case scoreui.OpenMsg:
		m.curView = editorView

	case rtt.CalcMsg:
		m.latency = rtt.Stats(msg)
		return m, m.pollRTT()

	case scoreui.LeaveMsg:
		m.curView = libraryView
		return m, m.library.Refresh()
	}

	switch m.curView {
	case libraryView:
		m.library, cmd = update(m.library, msg)
	case editorView:
		m.editor, cmd = update(m.editor, msg)
	}

	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m mainModel) View() string {
	server := m.server
	if server == "" {
		server = "offline"
	}
	if m.latency.Count > 0 {
		server += fmt.Sprintf(" · %s avg", m.latency.Avg)
	}
	serverLine := fmt.Sprintf("\nServer: %s\n", server)

	switch m.curView {
	case editorView:
		return serverLine + m.editor.View()
	default:
		return serverLine + m.library.View()
	}
}

func (m mainModel) pollRTT() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return rtt.Poll(m.client.RTT(), rttInterval)
}

func (m mainModel) fetch(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return rmxerr.ErrMsg{Err: errors.New("not connected to a server")}
		}
		doc, err := client.Get(context.Background(), id)
		if err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("open score: %w", err)}
		}
		return scoreui.OpenMsg{Doc: doc}
	}
}

// update forwards msg to a sub model and keeps its concrete type.
func update[M tea.Model](sub M, msg tea.Msg) (M, tea.Cmd) {
	next, cmd := sub.Update(msg)
	if n, ok := next.(M); ok {
		return n, cmd
	}
	return sub, cmd
}

// Run starts the terminal editor against cfg.Server.
func Run(cfg config.Config) error {
	l := log.New(io.Discard, "", log.LstdFlags)
	if cfg.Debug {
		f, err := tea.LogToFile(cfg.LogFile, "rmx")
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		l = log.Default()
	}

	player, err := midi.NewPlayer(midi.NewPlayerOpts{SoundFontPath: cfg.SoundFont})
	if err != nil && !errors.Is(err, midi.ErrNoSoundFont) {
		return fmt.Errorf("playback: %w", err)
	}

	m := NewModel(cfg.Server, player, l)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

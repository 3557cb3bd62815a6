package scoreui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rapidmidiex/rmxscore/api"
	"github.com/rapidmidiex/rmxscore/editor"
	"github.com/rapidmidiex/rmxscore/hittest"
	"github.com/rapidmidiex/rmxscore/keymap"
	"github.com/rapidmidiex/rmxscore/midi"
	"github.com/rapidmidiex/rmxscore/rmxerr"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/smfexport"
	"github.com/rapidmidiex/rmxscore/styles"
)

var docStyle = styles.DocStyle

// Where the staff starts inside View: the page padding, the title line and
// a blank line.
const (
	StaffTop  = 3
	StaffLeft = 2
)

const tempoStep = 5

const (
	staffFocus focused = iota
	jianpuFocus
)

var errOffline = errors.New("not connected to a server")

type (
	// Command Types
	OpenMsg struct {
		Doc score.Document
	}

	LeaveMsg struct{}

	savedMsg struct {
		doc score.Document
	}

	exportedMsg struct {
		path string
	}

	playingMsg struct {
		done <-chan struct{}
	}

	playbackDoneMsg struct{}

	segmentMsg struct {
		pitches []string
	}

	watchingMsg struct {
		id      string
		updates <-chan score.Document
		cancel  context.CancelFunc
	}

	remoteMsg struct {
		id  string
		doc score.Document
	}

	focused int

	Options struct {
		// Client of the score server. Nil edits offline.
		Client *api.Client
		// Nil disables local playback.
		Player *midi.Player
		Logger *log.Logger
	}

	Model struct {
		session *editor.Session
		input   textarea.Model
		help    help.Model
		focused focused

		client *api.Client
		player *midi.Player

		// Version last saved or loaded, to tell our own saves from others'.
		saved score.Document
		// Newer version saved elsewhere, applied with keymap.Editor.Reload.
		remote    *score.Document
		watching  string
		updates   <-chan score.Document
		stopWatch context.CancelFunc

		playing bool
		notice  string
		err     error

		log *log.Logger
	}
)

func New(o Options) Model {
	l := o.Logger
	if l == nil {
		l = log.Default()
	}

	ta := textarea.New()
	ta.Placeholder = "1 2 3 4 | 5- 0 1.--"
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(3)
	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	s := editor.New(editor.Options{Logger: l})
	return Model{
		session: s,
		input:   ta,
		help:    help.New(),
		focused: staffFocus,
		client:  o.Client,
		player:  o.Player,
		saved:   s.Document(),
		log:     l,
	}
}

// Score is the score being edited.
func (m Model) Score() score.Score { return m.session.Score() }

func (m Model) Document() score.Document { return m.session.Document() }

func (m Model) Notice() string { return m.notice }

func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - 8
		if w > styles.Width {
			w = styles.Width
		}
		if w > 10 {
			m.input.SetWidth(w)
		}

	case OpenMsg:
		m.open(msg.Doc)
		cmds = append(cmds, m.watch(msg.Doc.ID))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.KeyMsg:
		cmd = m.handleKey(msg)
		return m, cmd

	case savedMsg:
		m.session.SetID(msg.doc.ID)
		m.saved = msg.doc
		m.err = nil
		m.notice = fmt.Sprintf("Saved %q", msg.doc.Title)
		if m.watching != msg.doc.ID {
			cmds = append(cmds, m.watch(msg.doc.ID))
		}

	case exportedMsg:
		m.notice = "Exported to " + msg.path

	case segmentMsg:
		m.notice = "Segment: " + strings.Join(msg.pitches, " ")

	case playingMsg:
		m.playing = true
		cmds = append(cmds, waitPlayback(msg.done))

	case playbackDoneMsg:
		m.playing = false

	case watchingMsg:
		if m.stopWatch != nil {
			m.stopWatch()
		}
		m.watching = msg.id
		m.updates = msg.updates
		m.stopWatch = msg.cancel
		cmds = append(cmds, listen(msg.id, msg.updates))

	case remoteMsg:
		if msg.id != m.watching {
			break
		}
		if !reflect.DeepEqual(msg.doc, m.saved) {
			doc := msg.doc
			m.remote = &doc
			m.notice = "Changed elsewhere, " + keymap.Editor.Reload.Help().Key + " to load"
		}
		cmds = append(cmds, listen(m.watching, m.updates))

	case rmxerr.ErrMsg:
		m.err = msg.Err
		m.log.Printf("editor: %v", msg.Err)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmds []tea.Cmd
	km := keymap.Editor

	switch {
	case key.Matches(msg, km.Quit):
		return tea.Quit
	case key.Matches(msg, km.GoBack):
		return m.leave()
	case key.Matches(msg, km.CycleFocus):
		m.toggleFocus()
		return nil
	case key.Matches(msg, km.Save):
		return m.save()
	case key.Matches(msg, km.Export):
		return m.export()
	case key.Matches(msg, km.Play):
		return m.play()
	case key.Matches(msg, km.Stop):
		if m.player != nil {
			m.player.Stop()
		}
		m.playing = false
		return nil
	case key.Matches(msg, km.Reload):
		if m.remote != nil {
			m.open(*m.remote)
		}
		return nil
	case key.Matches(msg, km.Reset):
		m.stop()
		m.session.Reset()
		m.saved = m.session.Document()
		m.input.Reset()
		m.notice = ""
		return nil
	}

	if m.focused == jianpuFocus {
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if text := m.input.Value(); text != before {
			m.setNotice(m.session.SetJianpuText(text))
			if m.session.JianpuText() != text {
				m.input.SetValue(m.session.JianpuText())
			}
		}
		return tea.Batch(cmds...)
	}

	// *** Staff mode keys ***
	switch {
	case key.Matches(msg, km.Quarter):
		m.session.SelectDuration(score.Quarter)
	case key.Matches(msg, km.Half):
		m.session.SelectDuration(score.Half)
	case key.Matches(msg, km.Whole):
		m.session.SelectDuration(score.Whole)
	case key.Matches(msg, km.CycleDuration):
		s := m.session.Score()
		if last := len(s.Measures) - 1; last >= 0 {
			ref := score.NoteRef{Measure: last, Note: s.Measures[last].Len() - 1}
			m.setNotice(m.session.CycleDuration(ref))
		}
	case key.Matches(msg, km.TimeSignature):
		ts := m.session.Score().TimeSignature
		m.setNotice(m.session.SetTimeSignature(ts.Next()))
	case key.Matches(msg, km.TempoUp):
		_, err := m.session.SetTempo(m.session.Score().Tempo + tempoStep)
		m.setNotice(err)
	case key.Matches(msg, km.TempoDown):
		_, err := m.session.SetTempo(m.session.Score().Tempo - tempoStep)
		m.setNotice(err)
	}
	return tea.Batch(cmds...)
}

// handleMouse maps terminal cells onto the staff. A left press on a note
// starts dragging it, anywhere else it places a note.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	col, row := msg.X-StaffLeft, msg.Y-StaffTop
	if col < 0 || row < 0 {
		if msg.Type == tea.MouseRelease {
			m.session.PointerUp()
		}
		return nil
	}
	x, y := cellToLayout(col, row)

	switch msg.Type {
	case tea.MouseLeft:
		if _, dragging := m.session.Dragging(); dragging {
			m.session.PointerMove(x, y)
			return nil
		}
		if m.session.PointerDown(x, y) {
			return nil
		}
		before := m.session.Score().NoteCount()
		m.setNotice(m.session.Click(x, y))
		if m.session.Score().NoteCount() > before {
			return m.preview()
		}
	case tea.MouseMotion:
		m.session.PointerMove(x, y)
	case tea.MouseRelease:
		m.session.PointerUp()
	case tea.MouseRight:
		m.session.RightClick(x, y)
	case tea.MouseMiddle:
		s := m.session.Score()
		if ref, ok := hittest.Note(s, m.session.Layout(), x, y); ok {
			m.setNotice(m.session.CycleDuration(ref))
		}
	}
	return nil
}

func (m *Model) toggleFocus() {
	if m.focused == staffFocus {
		m.focused = jianpuFocus
		m.session.SetJianpuMode(true)
		m.input.SetValue(m.session.JianpuText())
		m.input.Focus()
		return
	}
	m.focused = staffFocus
	m.session.SetJianpuMode(false)
	m.input.Blur()
}

func (m *Model) open(doc score.Document) {
	m.remote = nil
	m.err = nil
	m.notice = ""
	m.setNotice(m.session.Load(doc))
	m.saved = m.session.Document()
	m.input.SetValue(m.session.JianpuText())
}

// setNotice shows limit notices in the status bar and anything else as an
// error.
func (m *Model) setNotice(err error) {
	switch {
	case err == nil:
	case rmxerr.IsNotice(err):
		m.notice = err.Error()
	default:
		m.err = err
	}
}

func (m *Model) stop() {
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	m.watching = ""
	m.updates = nil
	if m.player != nil && m.playing {
		m.player.Stop()
	}
	m.playing = false
}

func (m *Model) leave() tea.Cmd {
	m.stop()
	return func() tea.Msg {
		return LeaveMsg{}
	}
}

func (m Model) View() string {
	physicalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	doc := strings.Builder{}

	if physicalWidth > 0 {
		docStyle = styles.DocStyle.MaxWidth(physicalWidth)
	}

	s := m.session.Score()
	mode := "staff · " + m.session.Duration().Name()
	if m.focused == jianpuFocus {
		mode = "jianpu"
	}
	if m.playing {
		mode += " · playing"
	}
	doc.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.TitleStyle.Render(s.Title),
		" ",
		styles.ModeStyle.Render(mode),
		styles.TempoStyle.Render(fmt.Sprintf("%s ♩=%d", s.TimeSignature, s.Tempo)),
	))
	doc.WriteString("\n\n")

	ref, dragging := m.session.Dragging()
	doc.WriteString(drawStaff(s, m.session.Layout(), ref, dragging))
	doc.WriteString("\n\n")

	doc.WriteString(m.input.View())
	doc.WriteString("\n")

	switch {
	case m.err != nil:
		doc.WriteString(styles.RenderError(m.err.Error()))
	case m.notice != "":
		doc.WriteString(styles.RenderNotice(m.notice))
	}

	doc.WriteString("\n" + styles.HelpMenu.Render(m.help.View(keymap.Editor)))
	return docStyle.Render(doc.String())
}

// Commands

func (m Model) save() tea.Cmd {
	doc := m.session.Document()
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("save: %w", errOffline)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		saved, err := client.Save(ctx, doc)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return savedMsg{doc: saved}
	}
}

// export asks the server for a MIDI file of a saved score, or writes one to
// the working directory when offline or unsaved.
func (m Model) export() tea.Cmd {
	doc := m.session.Document()
	client := m.client
	return func() tea.Msg {
		if client == nil || doc.ID == "" {
			path := fileName(doc.Title) + ".mid"
			if err := smfexport.WriteFile(path, doc); err != nil {
				return rmxerr.ErrMsg{Err: err}
			}
			return exportedMsg{path: path}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		url, err := client.Export(ctx, doc.ID, 0, 0)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return exportedMsg{path: url}
	}
}

// play renders locally when a sound font is available, otherwise lists the
// pitches the server would play.
func (m Model) play() tea.Cmd {
	doc := m.session.Document()
	client, player := m.client, m.player
	return func() tea.Msg {
		if player != nil {
			streamer, err := player.Render(doc)
			if err != nil {
				return rmxerr.ErrMsg{Err: err}
			}
			done, err := player.Play(streamer)
			if err != nil {
				return rmxerr.ErrMsg{Err: err}
			}
			return playingMsg{done: done}
		}
		if client == nil || doc.ID == "" {
			return rmxerr.ErrMsg{Err: fmt.Errorf("play: %w", midi.ErrNoSoundFont)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pitches, err := client.Play(ctx, doc.ID, 0, 0)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return segmentMsg{pitches: pitches}
	}
}

// preview sounds the last placed note.
func (m Model) preview() tea.Cmd {
	if m.player == nil {
		return nil
	}
	s := m.session.Score()
	notes := s.Flatten()
	if len(notes) == 0 {
		return nil
	}
	player, n, tempo := m.player, notes[len(notes)-1], s.Tempo
	return func() tea.Msg {
		streamer, err := player.Preview(n, tempo)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		done, err := player.Play(streamer)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return playingMsg{done: done}
	}
}

func (m Model) watch(id string) tea.Cmd {
	client := m.client
	if client == nil || id == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		updates, err := client.Watch(ctx, id)
		if err != nil {
			cancel()
			return rmxerr.ErrMsg{Err: err}
		}
		return watchingMsg{id: id, updates: updates, cancel: cancel}
	}
}

// listen waits for the next saved version of the watched score.
// https://github.com/charmbracelet/bubbletea/issues/25#issuecomment-732339162
func listen(id string, updates <-chan score.Document) tea.Cmd {
	return func() tea.Msg {
		doc, ok := <-updates
		if !ok {
			return nil
		}
		return remoteMsg{id: id, doc: doc}
	}
}

func waitPlayback(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return playbackDoneMsg{}
	}
}

func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, title)
	if name == "" {
		return "score"
	}
	return name
}

// Package editor holds the editing session: the one mutable score of an
// editor window and the operations users apply to it.
//
// Every operation replaces the session's score with a new value and
// recomputes from scratch; nothing is patched in place.
package editor

import (
	"errors"
	"fmt"
	"log"

	"github.com/rapidmidiex/rmxscore/hittest"
	"github.com/rapidmidiex/rmxscore/jianpu"
	"github.com/rapidmidiex/rmxscore/layout"
	"github.com/rapidmidiex/rmxscore/quantize"
	"github.com/rapidmidiex/rmxscore/score"
)

type (
	Options struct {
		// Page geometry. Zero value means layout.DefaultConfig.
		Layout *layout.Config
		Logger *log.Logger
	}

	Session struct {
		// ID of the saved document this session edits, if any.
		id    string
		score score.Score
		cfg   layout.Config

		jianpuMode bool
		jianpuText string
		// Duration given to notes placed with the pointer.
		duration score.Duration

		dragging bool
		drag     score.NoteRef

		log *log.Logger
	}
)

// ErrJianpuMode is returned by staff edits while text entry is active.
var ErrJianpuMode = errors.New("staff editing is disabled in jianpu mode")

func New(o Options) *Session {
	cfg := layout.DefaultConfig()
	if o.Layout != nil {
		cfg = *o.Layout
	}
	l := o.Logger
	if l == nil {
		l = log.Default()
	}
	return &Session{
		score:    score.New(),
		cfg:      cfg,
		duration: score.Quarter,
		log:      l,
	}
}

// Score returns a copy of the current score.
func (s *Session) Score() score.Score { return s.score.Clone() }

func (s *Session) ID() string { return s.id }

func (s *Session) SetID(id string) { s.id = id }

func (s *Session) JianpuMode() bool { return s.jianpuMode }

func (s *Session) JianpuText() string { return s.jianpuText }

func (s *Session) Duration() score.Duration { return s.duration }

func (s *Session) LayoutConfig() layout.Config { return s.cfg }

// Dragging returns the note being dragged, if any.
func (s *Session) Dragging() (score.NoteRef, bool) {
	return s.drag, s.dragging
}

// Layout recomputes the page geometry of the current score.
func (s *Session) Layout() layout.Result {
	return layout.Layout(s.score, s.cfg)
}

// SetJianpuMode switches between text entry and pointing on the staff.
// Entering jianpu mode ends any drag.
func (s *Session) SetJianpuMode(on bool) {
	s.jianpuMode = on
	if on {
		s.dragging = false
	}
}

// SelectDuration sets the duration of notes placed by clicking.
func (s *Session) SelectDuration(d score.Duration) error {
	if !d.Valid() {
		return fmt.Errorf("select duration: unknown duration %d", int(d))
	}
	s.duration = d
	return nil
}

// SetJianpuText replaces the score's notes with the parsed text. The
// returned error joins the limit notices that applied; the score is
// replaced regardless, holding whatever fit.
func (s *Session) SetJianpuText(text string) error {
	res := jianpu.Parse(text)
	for _, w := range res.Warnings {
		s.log.Printf("jianpu: %s", w)
	}
	text, _ = jianpu.Truncate(text)

	next := s.score
	var truncated bool
	next.Measures, truncated = quantize.Quantize(res.Notes, next.TimeSignature.Beats(), score.MaxMeasures)
	s.score = next
	s.jianpuText = text

	var notices []error
	if res.TextTruncated {
		notices = append(notices, score.ErrTextLimit)
	}
	if res.TokensTruncated {
		notices = append(notices, score.ErrTokenLimit)
	}
	if truncated {
		notices = append(notices, score.ErrMeasureLimit)
	}
	err := errors.Join(notices...)
	if err != nil {
		s.log.Printf("jianpu: %v", err)
	}
	return err
}

// Click places a note of the selected duration at the pitch under y.
// Clicks off the staff are ignored. In jianpu mode nothing happens.
func (s *Session) Click(x, y float64) error {
	if s.jianpuMode {
		return nil
	}
	p, ok := hittest.Pitch(s.Layout(), y)
	if !ok {
		return nil
	}
	return s.Append(score.NewNote(p, s.duration))
}

// Append adds n to the last measure if it fits, otherwise opens a new
// measure. A note longer than a measure continues into the following ones.
// If that would exceed score.MaxMeasures the score is left unchanged and
// score.ErrMeasureLimit is returned.
func (s *Session) Append(n score.Note) error {
	if !n.Duration.Valid() {
		return fmt.Errorf("append: unknown duration %d", int(n.Duration))
	}
	beats := s.score.TimeSignature.Beats()
	measures := s.score.Measures
	last := len(measures) - 1

	next := s.score
	if last >= 0 && measures[last].Fits(n, beats) {
		next.Measures = make([]score.Measure, len(measures))
		copy(next.Measures, measures)
		next.Measures[last] = measures[last].Append(n)
		s.score = next
		return nil
	}

	opened, _ := quantize.Quantize([]score.Note{n}, beats, score.MaxMeasures)
	if len(measures)+len(opened) > score.MaxMeasures {
		s.log.Printf("append %s: %v", n, score.ErrMeasureLimit)
		return score.ErrMeasureLimit
	}
	next.Measures = make([]score.Measure, 0, len(measures)+len(opened))
	next.Measures = append(next.Measures, measures...)
	next.Measures = append(next.Measures, opened...)
	s.score = next
	return nil
}

// RightClick deletes the note under the pointer. It reports whether a
// note was removed.
func (s *Session) RightClick(x, y float64) bool {
	if s.jianpuMode {
		return false
	}
	ref, ok := hittest.Note(s.score, s.Layout(), x, y)
	if !ok {
		return false
	}
	return s.Delete(ref)
}

// Delete removes a note. A measure left empty is removed with it.
func (s *Session) Delete(ref score.NoteRef) bool {
	if _, ok := s.score.Note(ref); !ok {
		return false
	}
	next := s.score
	next.Measures = make([]score.Measure, 0, len(s.score.Measures))
	for i, m := range s.score.Measures {
		if i == ref.Measure {
			m = m.Remove(ref.Note)
			if m.Empty() {
				continue
			}
		}
		next.Measures = append(next.Measures, m)
	}
	s.score = next
	s.dragging = false
	return true
}

// PointerDown starts dragging the note under the pointer. Rests cannot be
// dragged. It reports whether a drag started.
func (s *Session) PointerDown(x, y float64) bool {
	if s.jianpuMode {
		return false
	}
	ref, ok := hittest.Note(s.score, s.Layout(), x, y)
	if !ok {
		return false
	}
	n, _ := s.score.Note(ref)
	if n.Pitch.IsRest() {
		return false
	}
	s.drag = ref
	s.dragging = true
	return true
}

// PointerMove moves the dragged note to the pitch under y, keeping its
// duration. It reports whether the pitch changed.
func (s *Session) PointerMove(x, y float64) bool {
	if !s.dragging || s.jianpuMode {
		return false
	}
	p, ok := hittest.Pitch(s.Layout(), y)
	if !ok {
		return false
	}
	n, ok := s.score.Note(s.drag)
	if !ok {
		s.dragging = false
		return false
	}
	if n.Pitch == p {
		return false
	}
	s.SetPitch(s.drag, p)
	return true
}

// PointerUp ends any drag.
func (s *Session) PointerUp() {
	s.dragging = false
}

// SetPitch replaces the pitch of one note.
func (s *Session) SetPitch(ref score.NoteRef, p score.Pitch) bool {
	n, ok := s.score.Note(ref)
	if !ok {
		return false
	}
	next := s.score
	next.Measures = make([]score.Measure, len(s.score.Measures))
	copy(next.Measures, s.score.Measures)
	next.Measures[ref.Measure] = s.score.Measures[ref.Measure].Replace(ref.Note, n.WithPitch(p))
	s.score = next
	return true
}

// CycleDuration steps a note through whole, half and quarter. The score is
// re-packed afterwards so no measure overflows.
func (s *Session) CycleDuration(ref score.NoteRef) error {
	if s.jianpuMode {
		return ErrJianpuMode
	}
	n, ok := s.score.Note(ref)
	if !ok {
		return fmt.Errorf("cycle duration: no note at measure %d, note %d", ref.Measure, ref.Note)
	}
	notes := s.score.Flatten()
	notes[s.score.Index(ref)] = n.WithDuration(n.Duration.Next())
	return s.repack(notes, s.score.TimeSignature)
}

// SetTimeSignature re-packs all notes under ts. If the notes no longer fit
// in score.MaxMeasures the change is refused.
func (s *Session) SetTimeSignature(ts score.TimeSignature) error {
	if !ts.Valid() {
		return fmt.Errorf("set time signature: unsupported %d", int(ts))
	}
	return s.repack(s.score.Flatten(), ts)
}

func (s *Session) repack(notes []score.Note, ts score.TimeSignature) error {
	measures, truncated := quantize.Quantize(notes, ts.Beats(), score.MaxMeasures)
	if truncated {
		s.log.Printf("repack %s: %v", ts, score.ErrMeasureLimit)
		return score.ErrMeasureLimit
	}
	next := s.score
	next.TimeSignature = ts
	next.Measures = measures
	s.score = next
	return nil
}

// SetTempo clamps bpm to the supported range and returns the tempo applied.
// score.ErrTempoClamped reports that clamping happened.
func (s *Session) SetTempo(bpm int) (int, error) {
	clamped := score.ClampTempo(bpm)
	next := s.score
	next.Tempo = clamped
	s.score = next
	if clamped != bpm {
		return clamped, score.ErrTempoClamped
	}
	return clamped, nil
}

func (s *Session) SetTitle(title string) {
	next := s.score
	next.Title = title
	s.score = next
}

// Reset starts over with an empty score, forgetting the saved document.
func (s *Session) Reset() {
	s.id = ""
	s.score = score.New()
	s.jianpuText = ""
	s.dragging = false
}

// Load replaces the score with a saved document. The jianpu text is
// regenerated from its notes.
func (s *Session) Load(doc score.Document) error {
	doc = doc.Normalize()
	measures, truncated := quantize.Quantize(doc.Notes, doc.TimeSignature.Beats(), score.MaxMeasures)
	s.id = doc.ID
	s.score = score.Score{
		Title:         doc.Title,
		TimeSignature: doc.TimeSignature,
		Tempo:         doc.Tempo,
		Measures:      measures,
	}
	s.jianpuText = jianpu.Format(s.score.Flatten())
	s.dragging = false
	if truncated {
		return fmt.Errorf("load %s: %w", doc.ID, score.ErrMeasureLimit)
	}
	return nil
}

// Document flattens the score for saving.
func (s *Session) Document() score.Document {
	doc := s.score.Document()
	doc.ID = s.id
	return doc
}

// Package score contains the in-memory model of a single-staff score: notes
// grouped into measures under a time signature.
//
// Values in this package are treated as immutable. Functions that change a
// score return a new value and leave their argument untouched.
package score

import (
	"encoding/json"
	"fmt"
)

type (
	Note struct {
		Pitch    Pitch    `json:"pitch"`
		Duration Duration `json:"duration"`
	}

	// Measure is a bar of notes. Filled always equals the summed weight of
	// Notes and never exceeds the beats of the score's time signature.
	// Under-filled measures are padded with rests when drawn.
	Measure struct {
		Notes  []Note `json:"notes"`
		Filled int    `json:"filled"`
	}

	// TimeSignature counts quarter-note beats per measure: 2/4, 3/4 or 4/4.
	TimeSignature int

	Score struct {
		Title         string
		TimeSignature TimeSignature
		// Beats per minute, [MinTempo, MaxTempo].
		Tempo    int
		Measures []Measure
	}

	// NoteRef addresses a note by measure and position inside the measure.
	NoteRef struct {
		Measure int
		Note    int
	}
)

const (
	TwoFour   TimeSignature = 2
	ThreeFour TimeSignature = 3
	FourFour  TimeSignature = 4
)

var TimeSignatures = []TimeSignature{TwoFour, ThreeFour, FourFour}

const DefaultTitle = "Untitled"

// New returns an empty 4/4 score.
func New() Score {
	return Score{
		Title:         DefaultTitle,
		TimeSignature: FourFour,
		Tempo:         DefaultTempo,
	}
}

func NewNote(p Pitch, d Duration) Note {
	return Note{Pitch: p, Duration: d}
}

func (n Note) Weight() int { return n.Duration.Weight() }

// WithDuration returns a copy of n with a different length.
func (n Note) WithDuration(d Duration) Note {
	n.Duration = d
	return n
}

func (n Note) WithPitch(p Pitch) Note {
	n.Pitch = p
	return n
}

func (n Note) String() string {
	return n.Pitch.String() + ":" + n.Duration.String()
}

// NewMeasure copies notes into a measure and computes its fill.
func NewMeasure(notes ...Note) Measure {
	m := Measure{Notes: make([]Note, len(notes))}
	copy(m.Notes, notes)
	m.Filled = Weight(notes)
	return m
}

// Weight sums the quarter-note weight of notes.
func Weight(notes []Note) int {
	total := 0
	for _, n := range notes {
		total += n.Weight()
	}
	return total
}

func (m Measure) Clone() Measure {
	return NewMeasure(m.Notes...)
}

func (m Measure) Len() int { return len(m.Notes) }

func (m Measure) Empty() bool { return len(m.Notes) == 0 }

// Remaining is the weight still free under the given beats.
func (m Measure) Remaining(beats int) int {
	return beats - m.Filled
}

// Fits reports whether n can be appended without exceeding beats.
func (m Measure) Fits(n Note, beats int) bool {
	return m.Filled+n.Weight() <= beats
}

// Append returns a copy of m with notes added at the end.
func (m Measure) Append(notes ...Note) Measure {
	all := make([]Note, 0, len(m.Notes)+len(notes))
	all = append(all, m.Notes...)
	all = append(all, notes...)
	return NewMeasure(all...)
}

// Remove returns a copy of m without the note at i.
func (m Measure) Remove(i int) Measure {
	notes := make([]Note, 0, len(m.Notes))
	notes = append(notes, m.Notes[:i]...)
	notes = append(notes, m.Notes[i+1:]...)
	return NewMeasure(notes...)
}

// Replace returns a copy of m with the note at i swapped for n.
func (m Measure) Replace(i int, n Note) Measure {
	out := m.Clone()
	out.Notes[i] = n
	out.Filled = Weight(out.Notes)
	return out
}

func (ts TimeSignature) Valid() bool {
	return ts >= TwoFour && ts <= FourFour
}

// Beats is the capacity of one measure in quarter notes.
func (ts TimeSignature) Beats() int { return int(ts) }

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/4", int(ts))
}

// Next cycles 2/4 -> 3/4 -> 4/4 -> 2/4.
func (ts TimeSignature) Next() TimeSignature {
	if ts >= FourFour || ts < TwoFour {
		return TwoFour
	}
	return ts + 1
}

func ParseTimeSignature(s string) (TimeSignature, error) {
	for _, ts := range TimeSignatures {
		if ts.String() == s {
			return ts, nil
		}
	}
	return FourFour, fmt.Errorf("unsupported time signature: %q", s)
}

func (ts TimeSignature) MarshalJSON() ([]byte, error) {
	if !ts.Valid() {
		return nil, fmt.Errorf("unsupported time signature: %d", int(ts))
	}
	return json.Marshal(ts.String())
}

func (ts *TimeSignature) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeSignature(raw)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Clone deep-copies the measures so the copy can be changed independently.
func (s Score) Clone() Score {
	out := s
	out.Measures = make([]Measure, len(s.Measures))
	for i, m := range s.Measures {
		out.Measures[i] = m.Clone()
	}
	return out
}

// Flatten lists every note in order, dropping measure boundaries.
func (s Score) Flatten() []Note {
	notes := make([]Note, 0, s.NoteCount())
	for _, m := range s.Measures {
		notes = append(notes, m.Notes...)
	}
	return notes
}

func (s Score) NoteCount() int {
	n := 0
	for _, m := range s.Measures {
		n += len(m.Notes)
	}
	return n
}

// Weight is the total length of the score in quarter notes.
func (s Score) Weight() int {
	w := 0
	for _, m := range s.Measures {
		w += m.Filled
	}
	return w
}

// Note looks up a note by reference.
func (s Score) Note(ref NoteRef) (Note, bool) {
	if ref.Measure < 0 || ref.Measure >= len(s.Measures) {
		return Note{}, false
	}
	m := s.Measures[ref.Measure]
	if ref.Note < 0 || ref.Note >= len(m.Notes) {
		return Note{}, false
	}
	return m.Notes[ref.Note], true
}

// Index converts a reference into a position in Flatten.
func (s Score) Index(ref NoteRef) int {
	idx := ref.Note
	for i := 0; i < ref.Measure && i < len(s.Measures); i++ {
		idx += len(s.Measures[i].Notes)
	}
	return idx
}

// Validate checks the measure invariants for the score's time signature.
func (s Score) Validate() error {
	if !s.TimeSignature.Valid() {
		return fmt.Errorf("unsupported time signature: %d", int(s.TimeSignature))
	}
	if s.Tempo < MinTempo || s.Tempo > MaxTempo {
		return fmt.Errorf("tempo %d: %w", s.Tempo, ErrTempoClamped)
	}
	if len(s.Measures) > MaxMeasures {
		return fmt.Errorf("%d measures: %w", len(s.Measures), ErrMeasureLimit)
	}
	beats := s.TimeSignature.Beats()
	for i, m := range s.Measures {
		for j, n := range m.Notes {
			if !n.Duration.Valid() {
				return fmt.Errorf("measure %d note %d: invalid duration %d", i, j, int(n.Duration))
			}
		}
		if w := Weight(m.Notes); w != m.Filled {
			return fmt.Errorf("measure %d: filled %d, notes weigh %d", i, m.Filled, w)
		}
		if m.Filled > beats {
			return fmt.Errorf("measure %d: filled %d exceeds %d beats", i, m.Filled, beats)
		}
	}
	return nil
}

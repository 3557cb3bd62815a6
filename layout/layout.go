// Package layout computes where measures and notes sit on the page.
//
// All measures share one stave width so that columns line up across lines.
// Positions are in pixels with the origin at the top left of the staff
// container.
package layout

import (
	"math"

	"github.com/rapidmidiex/rmxscore/score"
)

type (
	Config struct {
		// Narrowest stave allowed.
		MinStaveWidth    float64
		PixelsPerQuarter float64
		// Extra room per note on top of its duration share.
		NoteSpacing      float64
		Margin           float64
		ClefAndTimeWidth float64
		// Vertical distance between the origins of two lines of staves.
		StaveHeight     float64
		MeasuresPerLine int
		// Space above the first line.
		TopMargin float64
		// Added to the canvas size on both axes.
		Padding float64
		// Distance from a stave's origin down to its top staff line.
		StaffOffset float64
		// Distance between two adjacent staff lines.
		LineSpacing float64
		// How far outside the staff lines a pointer still counts as on it.
		Tolerance float64
	}

	// Stave is the placement of one measure.
	Stave struct {
		// Index of the measure this stave draws.
		Measure      int
		Line, Column int
		// Bounding box.
		X, Y, Width, Height float64
		// y of the top and bottom staff lines.
		Top, Bottom float64
		// Only the first stave carries the clef and time signature glyphs,
		// but every stave reserves their width.
		ShowClef bool
		// Width left for notes after the clef area and margins.
		UsableWidth float64
		// Approximate centre of every note. Hit testing inverts this.
		NotesX []float64
		// Quarter rests the drawing side adds to pad a short measure.
		PadBeats int
	}

	Result struct {
		Config        Config
		TimeSignature score.TimeSignature
		StaveWidth    float64
		// Canvas size.
		Width, Height float64
		Lines         int
		Staves        []Stave
	}
)

// DefaultConfig matches the proportions of a standard engraved treble staff.
func DefaultConfig() Config {
	return Config{
		MinStaveWidth:    300,
		PixelsPerQuarter: 20,
		NoteSpacing:      10,
		Margin:           10,
		ClefAndTimeWidth: 50,
		StaveHeight:      100,
		MeasuresPerLine:  4,
		TopMargin:        20,
		Padding:          20,
		StaffOffset:      40,
		LineSpacing:      10,
		Tolerance:        15,
	}
}

// StaveWidth is the widest measure's natural width, floored at
// cfg.MinStaveWidth.
func StaveWidth(s score.Score, cfg Config) float64 {
	w := cfg.MinStaveWidth
	for _, m := range s.Measures {
		natural := cfg.ClefAndTimeWidth +
			float64(m.Filled)*cfg.PixelsPerQuarter +
			float64(len(m.Notes))*cfg.NoteSpacing +
			2*cfg.Margin
		w = math.Max(w, natural)
	}
	return w
}

// Layout places every measure of s. An empty score still gets one stave
// showing only the clef and time signature.
func Layout(s score.Score, cfg Config) Result {
	if cfg.MeasuresPerLine <= 0 {
		cfg.MeasuresPerLine = 1
	}
	staveWidth := StaveWidth(s, cfg)

	n := len(s.Measures)
	slots := n
	if slots == 0 {
		slots = 1
	}
	lines := (slots + cfg.MeasuresPerLine - 1) / cfg.MeasuresPerLine
	columns := slots
	if columns > cfg.MeasuresPerLine {
		columns = cfg.MeasuresPerLine
	}

	res := Result{
		Config:        cfg,
		TimeSignature: s.TimeSignature,
		StaveWidth:    staveWidth,
		Width:         staveWidth*float64(columns) + cfg.Padding,
		Height:        cfg.StaveHeight*float64(lines) + cfg.Padding,
		Lines:         lines,
		Staves:        make([]Stave, slots),
	}

	beats := s.TimeSignature.Beats()
	for i := 0; i < slots; i++ {
		var m score.Measure
		if i < n {
			m = s.Measures[i]
		}
		res.Staves[i] = res.place(i, m, beats)
	}
	return res
}

func (r Result) place(i int, m score.Measure, beats int) Stave {
	cfg := r.Config
	line := i / cfg.MeasuresPerLine
	col := i % cfg.MeasuresPerLine
	st := Stave{
		Measure:     i,
		Line:        line,
		Column:      col,
		X:           cfg.Margin + float64(col)*r.StaveWidth,
		Y:           cfg.TopMargin + float64(line)*cfg.StaveHeight,
		Width:       r.StaveWidth,
		Height:      cfg.StaveHeight,
		Top:         r.LineTop(line),
		Bottom:      r.LineBottom(line),
		ShowClef:    i == 0,
		UsableWidth: r.UsableWidth(),
		PadBeats:    beats - m.Filled,
	}
	if st.PadBeats < 0 {
		st.PadBeats = 0
	}

	count := len(m.Notes)
	st.NotesX = make([]float64, count)
	for j := range st.NotesX {
		slot := st.UsableWidth / float64(count)
		st.NotesX[j] = st.X + cfg.ClefAndTimeWidth + slot*(float64(j)+0.5)
	}
	return st
}

// UsableWidth is the width of a stave left for notes.
func (r Result) UsableWidth() float64 {
	return r.StaveWidth - r.Config.ClefAndTimeWidth - 2*r.Config.Margin
}

// LineTop is the y of the top staff line on the given line of staves.
func (r Result) LineTop(line int) float64 {
	return r.Config.TopMargin + float64(line)*r.Config.StaveHeight + r.Config.StaffOffset
}

// LineBottom is the y of the bottom staff line on the given line of staves.
func (r Result) LineBottom(line int) float64 {
	return r.LineTop(line) + 4*r.Config.LineSpacing
}

// MiddleLineY is the y of the middle staff line, where b/4 sits on a
// treble staff.
func (r Result) MiddleLineY(line int) float64 {
	return r.LineTop(line) + 2*r.Config.LineSpacing
}

// PitchY is the y at which p is drawn on the given line. Rests sit on the
// middle line.
func (r Result) PitchY(line int, p score.Pitch) float64 {
	if p.IsRest() {
		return r.MiddleLineY(line)
	}
	steps := p.Position() - MiddlePitch.Position()
	return r.MiddleLineY(line) - float64(steps)*r.Config.LineSpacing/2
}

// MiddlePitch is the pitch on the middle line of a treble staff.
var MiddlePitch = score.NewPitch(score.B, 4)

// Stave returns the placement of a measure.
func (r Result) Stave(measure int) (Stave, bool) {
	if measure < 0 || measure >= len(r.Staves) {
		return Stave{}, false
	}
	return r.Staves[measure], true
}

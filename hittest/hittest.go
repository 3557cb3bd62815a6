// Package hittest maps pointer coordinates back onto the score, inverting
// the placement computed by package layout.
package hittest

import (
	"math"

	"github.com/rapidmidiex/rmxscore/layout"
	"github.com/rapidmidiex/rmxscore/score"
)

// Pitch resolves a vertical position to the pitch of the staff line or space
// under it. b/4 sits on the middle line; every half line spacing moves one
// letter along c..b, changing octave when the cycle wraps.
//
// y must fall within Tolerance of a line of staves that exists in r, and the
// pitch must lie in octaves 3 to 5.
func Pitch(r layout.Result, y float64) (score.Pitch, bool) {
	cfg := r.Config
	line, ok := band(r, y)
	if !ok {
		return score.Rest, false
	}

	halfSpace := cfg.LineSpacing / 2
	steps := int(math.Round((r.MiddleLineY(line) - y) / halfSpace))
	p := layout.MiddlePitch.Step(steps)
	if !p.InStaffRange() {
		return score.Rest, false
	}
	return p, true
}

// band finds the line of staves whose tolerance window holds y.
func band(r layout.Result, y float64) (int, bool) {
	cfg := r.Config
	if cfg.StaveHeight <= 0 {
		return 0, false
	}
	firstTop := r.LineTop(0) - cfg.Tolerance
	if y < firstTop {
		return 0, false
	}
	line := int(math.Floor((y - firstTop) / cfg.StaveHeight))
	if line >= r.Lines {
		return 0, false
	}
	if y < r.LineTop(line)-cfg.Tolerance || y > r.LineBottom(line)+cfg.Tolerance {
		return 0, false
	}
	return line, true
}

// Measure resolves a position to the index of the stave under it. The
// measure may be empty.
func Measure(s score.Score, r layout.Result, x, y float64) (int, bool) {
	cfg := r.Config
	if x < cfg.Margin || y < 0 || r.StaveWidth <= 0 || cfg.StaveHeight <= 0 {
		return 0, false
	}
	line := int(math.Floor(y / cfg.StaveHeight))
	col := int(math.Floor((x - cfg.Margin) / r.StaveWidth))
	if col >= cfg.MeasuresPerLine {
		return 0, false
	}
	idx := line*cfg.MeasuresPerLine + col
	if idx >= len(s.Measures) {
		return 0, false
	}
	return idx, true
}

// Note resolves a position to a note. The measure's usable width is divided
// evenly among its notes, matching layout.Stave.NotesX.
func Note(s score.Score, r layout.Result, x, y float64) (score.NoteRef, bool) {
	idx, ok := Measure(s, r, x, y)
	if !ok {
		return score.NoteRef{}, false
	}
	m := s.Measures[idx]
	count := len(m.Notes)
	if count == 0 {
		return score.NoteRef{}, false
	}
	st, ok := r.Stave(idx)
	if !ok {
		return score.NoteRef{}, false
	}

	slot := st.UsableWidth / float64(count)
	if slot <= 0 {
		return score.NoteRef{}, false
	}
	n := int(math.Floor((x - st.X - r.Config.ClefAndTimeWidth) / slot))
	if n < 0 || n >= count {
		return score.NoteRef{}, false
	}
	return score.NoteRef{Measure: idx, Note: n}, true
}

package hittest_test

import (
	"testing"

	"github.com/rapidmidiex/rmxscore/hittest"
	"github.com/rapidmidiex/rmxscore/jianpu"
	"github.com/rapidmidiex/rmxscore/layout"
	"github.com/rapidmidiex/rmxscore/quantize"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/stretchr/testify/require"
)

func scoreFrom(text string) score.Score {
	s := score.New()
	s.Measures, _ = quantize.Quantize(jianpu.Parse(text).Notes, s.TimeSignature.Beats(), score.MaxMeasures)
	return s
}

func TestPitch(t *testing.T) {
	r := layout.Layout(score.New(), layout.DefaultConfig())

	t.Run("the middle line is b/4", func(t *testing.T) {
		p, ok := hittest.Pitch(r, r.MiddleLineY(0))
		require.True(t, ok)
		require.Equal(t, score.NewPitch(score.B, 4), p)
	})

	t.Run("lines and spaces resolve to letters", func(t *testing.T) {
		cases := []struct {
			y    float64
			want score.Pitch
		}{
			{60, score.NewPitch(score.F, 5)},
			{65, score.NewPitch(score.E, 5)},
			{70, score.NewPitch(score.D, 5)},
			{75, score.NewPitch(score.C, 5)},
			{85, score.NewPitch(score.A, 4)},
			{90, score.NewPitch(score.G, 4)},
			{100, score.NewPitch(score.E, 4)},
			{110, score.NewPitch(score.C, 4)},
			{115, score.NewPitch(score.B, 3)},
			{45, score.NewPitch(score.B, 5)},
		}
		for _, c := range cases {
			got, ok := hittest.Pitch(r, c.y)
			require.True(t, ok, "y=%v", c.y)
			require.Equal(t, c.want, got, "y=%v", c.y)
		}
	})

	t.Run("rounds to the nearest line or space", func(t *testing.T) {
		got, ok := hittest.Pitch(r, 81.4)
		require.True(t, ok)
		require.Equal(t, score.NewPitch(score.B, 4), got)

		got, ok = hittest.Pitch(r, 83)
		require.True(t, ok)
		require.Equal(t, score.NewPitch(score.A, 4), got)
	})

	t.Run("round-trips the drawn pitch position", func(t *testing.T) {
		for pos := score.NewPitch(score.B, 3); pos.Position() <= score.NewPitch(score.B, 5).Position(); pos = pos.Step(1) {
			got, ok := hittest.Pitch(r, r.PitchY(0, pos))
			require.True(t, ok, "%s", pos)
			require.Equal(t, pos, got)
		}
	})

	t.Run("rejects positions beyond the tolerance", func(t *testing.T) {
		for _, y := range []float64{0, 44.9, 115.1, 130, 160, -10} {
			_, ok := hittest.Pitch(r, y)
			require.False(t, ok, "y=%v", y)
		}
	})

	t.Run("rejects octaves outside 3 to 5", func(t *testing.T) {
		cfg := layout.DefaultConfig()
		cfg.Tolerance = 60
		cfg.StaveHeight = 200
		wide := layout.Layout(score.New(), cfg)

		_, ok := hittest.Pitch(wide, 5)
		require.False(t, ok, "octave 7")
		_, ok = hittest.Pitch(wide, 155)
		require.False(t, ok, "octave 2")

		got, ok := hittest.Pitch(wide, 145)
		require.True(t, ok)
		require.Equal(t, score.NewPitch(score.C, 3), got)
	})

	t.Run("uses the band of lower lines", func(t *testing.T) {
		lr := layout.Layout(scoreFrom("1-- 1-- 1-- 1-- 1--"), layout.DefaultConfig())
		require.Equal(t, 2, lr.Lines)

		got, ok := hittest.Pitch(lr, lr.MiddleLineY(1))
		require.True(t, ok)
		require.Equal(t, score.NewPitch(score.B, 4), got)

		_, ok = hittest.Pitch(lr, lr.MiddleLineY(2))
		require.False(t, ok, "there is no third line")
	})
}

func TestNote(t *testing.T) {
	s := scoreFrom("1 2 3 4 5- 6 7- 1--")
	r := layout.Layout(s, layout.DefaultConfig())

	t.Run("resolves every laid out note", func(t *testing.T) {
		for mi, st := range r.Staves {
			for ni, x := range st.NotesX {
				got, ok := hittest.Note(s, r, x, st.Top)
				require.True(t, ok)
				require.Equal(t, score.NoteRef{Measure: mi, Note: ni}, got)
			}
		}
	})

	t.Run("divides the usable width evenly", func(t *testing.T) {
		// Measure 0 spans x 10..310, notes start at 60, 57.5px each.
		got, ok := hittest.Note(s, r, 60, 50)
		require.True(t, ok)
		require.Equal(t, score.NoteRef{Measure: 0, Note: 0}, got)

		got, ok = hittest.Note(s, r, 117.6, 50)
		require.True(t, ok)
		require.Equal(t, score.NoteRef{Measure: 0, Note: 1}, got)
	})

	t.Run("ignores the clef area", func(t *testing.T) {
		_, ok := hittest.Note(s, r, 40, 80)
		require.False(t, ok)
	})

	t.Run("ignores the right margin", func(t *testing.T) {
		_, ok := hittest.Note(s, r, 305, 80)
		require.False(t, ok)
	})

	t.Run("ignores measures past the end", func(t *testing.T) {
		_, ok := hittest.Note(s, r, 100, 180)
		require.False(t, ok)
		_, ok = hittest.Note(s, r, 5, 80)
		require.False(t, ok)
		_, ok = hittest.Note(s, r, 1300, 80)
		require.False(t, ok)
	})

	t.Run("ignores empty scores", func(t *testing.T) {
		empty := score.New()
		_, ok := hittest.Note(empty, layout.Layout(empty, layout.DefaultConfig()), 100, 80)
		require.False(t, ok)
	})
}

func TestMeasure(t *testing.T) {
	s := scoreFrom("1-- 2-- 3-- 4-- 5--")
	r := layout.Layout(s, layout.DefaultConfig())

	got, ok := hittest.Measure(s, r, 620, 10)
	require.True(t, ok)
	require.Equal(t, 2, got)

	got, ok = hittest.Measure(s, r, 20, 150)
	require.True(t, ok)
	require.Equal(t, 4, got)

	_, ok = hittest.Measure(s, r, 320, 150)
	require.False(t, ok)
}

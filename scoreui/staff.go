package scoreui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rapidmidiex/rmxscore/layout"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/styles"
)

// A terminal cell covers cellWidth x cellHeight layout pixels, so each row
// is one staff position: lines fall on even rows and spaces on odd rows.
const (
	cellWidth  = 10.0
	cellHeight = 5.0
)

// Rows drawn below the last staff for low ledger notes.
const belowStaff = 8

var glyphs = map[score.Duration]rune{
	score.Whole:   '◎',
	score.Half:    '○',
	score.Quarter: '●',
}

var restGlyphs = map[score.Duration]rune{
	score.Whole:   '▬',
	score.Half:    '▭',
	score.Quarter: '⌇',
}

type canvas struct {
	cells  [][]rune
	styles [][]*lipgloss.Style
}

// cellToLayout maps a canvas cell to the layout point at its centre column.
func cellToLayout(col, row int) (x, y float64) {
	return float64(col)*cellWidth + cellWidth/2, float64(row) * cellHeight
}

func colOf(x float64) int { return int(math.Floor(x / cellWidth)) }

func rowOf(y float64) int { return int(math.Round(y / cellHeight)) }

func newCanvas(cols, rows int) *canvas {
	c := &canvas{
		cells:  make([][]rune, rows),
		styles: make([][]*lipgloss.Style, rows),
	}
	for i := range c.cells {
		c.cells[i] = []rune(strings.Repeat(" ", cols))
		c.styles[i] = make([]*lipgloss.Style, cols)
	}
	return c
}

func (c *canvas) set(row, col int, r rune, style *lipgloss.Style) {
	if row < 0 || row >= len(c.cells) || col < 0 || col >= len(c.cells[row]) {
		return
	}
	c.cells[row][col] = r
	c.styles[row][col] = style
}

func (c *canvas) text(row, col int, s string, style *lipgloss.Style) {
	for i, r := range []rune(s) {
		c.set(row, col+i, r, style)
	}
}

// String renders the canvas, styling runs of cells that share a style.
func (c *canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		styles := c.styles[i]
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && styles[j] == styles[start] {
				continue
			}
			run := string(row[start:j])
			if styles[start] != nil {
				run = styles[start].Render(run)
			}
			b.WriteString(run)
			start = j
		}
		if i < len(c.cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// drawStaff renders the score as laid out in r. The dragged note, if any, is
// highlighted.
func drawStaff(s score.Score, r layout.Result, drag score.NoteRef, dragging bool) string {
	cfg := r.Config
	cols := colOf(r.Width) + 1
	rows := rowOf(r.LineBottom(r.Lines-1)) + belowStaff
	c := newCanvas(cols, rows)

	for _, st := range r.Staves {
		left, right := colOf(st.X), colOf(st.X+st.Width)
		top, bottom := rowOf(st.Top), rowOf(st.Bottom)

		for i := 0; i < 5; i++ {
			row := rowOf(st.Top + float64(i)*cfg.LineSpacing)
			for col := left; col < right; col++ {
				c.set(row, col, '─', &styles.StaffStyle)
			}
		}
		for row := top; row <= bottom; row++ {
			c.set(row, right, '│', &styles.StaffStyle)
			if st.Column == 0 {
				c.set(row, left, '│', &styles.StaffStyle)
			}
		}
		if st.ShowClef {
			// The treble clef curls around the g/4 line.
			c.set(rowOf(r.PitchY(st.Line, score.NewPitch(score.G, 4))), left+1, 'G', &styles.NoteStyle)
			c.text(top+1, left+3, r.TimeSignature.String()[:1], &styles.NoteStyle)
			c.text(bottom-1, left+3, "4", &styles.NoteStyle)
		}

		if st.Measure >= len(s.Measures) {
			continue
		}
		notes := s.Measures[st.Measure].Notes
		for j, n := range notes {
			col := colOf(st.NotesX[j])
			row := rowOf(r.PitchY(st.Line, n.Pitch))
			style := &styles.NoteStyle
			if dragging && drag == (score.NoteRef{Measure: st.Measure, Note: j}) {
				style = &styles.DragStyle
			}
			if n.Pitch.IsRest() {
				c.set(row, col, restGlyphs[n.Duration], style)
				continue
			}
			for ledger := bottom + 2; ledger <= row; ledger += 2 {
				c.set(ledger, col-1, '─', &styles.StaffStyle)
				c.set(ledger, col+1, '─', &styles.StaffStyle)
			}
			for ledger := top - 2; ledger >= row; ledger -= 2 {
				c.set(ledger, col-1, '─', &styles.StaffStyle)
				c.set(ledger, col+1, '─', &styles.StaffStyle)
			}
			c.set(row, col, glyphs[n.Duration], style)
		}

		// Missing beats are padded with rests at the end of the measure.
		mid := rowOf(r.MiddleLineY(st.Line))
		for k := 0; k < st.PadBeats; k++ {
			c.set(mid, right-2-2*k, '·', &styles.PadStyle)
		}
	}
	return c.String()
}

// Package quantize packs a flat note sequence into measures.
package quantize

import "github.com/rapidmidiex/rmxscore/score"

type packer struct {
	beats       int
	maxMeasures int

	measures  []score.Measure
	cur       []score.Note
	curWeight int
	truncated bool
}

// Quantize packs notes greedily, left to right, into measures of
// beatsPerMeasure quarter notes. A note that does not fit the open measure
// is split: the part that fits closes the measure and the rest opens the
// next one. When the free or leftover weight has no single duration (3 in
// 3/4) it is written as several tied fragments, and a note longer than a
// measure continues across as many measures as it needs, so the total
// weight is preserved.
//
// At most maxMeasures measures are produced. The second result reports
// whether anything was dropped because of that cap.
func Quantize(notes []score.Note, beatsPerMeasure, maxMeasures int) ([]score.Measure, bool) {
	if beatsPerMeasure <= 0 {
		return []score.Measure{}, len(notes) > 0
	}
	p := &packer{
		beats:       beatsPerMeasure,
		maxMeasures: maxMeasures,
		measures:    make([]score.Measure, 0, len(notes)/beatsPerMeasure+1),
	}
	for _, n := range notes {
		p.add(n)
	}
	if len(p.cur) > 0 {
		p.close()
	}
	return p.measures, p.truncated
}

// Score re-packs every note of s under its own time signature.
func Score(s score.Score) (score.Score, bool) {
	out := s
	var truncated bool
	out.Measures, truncated = Quantize(s.Flatten(), s.TimeSignature.Beats(), score.MaxMeasures)
	return out, truncated
}

func (p *packer) add(n score.Note) {
	w := n.Weight()
	if p.curWeight+w <= p.beats {
		p.push(n, w)
		return
	}

	remaining := p.beats - p.curWeight
	p.fill(n, remaining)
	p.close()

	leftover := w - remaining
	for leftover > p.beats {
		p.fill(n, p.beats)
		p.close()
		leftover -= p.beats
	}
	p.fill(n, leftover)
}

// fill appends copies of n whose durations add up to weight.
func (p *packer) fill(n score.Note, weight int) {
	for _, d := range score.Fill(weight) {
		p.push(n.WithDuration(d), d.Weight())
	}
}

func (p *packer) push(n score.Note, w int) {
	p.cur = append(p.cur, n)
	p.curWeight += w
}

func (p *packer) close() {
	if len(p.measures) < p.maxMeasures {
		p.measures = append(p.measures, score.NewMeasure(p.cur...))
	} else if len(p.cur) > 0 {
		p.truncated = true
	}
	p.cur = p.cur[:0]
	p.curWeight = 0
}

// Package jianpu reads numbered musical notation.
//
// Each whitespace separated token is a scale degree 1-7 (c..b) or 0 for a
// rest. A "." raises the note to octave 5, a "_" lowers it to octave 3 and a
// run of dashes lengthens it: "-" is a half note, "--" a whole note.
//
//	1 2 3. 5- 0 1_--
package jianpu

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rapidmidiex/rmxscore/score"
)

const (
	octaveUp   = '.'
	octaveDown = '_'
	dash       = '-'

	defaultOctave = 4
)

type (
	// Warning describes a token that was skipped.
	Warning struct {
		// Position of the token among the whitespace separated tokens.
		Index int
		Token string
	}

	Result struct {
		Notes    []score.Note
		Warnings []Warning
		// The text was cut to score.MaxTextLength characters.
		TextTruncated bool
		// Tokens after the first score.MaxTokens were ignored.
		TokensTruncated bool
	}
)

func (w Warning) String() string {
	return fmt.Sprintf("invalid jianpu note %q at token %d", w.Token, w.Index)
}

// Parse converts jianpu text to notes in token order. It never fails:
// invalid tokens are reported in Result.Warnings and contribute no note.
func Parse(text string) Result {
	var res Result
	text, res.TextTruncated = Truncate(text)

	tokens := strings.Fields(text)
	if len(tokens) > score.MaxTokens {
		tokens = tokens[:score.MaxTokens]
		res.TokensTruncated = true
	}

	res.Notes = make([]score.Note, 0, len(tokens))
	for i, tok := range tokens {
		n, ok := parseToken(tok)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Index: i, Token: tok})
			continue
		}
		res.Notes = append(res.Notes, n)
	}
	return res
}

// Truncate cuts text to score.MaxTextLength characters.
func Truncate(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= score.MaxTextLength {
		return text, false
	}
	n := 0
	for i := range text {
		if n == score.MaxTextLength {
			return text[:i], true
		}
		n++
	}
	return text, false
}

func parseToken(tok string) (score.Note, bool) {
	octave := defaultOctave
	if strings.ContainsRune(tok, octaveUp) {
		octave = 5
	}
	// A low marker wins over a high one.
	if strings.ContainsRune(tok, octaveDown) {
		octave = 3
	}

	duration := durationForDashes(firstDashRun(tok))

	degree := strings.Map(func(r rune) rune {
		switch r {
		case octaveUp, octaveDown, dash:
			return -1
		}
		return r
	}, tok)

	if len(degree) != 1 || degree[0] < '0' || degree[0] > '7' {
		return score.Note{}, false
	}
	if degree[0] == '0' {
		return score.NewNote(score.Rest, duration), true
	}
	letter := score.C + score.Letter(degree[0]-'1')
	return score.NewNote(score.NewPitch(letter, octave), duration), true
}

// firstDashRun returns the length of the first run of dashes in tok.
func firstDashRun(tok string) int {
	start := strings.IndexRune(tok, dash)
	if start < 0 {
		return 0
	}
	n := 0
	for _, r := range tok[start:] {
		if r != dash {
			break
		}
		n++
	}
	return n
}

func durationForDashes(n int) score.Duration {
	switch n {
	case 1:
		return score.Half
	case 2:
		return score.Whole
	default:
		return score.Quarter
	}
}

// Format writes notes back as jianpu text. Octaves above 5 or below 3 have
// no marker and are written as octave 5 or 3.
func Format(notes []score.Note) string {
	toks := make([]string, 0, len(notes))
	for _, n := range notes {
		var b strings.Builder
		if n.Pitch.IsRest() {
			b.WriteByte('0')
		} else {
			b.WriteByte(byte('1' + (n.Pitch.Letter - score.C)))
			switch {
			case n.Pitch.Octave > defaultOctave:
				b.WriteRune(octaveUp)
			case n.Pitch.Octave < defaultOctave:
				b.WriteRune(octaveDown)
			}
		}
		switch n.Duration {
		case score.Half:
			b.WriteString("-")
		case score.Whole:
			b.WriteString("--")
		}
		toks = append(toks, b.String())
	}
	return strings.Join(toks, " ")
}

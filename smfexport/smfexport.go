// Package smfexport writes scores as Standard MIDI Files.
package smfexport

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/rapidmidiex/rmxscore/score"
)

// Resolution is the number of ticks per quarter note.
const Resolution = smf.MetricTicks(960)

const (
	channel  = 0
	velocity = 100
)

// Encode builds a single track file: title, meter and tempo, then one
// note on/off pair per note. Rests only advance time.
func Encode(doc score.Document) (*smf.SMF, error) {
	doc = doc.Normalize()
	s := smf.New()
	s.TimeFormat = Resolution

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(doc.Title))
	tr.Add(0, smf.MetaMeter(uint8(doc.TimeSignature.Beats()), 4))
	tr.Add(0, smf.MetaTempo(float64(doc.Tempo)))

	var delta uint32
	for i, n := range doc.Notes {
		if !n.Duration.Valid() {
			return nil, fmt.Errorf("encode note %d: invalid duration %d", i, int(n.Duration))
		}
		length := Resolution.Ticks4th() * uint32(n.Weight())
		if n.Pitch.IsRest() {
			delta += length
			continue
		}
		key := n.Pitch.MIDI()
		if key < 0 || key > 127 {
			return nil, fmt.Errorf("encode note %d: %s is outside the MIDI range", i, n.Pitch)
		}
		tr.Add(delta, midi.NoteOn(channel, uint8(key), velocity))
		tr.Add(length, midi.NoteOff(channel, uint8(key)))
		delta = 0
	}
	tr.Close(delta)

	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return s, nil
}

func Write(w io.Writer, doc score.Document) error {
	s, err := Encode(doc)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}

func Bytes(doc score.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteFile(path string, doc score.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package smfexport_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/smfexport"
)

type played struct {
	key   uint8
	start uint32
	end   uint32
}

// notesOf collects note on/off pairs with absolute tick positions.
func notesOf(t *testing.T, data []byte) []played {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, s.Tracks, 1)

	var (
		out  []played
		abs  uint32
		open = map[uint8]int{}
	)
	for _, ev := range s.Tracks[0] {
		abs += ev.Delta
		msg := midi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			open[key] = len(out)
			out = append(out, played{key: key, start: abs})
		case msg.GetNoteEnd(&ch, &key):
			out[open[key]].end = abs
		}
	}
	return out
}

func TestEncode(t *testing.T) {
	q := smfexport.Resolution.Ticks4th()
	doc := score.Document{
		Title:         "Scale",
		TimeSignature: score.ThreeFour,
		Tempo:         90,
		Notes: []score.Note{
			score.NewNote(score.NewPitch(score.C, 4), score.Quarter),
			score.NewNote(score.Rest, score.Half),
			score.NewNote(score.NewPitch(score.A, 4), score.Whole),
			score.NewNote(score.NewPitch(score.C, 5), score.Half),
		},
	}

	data, err := smfexport.Bytes(doc)
	require.NoError(t, err)

	require.Equal(t, []played{
		{key: 60, start: 0, end: q},
		{key: 69, start: 3 * q, end: 7 * q},
		{key: 72, start: 7 * q, end: 9 * q},
	}, notesOf(t, data))

	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	var bpm float64
	var num, denom uint8
	var sawTempo, sawMeter bool
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			sawTempo = true
		}
		if ev.Message.GetMetaMeter(&num, &denom) {
			sawMeter = true
		}
	}
	require.True(t, sawTempo)
	require.InDelta(t, 90, bpm, 0.01)
	require.True(t, sawMeter)
	require.Equal(t, uint8(3), num)
	require.Equal(t, uint8(4), denom)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := smfexport.Bytes(score.Document{})
	require.NoError(t, err)
	require.Empty(t, notesOf(t, data))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mid")
	doc := score.New().Document()
	doc.Notes = []score.Note{score.NewNote(score.NewPitch(score.G, 4), score.Half)}

	require.NoError(t, smfexport.WriteFile(path, doc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("MThd"), data[:4])
	require.Len(t, notesOf(t, data), 1)
}

func TestEncodeRejectsUnplayablePitches(t *testing.T) {
	doc := score.New().Document()
	doc.Notes = []score.Note{score.NewNote(score.NewPitch(score.C, 11), score.Quarter)}
	_, err := smfexport.Bytes(doc)
	require.Error(t, err)
}

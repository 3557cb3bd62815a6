package midi_test

import (
	"os"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxscore/midi"
	"github.com/rapidmidiex/rmxscore/score"
)

func TestMidiStreamer(t *testing.T) {
	streamer := midi.NewMIDIStreamer(10 * time.Millisecond)
	require.Equal(t, 441, streamer.Len())

	t.Run("streams until drained", func(t *testing.T) {
		samples := make([][2]float64, 400)
		n, ok := streamer.Stream(samples)
		require.True(t, ok)
		require.Equal(t, 400, n)

		n, ok = streamer.Stream(samples)
		require.True(t, ok)
		require.Equal(t, 41, n)
		require.Equal(t, streamer.Len(), streamer.Position())

		_, ok = streamer.Stream(samples)
		require.False(t, ok)
	})

	t.Run("seeks within the clip", func(t *testing.T) {
		require.NoError(t, streamer.Seek(0))
		require.Equal(t, 0, streamer.Position())
		require.Error(t, streamer.Seek(442))
		require.Error(t, streamer.Seek(-1))
	})

	t.Run("takes the clip length", func(t *testing.T) {
		require.NoError(t, streamer.Seek(0))
		got := beep.Take(100, streamer)
		samples := make([][2]float64, 512)
		n, _ := got.Stream(samples)
		require.Equal(t, 100, n)
	})
}

func TestDuration(t *testing.T) {
	notes := []score.Note{
		score.NewNote(score.NewPitch(score.C, 4), score.Whole),
		score.NewNote(score.Rest, score.Half),
	}
	require.Equal(t, 3*time.Second, midi.Duration(notes, 120))
	require.Equal(t, 6*time.Second, midi.Duration(notes, 60))
	require.Equal(t, time.Duration(0), midi.Duration(nil, 120))
}

func TestNewPlayer(t *testing.T) {
	_, err := midi.NewPlayer(midi.NewPlayerOpts{})
	require.ErrorIs(t, err, midi.ErrNoSoundFont)

	_, err = midi.NewPlayer(midi.NewPlayerOpts{SoundFontPath: "missing.sf2"})
	require.ErrorIs(t, err, os.ErrNotExist)
}

// Rendering needs a real SoundFont, ex:
//
//	RMX_SOUND_FONT=GeneralUser_GS_MuseScore_v1.442.sf2 go test ./midi
func TestRender(t *testing.T) {
	path := os.Getenv("RMX_SOUND_FONT")
	if path == "" {
		t.Skip("RMX_SOUND_FONT not set")
	}
	p, err := midi.NewPlayer(midi.NewPlayerOpts{SoundFontPath: path})
	require.NoError(t, err)

	doc := score.New().Document()
	doc.Notes = []score.Note{
		score.NewNote(score.NewPitch(score.B, 4), score.Quarter),
		score.NewNote(score.NewPitch(score.G, 4), score.Half),
	}

	t.Run("renders a score to stereo sound", func(t *testing.T) {
		streamer, err := p.Render(doc)
		require.NoError(t, err)
		require.GreaterOrEqual(t, streamer.Len(), int(44100*1.5))

		samples := make([][2]float64, streamer.Len())
		n, ok := streamer.Stream(samples)
		require.True(t, ok)
		var loud bool
		for _, s := range samples[:n] {
			if s[0] != 0 || s[1] != 0 {
				loud = true
				break
			}
		}
		require.True(t, loud)
	})

	t.Run("previews a note", func(t *testing.T) {
		streamer, err := p.Preview(doc.Notes[0], 120)
		require.NoError(t, err)
		require.Equal(t, int(44100*1.0), streamer.Len())
	})
}

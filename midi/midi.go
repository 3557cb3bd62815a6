// Package midi renders scores to audio with a SoundFont synthesizer and
// plays them on the default output device.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/smfexport"
)

const DefaultSampleRate = 44100

// Release time appended after the last note so it can ring out.
const tail = 500 * time.Millisecond

var ErrNoSoundFont = errors.New("no sound font configured")

type (
	Player struct {
		soundFont  *meltysynth.SoundFont
		sampleRate int

		speakerOnce sync.Once
		speakerErr  error
	}

	NewPlayerOpts struct {
		// Path of the .sf2 file used by the synthesizer.
		SoundFontPath string
		// Defaults to DefaultSampleRate.
		SampleRate int
	}

	MidiStreamer struct {
		pos   int
		left  []float32
		right []float32
	}
)

func NewPlayer(o NewPlayerOpts) (*Player, error) {
	if o.SoundFontPath == "" {
		return nil, ErrNoSoundFont
	}
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}

	// Load the SoundFont.
	sf2, err := os.Open(o.SoundFontPath)
	if err != nil {
		return nil, fmt.Errorf("open sound font: %w", err)
	}
	defer sf2.Close()
	soundFont, err := meltysynth.NewSoundFont(sf2)
	if err != nil {
		return nil, fmt.Errorf("read sound font %s: %w", o.SoundFontPath, err)
	}

	return &Player{soundFont: soundFont, sampleRate: o.SampleRate}, nil
}

func (p *Player) synthesizer() (*meltysynth.Synthesizer, error) {
	settings := meltysynth.NewSynthesizerSettings(int32(p.sampleRate))
	return meltysynth.NewSynthesizer(p.soundFont, settings)
}

// Render synthesizes the whole document.
func (p *Player) Render(doc score.Document) (*MidiStreamer, error) {
	data, err := smfexport.Bytes(doc)
	if err != nil {
		return nil, err
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	synth, err := p.synthesizer()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(mf, false)

	streamer := newStreamer(p.sampleRate, mf.GetLength()+tail)
	seq.Render(streamer.left, streamer.right)
	return streamer, nil
}

// Preview synthesizes a single note, for feedback while editing.
// Rests render silence.
func (p *Player) Preview(n score.Note, tempo int) (*MidiStreamer, error) {
	synth, err := p.synthesizer()
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	length := Duration([]score.Note{n}, tempo)
	streamer := newStreamer(p.sampleRate, length+tail)
	if n.Pitch.IsRest() {
		return streamer, nil
	}

	key := int32(n.Pitch.MIDI())
	on := int(float64(p.sampleRate) * length.Seconds())
	synth.NoteOn(0, key, 100)
	synth.Render(streamer.left[:on], streamer.right[:on])
	synth.NoteOff(0, key)
	synth.Render(streamer.left[on:], streamer.right[on:])
	return streamer, nil
}

// Play sends the streamer to the speaker, replacing anything playing. The
// returned channel is closed when playback finishes.
func (p *Player) Play(streamer *MidiStreamer) (<-chan struct{}, error) {
	p.speakerOnce.Do(func() {
		sr := beep.SampleRate(p.sampleRate)
		p.speakerErr = speaker.Init(sr, sr.N(20*time.Millisecond))
	})
	if p.speakerErr != nil {
		return nil, fmt.Errorf("speaker: %w", p.speakerErr)
	}

	done := make(chan struct{})
	speaker.Clear()
	speaker.Play(beep.Seq(
		streamer,
		beep.Callback(func() { close(done) }),
	))
	return done, nil
}

// Stop silences the speaker.
func (p *Player) Stop() {
	speaker.Clear()
}

// Duration is how long notes take at tempo beats per minute.
func Duration(notes []score.Note, tempo int) time.Duration {
	tempo = score.ClampTempo(tempo)
	beat := time.Minute / time.Duration(tempo)
	return time.Duration(score.Weight(notes)) * beat
}

func NewMIDIStreamer(clipLength time.Duration) *MidiStreamer {
	return newStreamer(DefaultSampleRate, clipLength)
}

func newStreamer(sampleRate int, clipLength time.Duration) *MidiStreamer {
	bufLen := int(float64(sampleRate) * clipLength.Seconds())
	return &MidiStreamer{
		left:  make([]float32, bufLen),
		right: make([]float32, bufLen),
	}
}

// Stream implements beep.Streamer. It reports false once drained.
func (ms *MidiStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	remaining := len(ms.left) - ms.pos
	if remaining <= 0 {
		return 0, false
	}
	if len(samples) > remaining {
		samples = samples[:remaining]
	}
	left := make([]float32, len(samples))
	right := make([]float32, len(samples))

	n, _ = ms.Read(left, right)

	for i := 0; i < n; i++ {
		samples[i][0] = float64(left[i])
		samples[i][1] = float64(right[i])
	}
	return n, true
}

// Len returns the total number of samples of the Streamer.
func (ms MidiStreamer) Len() int {
	// left and right have the same length
	return len(ms.left)
}

// Position returns the current position of the Streamer.
func (ms MidiStreamer) Position() int {
	return ms.pos
}

// Seek sets the position of the Streamer to the provided value.
func (ms *MidiStreamer) Seek(p int) error {
	if p < 0 || p > len(ms.left) {
		return fmt.Errorf("p is out of range: %d", p)
	}
	ms.pos = p
	return nil
}

func (ms MidiStreamer) Err() error {
	return nil
}

// Read copies from the current position into outLeft and outRight.
func (ms *MidiStreamer) Read(outLeft, outRight []float32) (int, error) {
	nRead := 0
	for i := range outLeft {
		readPos := i + ms.pos
		if readPos >= len(ms.left) {
			ms.pos += nRead
			return nRead, fmt.Errorf("index is out of range: %d", readPos)
		}
		outLeft[i] = ms.left[readPos]
		outRight[i] = ms.right[readPos]
		nRead++
	}
	ms.pos += nRead
	return nRead, nil
}

package score

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rapidmidiex/rmxscore/util"
)

type (
	// Letter is a natural note name. The zero Letter marks a rest.
	Letter int

	// Pitch is a natural note letter in a given octave, ex: "c/4".
	// The zero Pitch is Rest.
	Pitch struct {
		Letter Letter
		// Octave in scientific pitch notation, C4 is middle C.
		Octave int
	}
)

const (
	NoLetter Letter = iota
	C
	D
	E
	F
	G
	A
	B
)

// Lowest and highest octave reachable by pointing on the staff.
const (
	MinStaffOctave = 3
	MaxStaffOctave = 5
)

// Rest is the pitch of a silent note.
var Rest = Pitch{}

var letterNames = []struct {
	name string
	// semitones above C
	offset int
}{
	NoLetter: {name: "r"},
	C:        {name: "c", offset: 0},
	D:        {name: "d", offset: 2},
	E:        {name: "e", offset: 4},
	F:        {name: "f", offset: 5},
	G:        {name: "g", offset: 7},
	A:        {name: "a", offset: 9},
	B:        {name: "b", offset: 11},
}

// lettersPerOctave is the length of the c..b cycle.
const lettersPerOctave = 7

func (l Letter) Valid() bool { return l >= C && l <= B }

func (l Letter) String() string {
	if l < NoLetter || l > B {
		return fmt.Sprintf("Letter(%d)", int(l))
	}
	return letterNames[l].name
}

// ParseLetter accepts a single note name, case insensitive.
func ParseLetter(s string) (Letter, error) {
	for l := C; l <= B; l++ {
		if strings.EqualFold(s, letterNames[l].name) {
			return l, nil
		}
	}
	return NoLetter, fmt.Errorf("unknown note letter: %q", s)
}

func NewPitch(l Letter, octave int) Pitch {
	return Pitch{Letter: l, Octave: octave}
}

func (p Pitch) IsRest() bool { return p.Letter == NoLetter }

// String returns the "<letter>/<octave>" form, or "r" for a rest.
func (p Pitch) String() string {
	if p.IsRest() {
		return "r"
	}
	return fmt.Sprintf("%s/%d", p.Letter, p.Octave)
}

// Step moves the pitch by n staff positions (lines and spaces), crossing into
// the next or previous octave whenever the c..b cycle wraps.
// Stepping a rest returns a rest.
func (p Pitch) Step(n int) Pitch {
	if p.IsRest() {
		return Rest
	}
	idx := int(p.Letter-C) + n
	octave := p.Octave + util.FloorDiv(idx, lettersPerOctave)
	idx -= util.FloorDiv(idx, lettersPerOctave) * lettersPerOctave
	return Pitch{Letter: C + Letter(idx), Octave: octave}
}

// Position counts staff positions from c/0. Rests have no position.
func (p Pitch) Position() int {
	return p.Octave*lettersPerOctave + int(p.Letter-C)
}

// MIDI returns the MIDI note number, based on C4=60. Rests return -1.
func (p Pitch) MIDI() int {
	if p.IsRest() {
		return -1
	}
	// MIDI number for C0
	midiC0 := 12
	return midiC0 + 12*p.Octave + letterNames[p.Letter].offset
}

// InStaffRange reports whether the pitch can be entered by pointing at the staff.
func (p Pitch) InStaffRange() bool {
	return !p.IsRest() && p.Octave >= MinStaffOctave && p.Octave <= MaxStaffOctave
}

// ParsePitch reads the wire form produced by Pitch.String.
func ParsePitch(s string) (Pitch, error) {
	if s == "r" {
		return Rest, nil
	}
	name, oct, ok := strings.Cut(s, "/")
	if !ok {
		return Rest, fmt.Errorf("pitch %q: missing octave", s)
	}
	l, err := ParseLetter(name)
	if err != nil {
		return Rest, fmt.Errorf("pitch %q: %w", s, err)
	}
	octave, err := strconv.Atoi(oct)
	if err != nil {
		return Rest, fmt.Errorf("pitch %q: octave: %w", s, err)
	}
	return Pitch{Letter: l, Octave: octave}, nil
}

func (p Pitch) MarshalJSON() ([]byte, error) {
	if p.Letter != NoLetter && !p.Letter.Valid() {
		return nil, fmt.Errorf("unknown pitch letter: %d", int(p.Letter))
	}
	return json.Marshal(p.String())
}

func (p *Pitch) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePitch(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

package score

import (
	"errors"

	"github.com/rapidmidiex/rmxscore/util"
)

// User visible limits.
const (
	MaxTextLength = 10000
	MaxTokens     = 1000
	MaxMeasures   = 100

	MinTempo     = 20
	MaxTempo     = 300
	DefaultTempo = 120
)

// Limit notices. They never indicate a corrupted score: the operation that
// returns one has either truncated its input or left the score unchanged.
var (
	ErrTextLimit    = errors.New("input is limited to 10000 characters")
	ErrTokenLimit   = errors.New("input is limited to 1000 notes")
	ErrMeasureLimit = errors.New("maximum number of measures reached")
	ErrTempoClamped = errors.New("tempo must be between 20 and 300 BPM")
)

// ClampTempo limits bpm to [MinTempo, MaxTempo].
func ClampTempo(bpm int) int {
	return util.Clamp(bpm, MinTempo, MaxTempo)
}

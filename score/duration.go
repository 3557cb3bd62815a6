package score

import (
	"encoding/json"
	"fmt"
)

// Duration is the note length class. Only the three classes below exist;
// every value maps to a fixed quarter-note weight.
type Duration int

const (
	Quarter Duration = iota
	Half
	Whole
)

var durations = [...]struct {
	code   string
	weight int
}{
	Quarter: {code: "q", weight: 1},
	Half:    {code: "h", weight: 2},
	Whole:   {code: "w", weight: 4},
}

// Durations lists the classes from longest to shortest.
var Durations = []Duration{Whole, Half, Quarter}

func (d Duration) Valid() bool { return d >= Quarter && d <= Whole }

// Weight is the length in quarter notes. Invalid values weigh nothing.
func (d Duration) Weight() int {
	if !d.Valid() {
		return 0
	}
	return durations[d].weight
}

// String returns the wire code: "w", "h" or "q".
func (d Duration) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Duration(%d)", int(d))
	}
	return durations[d].code
}

// Name is the human readable class name.
func (d Duration) Name() string {
	switch d {
	case Whole:
		return "whole"
	case Half:
		return "half"
	case Quarter:
		return "quarter"
	}
	return d.String()
}

// Next cycles whole -> half -> quarter -> whole.
func (d Duration) Next() Duration {
	switch d {
	case Whole:
		return Half
	case Half:
		return Quarter
	default:
		return Whole
	}
}

func ParseDuration(s string) (Duration, error) {
	for d := Quarter; d <= Whole; d++ {
		if durations[d].code == s {
			return d, nil
		}
	}
	return Quarter, fmt.Errorf("unknown duration: %q", s)
}

// ForWeight returns the single class whose weight is w.
func ForWeight(w int) (Duration, bool) {
	for _, d := range Durations {
		if d.Weight() == w {
			return d, true
		}
	}
	return Quarter, false
}

// Fill splits a weight into the fewest classes, longest first.
// A weight of 3 becomes half + quarter. Non-positive weights yield nothing.
func Fill(w int) []Duration {
	var res []Duration
	for _, d := range Durations {
		for w >= d.Weight() {
			res = append(res, d)
			w -= d.Weight()
		}
	}
	return res
}

func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown Duration value: %d", int(d))
	}
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

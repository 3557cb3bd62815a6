// Package rtt keeps stats on request roundtrip times.
package rtt

import (
	"math"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rapidmidiex/rmxscore/util"
)

const DefaultWindow = 20

type (
	Stats struct {
		Latest time.Duration
		Avg    time.Duration
		Min    time.Duration
		Max    time.Duration
		Count  int
	}

	// CalcMsg delivers the stats of a Recorder to the UI.
	CalcMsg Stats

	// Recorder holds the most recent roundtrip times. It is safe for
	// concurrent use.
	Recorder struct {
		mu      sync.Mutex
		window  int
		samples []time.Duration
		latest  time.Duration
	}
)

// NewRecorder keeps the last window samples. Non-positive windows use
// DefaultWindow.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recorder{window: window}
}

func (r *Recorder) Observe(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = d
	r.samples = append(r.samples, d)
	if over := len(r.samples) - r.window; over > 0 {
		r.samples = append(r.samples[:0], r.samples[over:]...)
	}
}

func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Calc(r.latest, r.samples)
}

// Calc summarises prev. Avg is rounded to the nearest millisecond.
func Calc(latest time.Duration, prev []time.Duration) Stats {
	roundedAvg := math.Round(float64(Avg(prev)/time.Millisecond)) * float64(time.Millisecond)
	return Stats{
		Latest: latest,
		Avg:    time.Duration(roundedAvg),
		Min:    Min(prev),
		Max:    Max(prev),
		Count:  len(prev),
	}
}

// Poll reports the stats of r after every interval.
func Poll(r *Recorder, every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg {
		return CalcMsg(r.Stats())
	})
}

func Min(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	min := times[0]
	for _, t := range times[1:] {
		min = util.Min(min, t)
	}
	return min
}

func Max(times []time.Duration) time.Duration {
	var max time.Duration
	for _, t := range times {
		max = util.Max(max, t)
	}
	return max
}

func Avg(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	return util.Sum(times) / time.Duration(len(times))
}

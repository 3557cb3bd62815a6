package rmxerr

import (
	"errors"

	"github.com/rapidmidiex/rmxscore/score"
)

type (
	ErrMsg struct {
		Err error
	}
)

func (m ErrMsg) Error() string {
	return m.Err.Error()
}

// IsNotice reports whether err only tells the user a limit was applied.
// Notices are shown in the status bar rather than as errors.
func IsNotice(err error) bool {
	return errors.Is(err, score.ErrTextLimit) ||
		errors.Is(err, score.ErrTokenLimit) ||
		errors.Is(err, score.ErrMeasureLimit) ||
		errors.Is(err, score.ErrTempoClamped)
}

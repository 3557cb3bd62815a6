package rmxerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rapidmidiex/rmxscore/rmxerr"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/stretchr/testify/require"
)

func TestIsNotice(t *testing.T) {
	require.True(t, rmxerr.IsNotice(score.ErrMeasureLimit))
	require.True(t, rmxerr.IsNotice(fmt.Errorf("load: %w", score.ErrTempoClamped)))
	require.True(t, rmxerr.IsNotice(errors.Join(score.ErrTextLimit, score.ErrTokenLimit)))
	require.False(t, rmxerr.IsNotice(errors.New("connection refused")))
	require.False(t, rmxerr.IsNotice(nil))

	msg := rmxerr.ErrMsg{Err: errors.New("boom")}
	require.Equal(t, "boom", msg.Error())
}

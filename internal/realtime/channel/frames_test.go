package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labpulse/labpulse/internal/common/cnst"
)

func TestParseFrame(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"action":"subscribe","id":"d1"}`))
	require.NoError(t, err)
	assert.Equal(t, cnst.ActionSubscribe, frame.Action)
	assert.Equal(t, "d1", frame.ID)
}

func TestParseFrameCommand(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"action":"command","id":"d1","command":"calibrate","params":{"axis":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, cnst.ActionCommand, frame.Action)
	assert.Equal(t, "calibrate", frame.Command)
	assert.Equal(t, "x", frame.Params["axis"])
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	_, err := ParseFrame([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestParseFrameRejectsMissingAction(t *testing.T) {
	_, err := ParseFrame([]byte(`{"id":"d1"}`))
	assert.ErrorIs(t, err, ErrMissingAction)
}

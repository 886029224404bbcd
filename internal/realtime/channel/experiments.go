package channel

import (
	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
)

// newExperimentsChannel serves experiment lifecycle, progress, and collected
// data rooms. Subscribers get the experiment's current state on join.
func newExperimentsChannel(deps *Deps) *Channel {
	c := newChannel(cnst.ChannelExperiments, deps)

	c.subscriptionHandlers(roomSpec{
		kind:            platform.KindExperiment,
		room:            rooms.ExperimentRoom,
		canJoin:         deps.Checker.CanAccessExperiment,
		snapshot:        true,
		directoryBacked: true,
	})
	return c
}

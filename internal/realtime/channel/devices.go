package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
)

// newDevicesChannel serves device telemetry and status rooms. Beyond the
// common subscribe pair it accepts command dispatch (gated on the control
// grant) and on-demand state requests.
func newDevicesChannel(deps *Deps) *Channel {
	c := newChannel(cnst.ChannelDevices, deps)

	c.subscriptionHandlers(roomSpec{
		kind:            platform.KindDevice,
		room:            rooms.DeviceRoom,
		canJoin:         deps.Checker.CanAccessDevice,
		snapshot:        true,
		directoryBacked: true,
	})
	c.handle(cnst.ActionCommand, c.deviceCommand)
	c.handle(cnst.ActionRequestState, c.deviceState)
	return c
}

// deviceCommand broadcasts a command to the device's room. Viewing a device
// is not enough; the caller needs the control grant on it.
func (c *Channel) deviceCommand(ctx context.Context, conn Conn, frame *Frame) {
	if frame.ID == "" || frame.Command == "" {
		c.reject(conn, errorx.NewValidation("id and command are required"))
		return
	}

	identity := conn.Identity()
	if !c.deps.Checker.CanControlDevice(ctx, identity, frame.ID) {
		c.logger.Debug("device command denied",
			zap.String("cid", conn.CID()),
			zap.String("user_id", identity.ID),
			zap.String("device_id", frame.ID))
		c.reject(conn, errorx.NewAccessDenied(platform.KindDevice))
		return
	}

	err := c.deps.Emitter.EmitDeviceCommand(ctx, frame.ID, &event.DeviceCommand{
		Command:    frame.Command,
		Parameters: frame.Params,
		IssuedBy:   identity.ID,
	})
	if err != nil {
		c.reject(conn, errorx.NewValidation(err.Error()))
	}
}

// deviceState answers the requesting connection with the device's current
// snapshot without joining its room.
func (c *Channel) deviceState(ctx context.Context, conn Conn, frame *Frame) {
	if frame.ID == "" {
		c.reject(conn, errorx.NewValidation("id is required"))
		return
	}
	if !c.deps.Checker.CanAccessDevice(ctx, conn.Identity(), frame.ID) {
		c.reject(conn, errorx.NewAccessDenied(platform.KindDevice))
		return
	}

	snap, err := c.deps.Directory.Snapshot(ctx, platform.KindDevice, frame.ID)
	if err != nil {
		c.reject(conn, errorx.NewNotFound(platform.KindDevice, frame.ID))
		return
	}
	conn.SendEvent(event.NewEnvelope(event.TypeState, frame.ID, snap))
}

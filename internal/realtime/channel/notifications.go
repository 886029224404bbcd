package channel

import (
	"context"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"github.com/labpulse/labpulse/internal/realtime/session"
)

// newNotificationsChannel serves personal, organization, and broadcast
// notification rooms and carries the presence verbs: heartbeat refreshes the
// caller's presence TTL and set_status moves it between online/away/busy.
func newNotificationsChannel(deps *Deps) *Channel {
	c := newChannel(cnst.ChannelNotifications, deps)

	c.handle(cnst.ActionSubscribe, c.notificationSubscribe)
	c.handle(cnst.ActionUnsubscribe, c.notificationUnsubscribe)
	c.handle(cnst.ActionHeartbeat, c.presenceHeartbeat)
	c.handle(cnst.ActionSetStatus, c.presenceSetStatus)
	return c
}

// notificationSpec maps the frame's scope to a room spec. Broadcast needs no
// id, so its spec pins the id to the room name itself.
func (c *Channel) notificationSpec(frame *Frame) (roomSpec, *Frame, bool) {
	switch frame.Scope {
	case "", "user":
		return roomSpec{
			kind: platform.KindUser,
			room: rooms.UserRoom,
			canJoin: func(_ context.Context, identity *platform.Identity, id string) bool {
				return rooms.CanJoinUserRoom(identity, id)
			},
		}, frame, true
	case "org":
		return roomSpec{
			kind:    platform.KindOrganization,
			room:    rooms.OrgRoom,
			canJoin: c.deps.Checker.CanAccessOrganization,
		}, frame, true
	case "broadcast":
		broadcast := *frame
		broadcast.ID = rooms.BroadcastRoom
		return roomSpec{
			kind: "broadcast",
			room: func(string) string { return rooms.BroadcastRoom },
			canJoin: func(_ context.Context, _ *platform.Identity, _ string) bool {
				return true
			},
		}, &broadcast, true
	default:
		return roomSpec{}, nil, false
	}
}

func (c *Channel) notificationSubscribe(ctx context.Context, conn Conn, frame *Frame) {
	spec, resolved, ok := c.notificationSpec(frame)
	if !ok {
		c.reject(conn, errorx.NewValidation("unknown scope "+frame.Scope))
		return
	}
	c.subscribe(ctx, conn, resolved, spec)
}

func (c *Channel) notificationUnsubscribe(ctx context.Context, conn Conn, frame *Frame) {
	spec, resolved, ok := c.notificationSpec(frame)
	if !ok {
		c.reject(conn, errorx.NewValidation("unknown scope "+frame.Scope))
		return
	}
	c.unsubscribe(ctx, conn, resolved, spec)
}

// presenceHeartbeat refreshes the caller's presence TTL without changing the
// stored status.
func (c *Channel) presenceHeartbeat(ctx context.Context, conn Conn, _ *Frame) {
	c.deps.Sessions.Heartbeat(ctx, conn.Identity().ID)
}

// presenceSetStatus moves the caller's presence between the client-settable
// statuses and announces the change to the caller's watchers.
func (c *Channel) presenceSetStatus(ctx context.Context, conn Conn, frame *Frame) {
	status := session.PresenceStatus(frame.Status)
	if !session.ValidStatus(status) {
		c.reject(conn, errorx.NewValidation("unknown status "+frame.Status))
		return
	}

	userID := conn.Identity().ID
	if err := c.deps.Sessions.SetUserPresence(ctx, userID, status, frame.Metadata); err != nil {
		c.reject(conn, errorx.NewValidation(err.Error()))
		return
	}
	_ = c.deps.Emitter.EmitPresence(ctx, userID, &event.PresenceChange{
		Status:   frame.Status,
		Metadata: frame.Metadata,
	})
}

package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/event"
)

// roomSpec binds a channel's subject kind to its room naming and access
// predicate. subscribe and unsubscribe are generic over it.
type roomSpec struct {
	kind     string
	room     func(id string) string
	canJoin  func(ctx context.Context, identity *platform.Identity, id string) bool
	snapshot bool
	// directoryBacked kinds answer subscribe on an unknown id with not-found
	// before the access predicate runs; user/org/broadcast rooms have no
	// directory entry and skip the check
	directoryBacked bool
}

// subscribe is the generic join primitive: validate the id, check access,
// register membership, ack, and optionally push the subject's current state.
// Joining a room the connection is already in re-acks and stops.
func (c *Channel) subscribe(ctx context.Context, conn Conn, frame *Frame, spec roomSpec) {
	if frame.ID == "" {
		c.reject(conn, errorx.NewValidation("id is required"))
		return
	}

	if spec.directoryBacked {
		if _, err := c.deps.Directory.Resource(ctx, spec.kind, frame.ID); err != nil {
			c.reject(conn, errorx.NewNotFound(spec.kind, frame.ID))
			return
		}
	}

	identity := conn.Identity()
	if !spec.canJoin(ctx, identity, frame.ID) {
		c.logger.Debug("subscribe denied",
			zap.String("cid", conn.CID()),
			zap.String("user_id", identity.ID),
			zap.String("kind", spec.kind),
			zap.String("id", frame.ID))
		c.reject(conn, errorx.NewAccessDenied(spec.kind))
		return
	}

	room := spec.room(frame.ID)
	c.deps.Registry.AddToRoom(ctx, conn.CID(), room, identity.ID)
	c.deps.Metrics.SetActiveRooms(c.deps.Registry.ActiveRoomCount())

	conn.SendEvent(event.NewEnvelope(event.TypeSubscribed, frame.ID, &roomAck{
		Channel: c.name.String(),
		Room:    room,
	}))

	if spec.snapshot {
		c.pushSnapshot(ctx, conn, spec.kind, frame.ID)
	}
}

// unsubscribe leaves the room. Leaving a room the connection never joined is
// a no-op and still acks, so retried frames stay harmless.
func (c *Channel) unsubscribe(ctx context.Context, conn Conn, frame *Frame, spec roomSpec) {
	if frame.ID == "" {
		c.reject(conn, errorx.NewValidation("id is required"))
		return
	}

	room := spec.room(frame.ID)
	c.deps.Registry.RemoveFromRoom(ctx, conn.CID(), room, conn.Identity().ID)
	c.deps.Metrics.SetActiveRooms(c.deps.Registry.ActiveRoomCount())

	conn.SendEvent(event.NewEnvelope(event.TypeUnsubscribed, frame.ID, &roomAck{
		Channel: c.name.String(),
		Room:    room,
	}))
}

// pushSnapshot sends the subject's current state to one connection. A missing
// snapshot is not an error; the client simply starts from live events.
func (c *Channel) pushSnapshot(ctx context.Context, conn Conn, kind, id string) {
	snap, err := c.deps.Directory.Snapshot(ctx, kind, id)
	if err != nil || snap == nil {
		return
	}
	conn.SendEvent(event.NewEnvelope(event.TypeState, id, snap))
}

// subscriptionHandlers wires the subscribe/unsubscribe pair for one spec.
func (c *Channel) subscriptionHandlers(spec roomSpec) {
	c.handle(cnst.ActionSubscribe, func(ctx context.Context, conn Conn, frame *Frame) {
		c.subscribe(ctx, conn, frame, spec)
	})
	c.handle(cnst.ActionUnsubscribe, func(ctx context.Context, conn Conn, frame *Frame) {
		c.unsubscribe(ctx, conn, frame, spec)
	})
}

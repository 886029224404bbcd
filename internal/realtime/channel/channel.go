// Package channel routes inbound client frames to per-channel handlers and
// answers with typed acknowledgment or error events. Channels are isolated:
// each owns its handler table and connect hook, and a frame sent on one
// channel can never trigger another channel's handlers.
package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/auth"
	"github.com/labpulse/labpulse/internal/common/cnst"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"github.com/labpulse/labpulse/internal/realtime/session"
	"github.com/labpulse/labpulse/pkg/metrics"
)

// Conn is the slice of a live connection a channel handler may touch. The
// hub's client satisfies it; handlers never see the socket itself.
type Conn interface {
	CID() string
	Identity() *platform.Identity
	SendEvent(env *event.Envelope)
}

// Handler processes one parsed frame on behalf of a connection.
type Handler func(ctx context.Context, conn Conn, frame *Frame)

// Deps collects the collaborators every channel shares.
type Deps struct {
	Logger    *zap.Logger
	Checker   *auth.Checker
	Registry  *rooms.Registry
	Sessions  *session.Manager
	Directory platform.ResourceDirectory
	Emitter   *event.Emitter
	Metrics   *metrics.Metrics
}

// Channel is one isolated event stream with its own action table.
type Channel struct {
	name     cnst.ChannelType
	logger   *zap.Logger
	deps     *Deps
	handlers map[cnst.ActionType]Handler
}

func newChannel(name cnst.ChannelType, deps *Deps) *Channel {
	return &Channel{
		name:     name,
		logger:   deps.Logger.Named("channel." + name.String()),
		deps:     deps,
		handlers: make(map[cnst.ActionType]Handler),
	}
}

func (c *Channel) handle(action cnst.ActionType, h Handler) {
	c.handlers[action] = h
}

// Name returns the channel's wire name.
func (c *Channel) Name() cnst.ChannelType { return c.name }

// OnConnect acknowledges a freshly attached connection.
func (c *Channel) OnConnect(_ context.Context, conn Conn) {
	env := event.NewEnvelope(event.TypeConnected, conn.CID(), &connectedPayload{
		Channel: c.name.String(),
		UserID:  conn.Identity().ID,
	})
	conn.SendEvent(env)
}

// OnDisconnect is the per-channel teardown hook. Room and presence cleanup
// belong to the hub's global disconnect path, so there is nothing to do yet;
// the hook stays so channels with local state have a seam.
func (c *Channel) OnDisconnect(_ context.Context, _ Conn) {}

// HandleFrame parses one inbound frame and dispatches it. Every rejection is
// answered with an error event; frames are never silently dropped.
func (c *Channel) HandleFrame(ctx context.Context, conn Conn, raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		c.logger.Debug("malformed frame",
			zap.String("cid", conn.CID()),
			zap.Error(err))
		c.reject(conn, errorx.NewValidation(err.Error()))
		return
	}
	c.deps.Metrics.FrameReceived(c.name.String(), frame.Action.String())

	h, ok := c.handlers[frame.Action]
	if !ok {
		c.reject(conn, errorx.NewValidation("unknown action "+frame.Action.String()))
		return
	}
	h(ctx, conn, frame)
}

// reject answers a connection with an error event and counts it.
func (c *Channel) reject(conn Conn, cerr *errorx.ClientError) {
	c.deps.Metrics.ClientError(string(cerr.Category))
	env := event.NewEnvelope(event.TypeError, conn.CID(), cerr)
	conn.SendEvent(env)
}

// connectedPayload acknowledges the connect handshake.
type connectedPayload struct {
	Channel string `json:"channel"`
	UserID  string `json:"user_id"`
}

// roomAck acknowledges a subscribe or unsubscribe.
type roomAck struct {
	Channel string `json:"channel"`
	Room    string `json:"room"`
}

// Set holds the four channels keyed by wire name.
type Set struct {
	channels map[cnst.ChannelType]*Channel
}

// NewSet builds the full channel set over one shared dependency bundle.
func NewSet(deps *Deps) *Set {
	return &Set{
		channels: map[cnst.ChannelType]*Channel{
			cnst.ChannelDevices:       newDevicesChannel(deps),
			cnst.ChannelExperiments:   newExperimentsChannel(deps),
			cnst.ChannelTasks:         newTasksChannel(deps),
			cnst.ChannelNotifications: newNotificationsChannel(deps),
		},
	}
}

// Get returns the channel registered under name.
func (s *Set) Get(name string) (*Channel, bool) {
	ch, ok := s.channels[cnst.ChannelType(name)]
	return ch, ok
}

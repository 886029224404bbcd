// Package hub owns the physical websocket connections: the upgrade endpoint,
// one client per socket with read/write pumps, the connect and disconnect
// lifecycle, and room-scoped event delivery across instances.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/channel"
	"github.com/labpulse/labpulse/internal/realtime/event"
	"github.com/labpulse/labpulse/internal/realtime/rooms"
	"github.com/labpulse/labpulse/internal/realtime/session"
	"github.com/labpulse/labpulse/pkg/metrics"
)

// Authenticator gates the upgrade handshake.
type Authenticator interface {
	AuthenticateConnection(ctx context.Context, r *http.Request) (*platform.Identity, error)
}

// Publisher forwards a room-scoped envelope to the other instances.
type Publisher interface {
	Publish(ctx context.Context, room string, env *event.Envelope) error
}

// Hub tracks the clients connected to this instance and routes envelopes to
// rooms. It is the one place that knows both cids and sockets.
type Hub struct {
	logger        *zap.Logger
	cfg           config.WSConfig
	upgrader      websocket.Upgrader
	authenticator Authenticator
	sessions      *session.Manager
	registry      *rooms.Registry
	channels      *channel.Set
	publisher     Publisher
	metrics       *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*Client
}

// New wires the hub. publisher may be nil for a single-instance deployment.
// The channel set is attached afterwards with SetChannels; channels need the
// hub as their event router, so the hub must exist first.
func New(logger *zap.Logger, cfg config.WSConfig, authenticator Authenticator,
	sessions *session.Manager, registry *rooms.Registry,
	publisher Publisher, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:        logger.Named("hub"),
		cfg:           cfg,
		authenticator: authenticator,
		sessions:      sessions,
		registry:      registry,
		publisher:     publisher,
		metrics:       m,
		clients:       make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetChannels attaches the channel set. Must be called before serving.
func (h *Hub) SetChannels(channels *channel.Set) {
	h.channels = channels
}

// ServeWS is the upgrade endpoint for one channel, mounted at /ws/:channel.
// The handshake is authenticated before the upgrade; a rejected caller gets
// the generic auth error and never reaches websocket framing.
func (h *Hub) ServeWS(c *gin.Context) {
	name := c.Param("channel")
	ch, ok := h.channels.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, errorx.NewNotFound("channel", name))
		return
	}

	ctx := c.Request.Context()
	identity, err := h.authenticator.AuthenticateConnection(ctx, c.Request)
	if err != nil {
		h.metrics.ClientError(string(errorx.CategoryAuth))
		c.JSON(http.StatusUnauthorized, errorx.ErrAuthRequired())
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), identity, conn, ch, h)
	h.connect(ctx, client, c.Request)
}

// connect runs the post-upgrade lifecycle: register, persist the session,
// track the connection, mark presence, ack, and start the pumps.
func (h *Hub) connect(ctx context.Context, client *Client, r *http.Request) {
	h.mu.Lock()
	h.clients[client.cid] = client
	h.mu.Unlock()
	h.metrics.ConnOpened()

	if err := h.sessions.SaveSession(ctx, &session.Session{
		CID:         client.cid,
		UserID:      client.identity.ID,
		OrgID:       client.identity.OrgID,
		ConnectedAt: time.Now().UTC(),
		RemoteAddr:  r.RemoteAddr,
		UserAgent:   r.UserAgent(),
	}); err != nil {
		client.logger.Warn("session save degraded", zap.Error(err))
	}
	h.sessions.TrackConnection(ctx, client.cid, client.identity.ID)

	first := len(h.sessions.Connections(ctx, client.identity.ID)) == 1
	if err := h.sessions.SetUserPresence(ctx, client.identity.ID, session.StatusOnline, nil); err != nil {
		client.logger.Warn("presence update degraded", zap.Error(err))
	}
	if first {
		h.announcePresence(ctx, client.identity.ID, session.StatusOnline)
	}

	client.channel.OnConnect(ctx, client)
	client.logger.Info("client connected",
		zap.String("channel", client.channel.Name().String()))

	go client.writePump()
	go client.readPump(context.WithoutCancel(ctx))
}

// disconnect tears a client down exactly once. Every cleanup primitive it
// calls tolerates already-removed state, so a racing reconnect that reuses
// nothing of this cid cannot be harmed.
func (h *Hub) disconnect(ctx context.Context, client *Client) {
	client.closeOnce.Do(func() {
		client.alive.Store(false)

		h.mu.Lock()
		delete(h.clients, client.cid)
		h.mu.Unlock()

		userID := client.identity.ID
		h.registry.RemoveConnection(ctx, client.cid)
		h.metrics.SetActiveRooms(h.registry.ActiveRoomCount())

		last := h.sessions.UntrackConnection(ctx, client.cid, userID)
		h.sessions.DeleteSession(ctx, client.cid)
		if last {
			h.registry.CleanupUserRooms(ctx, userID)
			h.sessions.ClearPresence(ctx, userID)
			h.announcePresence(ctx, userID, session.StatusOffline)
		}

		client.channel.OnDisconnect(ctx, client)
		close(client.quit)
		h.metrics.ConnClosed()
		client.logger.Info("client disconnected", zap.Bool("last_connection", last))
	})
}

// RunPresenceRefresh heartbeats presence for every connected user on a fixed
// timer, so an idle connection never decays to offline while its socket is
// up. Client heartbeats still move the TTL; this is the floor under them.
func (h *Hub) RunPresenceRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refreshPresenceOnce(ctx)
		}
	}
}

func (h *Hub) refreshPresenceOnce(ctx context.Context) {
	h.mu.RLock()
	users := make(map[string]struct{}, len(h.clients))
	for _, client := range h.clients {
		users[client.identity.ID] = struct{}{}
	}
	h.mu.RUnlock()

	for userID := range users {
		h.sessions.Heartbeat(ctx, userID)
	}
}

// announcePresence pushes a presence transition to the user's watchers.
func (h *Hub) announcePresence(ctx context.Context, userID string, status session.PresenceStatus) {
	env := event.NewEnvelope(event.TypeUserPresence, userID, &event.PresenceChange{
		Status: string(status),
	})
	if err := h.EmitToRoom(ctx, rooms.UserRoom(userID), env); err != nil {
		h.logger.Warn("presence announce failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// EmitToRoom delivers an envelope to the room's local members and forwards
// it to the other instances. Local delivery never fails; a dead or slow
// member is a counted drop.
func (h *Hub) EmitToRoom(ctx context.Context, room string, env *event.Envelope) error {
	h.metrics.EventEmitted(string(env.Type))

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.deliverLocal(room, data)

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, room, env); err != nil {
			h.logger.Warn("cross-instance publish failed",
				zap.String("room", room),
				zap.Error(err))
		}
	}
	return nil
}

// DeliverLocal pushes an already-serialized envelope from another instance
// to this instance's members of the room.
func (h *Hub) DeliverLocal(_ context.Context, room string, raw []byte) {
	h.metrics.BrokerReceived()
	h.deliverLocal(room, raw)
}

func (h *Hub) deliverLocal(room string, data []byte) {
	for _, cid := range h.registry.LocalMembers(room) {
		h.mu.RLock()
		client, ok := h.clients[cid]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		client.enqueue(data)
	}
}

// ClientCount returns the number of clients connected to this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client, running the full disconnect path for each.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.disconnect(ctx, client)
		_ = client.conn.Close()
	}
}

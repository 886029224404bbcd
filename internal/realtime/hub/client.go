package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/labpulse/labpulse/internal/realtime/channel"
	"github.com/labpulse/labpulse/internal/realtime/event"
)

// Client is one live websocket connection. All socket writes happen on the
// write pump; everything else enqueues onto send and never touches the
// socket directly.
type Client struct {
	cid      string
	identity *platform.Identity
	conn     *websocket.Conn
	channel  *channel.Channel
	hub      *Hub
	logger   *zap.Logger
	cfg      config.WSConfig

	send chan []byte
	// quit stops the write pump. send itself is never closed; an emit racing
	// teardown at worst enqueues into a channel nobody drains
	quit chan struct{}
	// alive flips false at the start of teardown; enqueues after that are
	// dropped
	alive     atomic.Bool
	closeOnce sync.Once
}

func newClient(cid string, identity *platform.Identity, conn *websocket.Conn, ch *channel.Channel, h *Hub) *Client {
	c := &Client{
		cid:      cid,
		identity: identity,
		conn:     conn,
		channel:  ch,
		hub:      h,
		logger:   h.logger.With(zap.String("cid", cid), zap.String("user_id", identity.ID)),
		cfg:      h.cfg,
		send:     make(chan []byte, h.cfg.SendQueueSize),
		quit:     make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

func (c *Client) CID() string                  { return c.cid }
func (c *Client) Identity() *platform.Identity { return c.identity }

// SendEvent serializes the envelope and enqueues it for the write pump.
func (c *Client) SendEvent(env *event.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("failed to marshal event",
			zap.String("event_type", string(env.Type)),
			zap.Error(err))
		return
	}
	c.enqueue(data)
}

// enqueue hands raw bytes to the write pump. A dead client or a full queue
// drops the message; a slow consumer must not block the emit path.
func (c *Client) enqueue(data []byte) {
	if !c.alive.Load() {
		c.hub.metrics.SendDropped()
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.metrics.SendDropped()
		c.logger.Warn("send queue full, dropping event")
	}
}

// readPump consumes inbound frames until the socket errors or closes, then
// triggers the disconnect path. One goroutine per connection.
func (c *Client) readPump(ctx context.Context) {
	defer c.hub.disconnect(ctx, c)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		c.channel.HandleFrame(ctx, c, raw)
	}
}

// writePump owns the socket's write side: queued events and keepalive pings.
// Exits when quit closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

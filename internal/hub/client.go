package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// Client is one live connection, keyed by (UserID, ClientType) in the Registry.
type Client struct {
	ID         string
	UserID     uint
	ClientType string
	Conn       *websocket.Conn
	Send       chan []byte

	registry *Registry
	cfg      config.WebSocketConfig

	// Heartbeat state: at any instant either no pong is outstanding or
	// exactly one is, never both timers at once.
	hbMu        sync.Mutex
	pongPending bool
	pongTimer   *time.Timer

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(id string, userID uint, clientType string, conn *websocket.Conn, reg *Registry, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:         id,
		UserID:     userID,
		ClientType: clientType,
		Conn:       conn,
		Send:       make(chan []byte, cfg.SendBuffer),
		registry:   reg,
		cfg:        cfg,
		done:       make(chan struct{}),
	}
}

// ReadPump reads frames off the socket and hands them to handler, one at a
// time. A handler runs to completion before the next frame is read, so
// handlers for a single connection never interleave.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.registry.Deregister(c)
		c.shutdown()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetPongHandler(func(string) error {
		c.pongReceived()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldConnectionID, c.ID).Msg("websocket read error")
			}
			return
		}

		handler(c, message)
	}
}

// WritePump drains the Send queue and drives the heartbeat. A missed pong is
// logged as a liveness warning only; closing is left to the transport's own
// error and close events.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.clearPongWait()
		c.shutdown()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.startPongWait()

		case <-c.done:
			return
		}
	}
}

func (c *Client) startPongWait() {
	c.hbMu.Lock()
	defer c.hbMu.Unlock()

	if c.pongPending {
		return
	}
	c.pongPending = true
	c.pongTimer = time.AfterFunc(c.cfg.PongWait, func() {
		c.hbMu.Lock()
		c.pongPending = false
		c.pongTimer = nil
		c.hbMu.Unlock()

		l := log.L()
		l.Warn().
			Uint64(log.FieldUserID, uint64(c.UserID)).
			Str(log.FieldClientType, c.ClientType).
			Str(log.FieldConnectionID, c.ID).
			Msg("pong not received within wait window")
	})
}

func (c *Client) pongReceived() {
	c.hbMu.Lock()
	defer c.hbMu.Unlock()

	if c.pongTimer != nil {
		c.pongTimer.Stop()
		c.pongTimer = nil
	}
	c.pongPending = false
}

func (c *Client) clearPongWait() {
	c.pongReceived()
}

// CloseWithCode sends a close frame with the given status code and tears the
// connection down. Safe to call concurrently with the pumps: control frames
// have their own write path.
func (c *Client) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.cfg.WriteWait)
		c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.Conn.Close()
		close(c.done)
	})
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.Conn.Close()
		close(c.done)
	})
}

// SendFrame marshals a server envelope and queues it on this connection only.
func (c *Client) SendFrame(event string, data interface{}) bool {
	payload, err := json.Marshal(domain.ServerFrame{Type: event, Data: data})
	if err != nil {
		return false
	}
	return c.Enqueue(payload)
}

// Enqueue queues a marshalled frame for delivery. Reports false if the send
// buffer is full, in which case the connection is considered stalled.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case c.Send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

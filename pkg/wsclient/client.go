// Package wsclient is the client-side wrapper for the realtime endpoint.
// A user holds one socket per client type (for example "navbar" and
// "messenger"), each with its own heartbeat and reconnection policy.
package wsclient

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// Config holds the wrapper's timing policy.
type Config struct {
	PingInterval     time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
}

func (c *Config) norm() {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 10 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Client manages the sockets of one user, one per client type.
type Client struct {
	baseURL string
	userID  uint
	cfg     Config
	dialer  *websocket.Dialer

	mu      sync.Mutex
	sockets map[string]*Socket
}

// New creates a client for the given ws endpoint base URL, e.g.
// "ws://localhost:8085".
func New(baseURL string, userID uint, cfg Config) *Client {
	cfg.norm()
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		cfg:     cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		sockets: make(map[string]*Socket),
	}
}

// Socket returns the socket for a client type, creating it (without
// connecting) on first use.
func (c *Client) Socket(clientType string) *Socket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sockets[clientType]; ok {
		return s
	}
	u := fmt.Sprintf("%s/ws?userId=%d&type=%s", c.baseURL, c.userID, url.QueryEscape(clientType))
	s := newSocket(clientType, u, c.cfg, c.dialer)
	c.sockets[clientType] = s
	return s
}

// Connect opens the connection for a client type.
func (c *Client) Connect(clientType string) error {
	return c.Socket(clientType).Connect()
}

// Send writes a flat frame on the given client type's connection. With no
// open connection this is a logged no-op.
func (c *Client) Send(clientType, msgType string, fields map[string]interface{}) {
	c.mu.Lock()
	s, ok := c.sockets[clientType]
	c.mu.Unlock()

	if !ok {
		l := log.L()
		l.Error().
			Str(log.FieldClientType, clientType).
			Str(log.FieldEventType, msgType).
			Msg("send on unknown client type dropped")
		return
	}
	s.Send(msgType, fields)
}

// On registers an event handler on the given client type's socket.
func (c *Client) On(clientType, event string, h Handler) {
	c.Socket(clientType).On(event, h)
}

// Disconnect closes one client type's connection with the normal-closure
// code, suppressing reconnection.
func (c *Client) Disconnect(clientType string) {
	c.mu.Lock()
	s, ok := c.sockets[clientType]
	c.mu.Unlock()

	if ok {
		s.Disconnect()
	}
}

// Close disconnects every socket.
func (c *Client) Close() {
	c.mu.Lock()
	sockets := make([]*Socket, 0, len(c.sockets))
	for _, s := range c.sockets {
		sockets = append(sockets, s)
	}
	c.mu.Unlock()

	for _, s := range sockets {
		s.Disconnect()
	}
}

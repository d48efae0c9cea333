package wsclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// Socket is one logical connection for a client type. It owns its heartbeat
// and its reconnection timer: at most one scheduled reconnection exists at
// any time, and a pong wait is either outstanding or not, never doubled.
type Socket struct {
	clientType string
	url        string
	cfg        Config
	router     *Router
	dialer     *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	wmu            sync.Mutex // serializes writes on conn
	closing        bool
	reconnectTimer *time.Timer

	hbMu        sync.Mutex
	hbStop      chan struct{}
	pongPending bool
	pongTimer   *time.Timer
}

func newSocket(clientType, url string, cfg Config, dialer *websocket.Dialer) *Socket {
	return &Socket{
		clientType: clientType,
		url:        url,
		cfg:        cfg,
		router:     newRouter(),
		dialer:     dialer,
	}
}

// On registers the handler for a server event on this socket. Last
// registration wins.
func (s *Socket) On(event string, h Handler) {
	s.router.On(event, h)
}

// Connected reports whether the socket currently holds an open connection.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Connect dials the endpoint. A successful connect cancels any scheduled
// reconnection attempt.
func (s *Socket) Connect() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return errors.New("socket is closed")
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.cancelReconnectLocked()
	s.mu.Unlock()

	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		return errors.New("socket is closed")
	}
	s.conn = conn
	s.cancelReconnectLocked()
	stop := make(chan struct{})
	s.hbStop = stop
	s.mu.Unlock()

	l := log.L()
	l.Info().Str(log.FieldClientType, s.clientType).Msg("websocket connected")

	go s.readLoop(conn)
	go s.heartbeatLoop(stop)

	return nil
}

// Send writes a flat client frame {"type": ..., fields...}. With no open
// connection it is a no-op with a logged error: at-most-once, fire and
// forget, nothing is queued for later delivery.
func (s *Socket) Send(msgType string, fields map[string]interface{}) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	l := log.L()
	if conn == nil {
		l.Error().
			Str(log.FieldClientType, s.clientType).
			Str(log.FieldEventType, msgType).
			Msg("send with no open connection dropped")
		return
	}

	frame := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		frame[k] = v
	}
	frame["type"] = msgType

	payload, err := json.Marshal(frame)
	if err != nil {
		l.Error().Err(err).Str(log.FieldEventType, msgType).Msg("failed to marshal frame")
		return
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		l.Error().Err(err).Str(log.FieldClientType, s.clientType).Msg("websocket write failed")
	}
}

// Disconnect closes with the normal-closure code, suppressing reconnection.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	s.closing = true
	s.cancelReconnectLocked()
	conn := s.conn
	s.mu.Unlock()

	s.stopHeartbeat()

	if conn != nil {
		s.wmu.Lock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
			time.Now().Add(s.cfg.WriteWait),
		)
		s.wmu.Unlock()
		conn.Close()
	}
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	closeCode := websocket.CloseAbnormalClosure

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				closeCode = ce.Code
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldClientType, s.clientType).Msg("malformed frame dropped")
			continue
		}

		// Pongs only clear the heartbeat wait; they are never forwarded.
		if frame.Type == "pong" {
			s.pongReceived()
			continue
		}
		s.router.dispatch(frame)
	}

	conn.Close()
	s.stopHeartbeat()

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	closing := s.closing
	s.mu.Unlock()

	l := log.L()
	l.Info().
		Str(log.FieldClientType, s.clientType).
		Int("close_code", closeCode).
		Msg("websocket disconnected")

	if !closing && closeCode != websocket.CloseNormalClosure {
		s.scheduleReconnect()
	}
}

// scheduleReconnect arms a single fixed-delay reconnection attempt. A second
// close event before the timer fires does not create a second timer.
func (s *Socket) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing || s.reconnectTimer != nil {
		return
	}
	s.reconnectTimer = time.AfterFunc(s.cfg.ReconnectDelay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		closing := s.closing
		s.mu.Unlock()
		if closing {
			return
		}
		if err := s.Connect(); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldClientType, s.clientType).Msg("reconnect attempt failed")
			s.scheduleReconnect()
		}
	})
}

func (s *Socket) cancelReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// heartbeatLoop sends an application ping on a fixed interval and waits a
// bounded time for the pong. A missed pong is logged as a liveness warning
// only; closure is left to the transport's own error and close events.
func (s *Socket) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Send("ping", nil)
			s.startPongWait()
		}
	}
}

func (s *Socket) startPongWait() {
	s.hbMu.Lock()
	defer s.hbMu.Unlock()

	if s.pongPending {
		return
	}
	s.pongPending = true
	s.pongTimer = time.AfterFunc(s.cfg.PongWait, func() {
		s.hbMu.Lock()
		s.pongPending = false
		s.pongTimer = nil
		s.hbMu.Unlock()

		l := log.L()
		l.Warn().Str(log.FieldClientType, s.clientType).Msg("pong not received within wait window")
	})
}

func (s *Socket) pongReceived() {
	s.hbMu.Lock()
	defer s.hbMu.Unlock()

	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	s.pongPending = false
}

func (s *Socket) stopHeartbeat() {
	s.mu.Lock()
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
	s.mu.Unlock()

	s.pongReceived()
}

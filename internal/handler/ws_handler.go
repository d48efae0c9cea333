package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/internal/hub"
	"github.com/Dave1206/Memory-App-sub000/internal/service"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionTracker keeps the external session store's liveness keys fresh while
// a connection is open. Optional; nil disables session tracking.
type SessionTracker interface {
	Touch(ctx context.Context, userID uint) error
	Remove(ctx context.Context, userID uint) error
}

type WSHandler struct {
	registry *hub.Registry
	chat     service.ChatService
	sessions SessionTracker
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(reg *hub.Registry, chat service.ChatService, sessions SessionTracker, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		registry: reg,
		chat:     chat,
		sessions: sessions,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket upgrades GET /ws?userId=<id>&type=<clientType> and binds
// the socket to its (userId, clientType) key in the registry. Authentication
// happens upstream; the gateway forwards only authenticated traffic here.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("userId"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}
	clientType := c.Query("type")
	if clientType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing client type"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), uint(userID), clientType, conn, h.registry, h.wsCfg)
	h.registry.Register(client)

	if h.sessions != nil {
		if err := h.sessions.Touch(c.Request.Context(), client.UserID); err != nil {
			l := log.L()
			l.Warn().Err(err).Uint64(log.FieldUserID, uint64(client.UserID)).Msg("failed to touch session")
		}
	}

	go client.WritePump()
	go client.ReadPump(h.handleFrame)
}

// handleFrame dispatches one inbound frame by type. Frames run one at a time
// per connection. Malformed or unrecognized frames are logged and dropped;
// the connection stays open and no error is surfaced to the sender.
func (h *WSHandler) handleFrame(client *hub.Client, message []byte) {
	l := log.L()

	var base domain.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		l.Warn().Err(err).
			Uint64(log.FieldUserID, uint64(client.UserID)).
			Str(log.FieldClientType, client.ClientType).
			Msg("malformed frame dropped")
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.FrameTypePing:
		client.SendFrame(domain.FrameTypePong, nil)
		if h.sessions != nil {
			if err := h.sessions.Touch(ctx, client.UserID); err != nil {
				l.Warn().Err(err).Uint64(log.FieldUserID, uint64(client.UserID)).Msg("failed to refresh session")
			}
		}

	case domain.FrameTypeSendMessage:
		var frame domain.SendMessageFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			l.Warn().Err(err).Msg("invalid send_message frame dropped")
			return
		}
		if _, err := h.chat.SendMessage(ctx, frame.ConversationID, client.UserID, frame.Content, frame.MediaURL); err != nil {
			l.Error().Err(err).
				Uint64(log.FieldUserID, uint64(client.UserID)).
				Uint64(log.FieldConversationID, uint64(frame.ConversationID)).
				Msg("send_message failed")
		}

	case domain.FrameTypeMarkSeen:
		var frame domain.MarkSeenFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			l.Warn().Err(err).Msg("invalid mark_seen frame dropped")
			return
		}
		if err := h.chat.MarkSeen(ctx, frame.ConversationID, client.UserID, frame.MessageIDs); err != nil {
			l.Error().Err(err).
				Uint64(log.FieldUserID, uint64(client.UserID)).
				Uint64(log.FieldConversationID, uint64(frame.ConversationID)).
				Msg("mark_seen failed")
		}

	default:
		l.Warn().
			Str(log.FieldEventType, base.Type).
			Uint64(log.FieldUserID, uint64(client.UserID)).
			Msg("unrecognized frame type dropped")
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

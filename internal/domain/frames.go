package domain

import "encoding/json"

// WebSocket frame types from client. Client frames are flat: {"type": ..., fields...}.
const (
	FrameTypePing        = "ping"
	FrameTypeSendMessage = "send_message"
	FrameTypeMarkSeen    = "mark_seen"
)

// WebSocket frame types to client. Server frames wrap domain events as
// {"type": ..., "data": {...}}. The asymmetry with client frames is part of
// the wire contract and must be preserved.
const (
	FrameTypePong               = "pong"
	FrameTypeNewNotification    = "new_notification"
	FrameTypeNewMessage         = "new_message"
	FrameTypeMessageSeen        = "message_seen"
	FrameTypeConversationUpdate = "conversation_update"
)

// Close code used when a new registration supersedes an existing connection
// for the same (user, client type). Distinct from normal closure so the old
// client does not treat it as an intentional disconnect.
const CloseSuperseded = 4000

// BaseFrame is the minimal envelope used to sniff the frame type.
type BaseFrame struct {
	Type string `json:"type"`
}

// ServerFrame is the server-to-client envelope.
type ServerFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client -> Server frames

type SendMessageFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url,omitempty"`
}

type MarkSeenFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversationId"`
	MessageIDs     []uint `json:"messageIds"`
}

// Server -> Client event payloads

// MessageSeenData notifies conversation participants that readerID has seen
// the listed messages. Field names are part of the wire contract.
type MessageSeenData struct {
	ConversationID uint   `json:"conversation_id"`
	SeenMessageIDs []uint `json:"seenMessageIds"`
	SeenUser       uint   `json:"seenUser"`
}

// ConversationUpdateData refreshes a participant's conversation list entry.
type ConversationUpdateData struct {
	ConversationID uint     `json:"conversation_id"`
	LastMessage    *Message `json:"last_message,omitempty"`
}

// NotificationData wraps a typed notification for the new_notification event.
type NotificationData struct {
	ID        uint            `json:"id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt int64           `json:"created_at,omitempty"`
}

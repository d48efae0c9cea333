package domain

import (
	"time"

	"gorm.io/datatypes"
)

// User carries the minimal profile fields the realtime core needs.
// Profile CRUD lives in the external REST tier.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Username   string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	LastOnline *time.Time `json:"last_online,omitempty"`
}

// Conversation is an ordered set of participants sharing a message thread.
// Title is optional; when empty the API returns the participant usernames joined.
type Conversation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255" json:"title"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationMember links a user into a conversation.
type ConversationMember struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Message belongs to exactly one conversation. ID is monotonically increasing
// and doubles as the ordering key and pagination cursor.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"message_id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"index;not null" json:"sender_id"`
	Content        string    `json:"content"`
	MediaURL       string    `json:"media_url,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// SeenStatus records whether a recipient has viewed a message.
// Rows are never created for the message sender.
type SeenStatus struct {
	MessageID uint       `gorm:"primaryKey;autoIncrement:false" json:"message_id"`
	UserID    uint       `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Seen      bool       `gorm:"default:false;index" json:"seen"`
	SeenAt    *time.Time `json:"seen_at,omitempty"`
}

// Friendship is a symmetric relation stored as two rows (one per direction),
// which keeps recipient-set queries a single indexed lookup.
type Friendship struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FriendID  uint      `gorm:"primaryKey;autoIncrement:false" json:"friend_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is a typed event record delivered to a single recipient.
// Presence notifications (user_online/user_offline) are pushed live but
// never persisted.
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Type        string         `gorm:"size:32;index;not null" json:"type"`
	RecipientID uint           `gorm:"index;not null" json:"recipient_id"`
	Payload     datatypes.JSON `json:"payload"`
	Read        bool           `gorm:"default:false;index" json:"read"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// Notification types.
const (
	NotifNewPost       = "new_post"
	NotifMessage       = "message"
	NotifMessageSeen   = "message_seen"
	NotifReaction      = "reaction"
	NotifFriendRequest = "friend_request"
	NotifEventInvite   = "event_invite"
	NotifUserOnline    = "user_online"
	NotifUserOffline   = "user_offline"
)

// ConversationSummary is the conversation list projection returned by the
// REST collaborator endpoint.
type ConversationSummary struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	MemberIDs    []uint    `json:"member_ids"`
	LastActivity time.Time `json:"last_activity"`
	UnreadCount  int64     `json:"unread_count"`
}

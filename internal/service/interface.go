package service

import (
	"context"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

// Deliverer pushes one event to every live connection a user holds and
// reports how many connections it reached. Zero is the normal offline no-op.
type Deliverer interface {
	Push(userID uint, event string, data interface{}) int
}

// ChatService is the conversation delivery engine and seen-receipt propagator.
type ChatService interface {
	CreateConversation(ctx context.Context, creatorID uint, memberIDs []uint, title string) (*domain.Conversation, error)
	Conversations(ctx context.Context, userID uint) ([]domain.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, senderID uint, content, mediaURL string) (*domain.Message, error)
	MarkSeen(ctx context.Context, conversationID, readerID uint, messageIDs []uint) error
}

// HistoryService serves paginated conversation history.
type HistoryService interface {
	Messages(ctx context.Context, conversationID uint, limit, offset int, before *time.Time) ([]domain.Message, error)
}

// DomainEvent is an action performed in the external REST tier that the core
// turns into notifications.
type DomainEvent struct {
	Type        string `json:"type"`
	ActorID     uint   `json:"actor_id"`
	ActorName   string `json:"actor_name,omitempty"`
	RecipientID uint   `json:"recipient_id,omitempty"`
	TargetID    uint   `json:"target_id,omitempty"`
	TargetTitle string `json:"target_title,omitempty"`
}

// NotificationService resolves recipient sets for domain and presence events,
// persists notification records and fans them out.
type NotificationService interface {
	HandleDomainEvent(ctx context.Context, ev *DomainEvent) error
	UserOnline(userID uint)
	UserOffline(userID uint)

	ForRecipient(ctx context.Context, userID uint) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) error
	Delete(ctx context.Context, userID uint, ids []uint) error
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a conversation participant")
)

// ChatRepository persists conversations, messages and seen state.
type ChatRepository interface {
	CreateConversation(ctx context.Context, title string, memberIDs []uint) (*domain.Conversation, error)
	ConversationMembers(ctx context.Context, conversationID uint) ([]uint, error)
	UserConversations(ctx context.Context, userID uint) ([]domain.ConversationSummary, error)

	// CreateMessage inserts the message, assigns its strictly-increasing ID
	// and bumps the conversation's last activity.
	CreateMessage(ctx context.Context, msg *domain.Message) error

	// CreateSeenStatuses inserts unseen rows for the given recipients. The
	// sender must not be among them.
	CreateSeenStatuses(ctx context.Context, messageID uint, recipientIDs []uint) error

	// Messages returns up to limit messages of the conversation older than
	// before (all if before is nil), skipping offset, ordered oldest to
	// newest within the returned batch.
	Messages(ctx context.Context, conversationID uint, limit, offset int, before *time.Time) ([]domain.Message, error)

	// MarkSeen flips seen state for the reader on the given messages.
	MarkSeen(ctx context.Context, readerID uint, messageIDs []uint, at time.Time) error
}

// NotificationRepository persists per-recipient notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ForRecipient(ctx context.Context, userID uint) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) error
	Delete(ctx context.Context, userID uint, ids []uint) error
}

// SocialRepository resolves friend sets and user profile fragments owned by
// the external REST tier but read by the fanout paths.
type SocialRepository interface {
	FriendIDs(ctx context.Context, userID uint) ([]uint, error)
	UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
	TouchLastOnline(ctx context.Context, userID uint, at time.Time) error
}

package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM-backed chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) CreateConversation(ctx context.Context, title string, memberIDs []uint) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := &domain.Conversation{
		Title:        title,
		LastActivity: now,
		CreatedAt:    now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		members := make([]domain.ConversationMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, domain.ConversationMember{
				ConversationID: conv.ID,
				UserID:         id,
				JoinedAt:       now,
			})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *GormChatRepository) ConversationMembers(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&domain.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrConversationNotFound
	}
	return ids, nil
}

func (r *GormChatRepository) UserConversations(ctx context.Context, userID uint) ([]domain.ConversationSummary, error) {
	var convs []domain.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("cm.user_id = ?", userID).
		Order("conversations.last_activity DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		memberIDs, err := r.ConversationMembers(ctx, conv.ID)
		if err != nil {
			return nil, err
		}

		var unread int64
		err = r.db.WithContext(ctx).
			Model(&domain.SeenStatus{}).
			Joins("JOIN messages ON messages.id = seen_statuses.message_id").
			Where("messages.conversation_id = ? AND seen_statuses.user_id = ? AND seen_statuses.seen = ?", conv.ID, userID, false).
			Count(&unread).Error
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, domain.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			MemberIDs:    memberIDs,
			LastActivity: conv.LastActivity,
			UnreadCount:  unread,
		})
	}
	return summaries, nil
}

func (r *GormChatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member domain.ConversationMember
		err := tx.Where("conversation_id = ? AND user_id = ?", msg.ConversationID, msg.SenderID).
			First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotParticipant
			}
			return err
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("last_activity", msg.CreatedAt).Error
	})
}

func (r *GormChatRepository) CreateSeenStatuses(ctx context.Context, messageID uint, recipientIDs []uint) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	rows := make([]domain.SeenStatus, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		rows = append(rows, domain.SeenStatus{
			MessageID: messageID,
			UserID:    id,
			Seen:      false,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *GormChatRepository) Messages(ctx context.Context, conversationID uint, limit, offset int, before *time.Time) ([]domain.Message, error) {
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	// Newest-first for the window, then reversed so the batch reads oldest
	// to newest as the API contract requires.
	var page []domain.Message
	err := q.Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&page).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (r *GormChatRepository) MarkSeen(ctx context.Context, readerID uint, messageIDs []uint, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.SeenStatus{}).
		Where("user_id = ? AND message_id IN ?", readerID, messageIDs).
		Updates(map[string]interface{}{"seen": true, "seen_at": at}).Error
}

// Ensure interface is satisfied at compile time.
var _ ChatRepository = (*GormChatRepository)(nil)

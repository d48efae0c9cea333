package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/internal/repository"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

type chatService struct {
	repo      repository.ChatRepository
	social    repository.SocialRepository
	deliverer Deliverer
}

func NewChatService(
	repo repository.ChatRepository,
	social repository.SocialRepository,
	deliverer Deliverer,
) ChatService {
	return &chatService{
		repo:      repo,
		social:    social,
		deliverer: deliverer,
	}
}

func (s *chatService) CreateConversation(ctx context.Context, creatorID uint, memberIDs []uint, title string) (*domain.Conversation, error) {
	members := make([]uint, 0, len(memberIDs)+1)
	seen := map[uint]bool{creatorID: true}
	members = append(members, creatorID)
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	if len(members) < 2 {
		return nil, fmt.Errorf("conversation needs at least two participants")
	}

	return s.repo.CreateConversation(ctx, title, members)
}

func (s *chatService) Conversations(ctx context.Context, userID uint) ([]domain.ConversationSummary, error) {
	summaries, err := s.repo.UserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Default a missing title to the participant usernames joined.
	for i := range summaries {
		if summaries[i].Title != "" {
			continue
		}
		names, err := s.social.UsernamesByIDs(ctx, summaries[i].MemberIDs)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Uint64(log.FieldConversationID, uint64(summaries[i].ID)).Msg("failed to resolve usernames for default title")
			continue
		}
		summaries[i].Title = joinUsernames(summaries[i].MemberIDs, names)
	}
	return summaries, nil
}

// SendMessage persists the message, records unseen state for every recipient
// and pushes the new_message event to all participants' live connections.
// Any persistence failure skips the fanout entirely; the stored row is the
// durable source of truth and the push is a low-latency hint only.
func (s *chatService) SendMessage(ctx context.Context, conversationID, senderID uint, content, mediaURL string) (*domain.Message, error) {
	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MediaURL:       mediaURL,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	members, err := s.repo.ConversationMembers(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	recipients := make([]uint, 0, len(members)-1)
	for _, id := range members {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}
	if err := s.repo.CreateSeenStatuses(ctx, msg.ID, recipients); err != nil {
		return nil, fmt.Errorf("failed to record seen state: %w", err)
	}

	for _, id := range members {
		s.deliverer.Push(id, domain.FrameTypeNewMessage, msg)
		s.deliverer.Push(id, domain.FrameTypeConversationUpdate, domain.ConversationUpdateData{
			ConversationID: conversationID,
			LastMessage:    msg,
		})
	}

	l := log.Ctx(ctx)
	l.Info().
		Uint64(log.FieldConversationID, uint64(conversationID)).
		Uint64(log.FieldMessageID, uint64(msg.ID)).
		Uint64(log.FieldUserID, uint64(senderID)).
		Msg("message delivered")

	return msg, nil
}

// MarkSeen flips the reader's seen state on the given messages and notifies
// the other participants.
func (s *chatService) MarkSeen(ctx context.Context, conversationID, readerID uint, messageIDs []uint) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := s.repo.MarkSeen(ctx, readerID, messageIDs, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update seen state: %w", err)
	}

	members, err := s.repo.ConversationMembers(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}

	data := domain.MessageSeenData{
		ConversationID: conversationID,
		SeenMessageIDs: messageIDs,
		SeenUser:       readerID,
	}
	for _, id := range members {
		if id == readerID {
			continue
		}
		s.deliverer.Push(id, domain.FrameTypeMessageSeen, data)
	}
	return nil
}

func joinUsernames(ids []uint, names map[uint]string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			parts = append(parts, name)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

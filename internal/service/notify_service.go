package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/internal/repository"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

type notifyService struct {
	repo      repository.NotificationRepository
	social    repository.SocialRepository
	deliverer Deliverer
}

func NewNotificationService(
	repo repository.NotificationRepository,
	social repository.SocialRepository,
	deliverer Deliverer,
) NotificationService {
	return &notifyService{
		repo:      repo,
		social:    social,
		deliverer: deliverer,
	}
}

// HandleDomainEvent resolves the recipient set for an event from the REST
// tier, persists one notification per recipient and pushes it to their live
// connections. Unknown event types are logged and dropped.
func (s *notifyService) HandleDomainEvent(ctx context.Context, ev *DomainEvent) error {
	l := log.Ctx(ctx)

	var recipients []uint
	switch ev.Type {
	case domain.NotifNewPost:
		friends, err := s.social.FriendIDs(ctx, ev.ActorID)
		if err != nil {
			return err
		}
		recipients = friends

	case domain.NotifReaction, domain.NotifFriendRequest, domain.NotifEventInvite:
		if ev.RecipientID == 0 {
			l.Warn().Str(log.FieldEventType, ev.Type).Msg("domain event missing recipient")
			return nil
		}
		recipients = []uint{ev.RecipientID}

	default:
		l.Warn().Str(log.FieldEventType, ev.Type).Msg("unknown domain event type")
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"actor_id":     ev.ActorID,
		"actor_name":   ev.ActorName,
		"target_id":    ev.TargetID,
		"target_title": ev.TargetTitle,
	})
	if err != nil {
		return err
	}

	for _, userID := range recipients {
		n := &domain.Notification{
			Type:        ev.Type,
			RecipientID: userID,
			Payload:     payload,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, n); err != nil {
			// No push without a persisted row: the client would have no
			// durable record to catch up from.
			l.Error().Err(err).Str(log.FieldEventType, ev.Type).Uint64(log.FieldUserID, uint64(userID)).Msg("failed to persist notification")
			continue
		}
		s.deliverer.Push(userID, domain.FrameTypeNewNotification, domain.NotificationData{
			ID:        n.ID,
			Type:      n.Type,
			Payload:   payload,
			CreatedAt: n.CreatedAt.UnixMilli(),
		})
	}
	return nil
}

// UserOnline fans a transient user_online notification out to the user's
// friends. Presence events are pushed only, never persisted.
func (s *notifyService) UserOnline(userID uint) {
	s.pushPresence(userID, domain.NotifUserOnline)
}

// UserOffline records last_online and notifies friends.
func (s *notifyService) UserOffline(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.social.TouchLastOnline(ctx, userID, time.Now().UTC()); err != nil {
		l := log.L()
		l.Warn().Err(err).Uint64(log.FieldUserID, uint64(userID)).Msg("failed to record last_online")
	}
	s.pushPresence(userID, domain.NotifUserOffline)
}

func (s *notifyService) pushPresence(userID uint, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	friends, err := s.social.FriendIDs(ctx, userID)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Uint64(log.FieldUserID, uint64(userID)).Msg("failed to resolve friends for presence fanout")
		return
	}

	payload, _ := json.Marshal(map[string]uint{"user_id": userID})
	data := domain.NotificationData{
		Type:      event,
		Payload:   payload,
		CreatedAt: time.Now().UnixMilli(),
	}
	for _, friendID := range friends {
		s.deliverer.Push(friendID, domain.FrameTypeNewNotification, data)
	}
}

func (s *notifyService) ForRecipient(ctx context.Context, userID uint) ([]domain.Notification, error) {
	return s.repo.ForRecipient(ctx, userID)
}

func (s *notifyService) MarkRead(ctx context.Context, userID uint, ids []uint) error {
	return s.repo.MarkRead(ctx, userID, ids)
}

func (s *notifyService) Delete(ctx context.Context, userID uint, ids []uint) error {
	return s.repo.Delete(ctx, userID, ids)
}

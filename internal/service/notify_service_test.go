package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

type fakeNotifRepo struct {
	createErr error
	nextID    uint
	created   []*domain.Notification
}

func (r *fakeNotifRepo) Create(ctx context.Context, n *domain.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	n.ID = r.nextID
	r.created = append(r.created, n)
	return nil
}

func (r *fakeNotifRepo) ForRecipient(ctx context.Context, userID uint) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range r.created {
		if n.RecipientID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotifRepo) MarkRead(ctx context.Context, userID uint, ids []uint) error { return nil }
func (r *fakeNotifRepo) Delete(ctx context.Context, userID uint, ids []uint) error   { return nil }

func TestHandleDomainEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("new_post fans out to the author's friends", func(t *testing.T) {
		repo := &fakeNotifRepo{}
		social := newFakeSocialRepo()
		social.friends[1] = []uint{2, 3}
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(repo, social, deliverer)

		err := svc.HandleDomainEvent(ctx, &DomainEvent{Type: domain.NotifNewPost, ActorID: 1, ActorName: "alice", TargetID: 9})
		if err != nil {
			t.Fatalf("HandleDomainEvent: %v", err)
		}

		if len(repo.created) != 2 {
			t.Fatalf("persisted %d notifications, want 2", len(repo.created))
		}
		for _, userID := range []uint{2, 3} {
			if got := len(deliverer.pushesTo(userID, domain.FrameTypeNewNotification)); got != 1 {
				t.Errorf("friend %d received %d pushes, want 1", userID, got)
			}
		}
		if got := len(deliverer.pushesTo(1, domain.FrameTypeNewNotification)); got != 0 {
			t.Errorf("author received %d pushes, want 0", got)
		}
	})

	t.Run("friend_request reaches the target only", func(t *testing.T) {
		repo := &fakeNotifRepo{}
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(repo, newFakeSocialRepo(), deliverer)

		err := svc.HandleDomainEvent(ctx, &DomainEvent{Type: domain.NotifFriendRequest, ActorID: 1, RecipientID: 2})
		if err != nil {
			t.Fatalf("HandleDomainEvent: %v", err)
		}

		if len(repo.created) != 1 || repo.created[0].RecipientID != 2 {
			t.Fatalf("unexpected persisted rows: %+v", repo.created)
		}
		if len(deliverer.pushes) != 1 || deliverer.pushes[0].userID != 2 {
			t.Fatalf("unexpected pushes: %+v", deliverer.pushes)
		}
	})

	t.Run("unknown type is dropped without error", func(t *testing.T) {
		repo := &fakeNotifRepo{}
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(repo, newFakeSocialRepo(), deliverer)

		if err := svc.HandleDomainEvent(ctx, &DomainEvent{Type: "mystery"}); err != nil {
			t.Fatalf("HandleDomainEvent: %v", err)
		}
		if len(repo.created) != 0 || len(deliverer.pushes) != 0 {
			t.Error("dropped event still produced side effects")
		}
	})

	t.Run("no push without a persisted row", func(t *testing.T) {
		repo := &fakeNotifRepo{createErr: errors.New("insert failed")}
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(repo, newFakeSocialRepo(), deliverer)

		err := svc.HandleDomainEvent(ctx, &DomainEvent{Type: domain.NotifReaction, ActorID: 1, RecipientID: 2})
		if err != nil {
			t.Fatalf("HandleDomainEvent: %v", err)
		}
		if len(deliverer.pushes) != 0 {
			t.Fatalf("pushed despite persistence failure: %+v", deliverer.pushes)
		}
	})
}

func TestPresenceFanout(t *testing.T) {
	t.Run("offline records last_online and notifies friends", func(t *testing.T) {
		repo := &fakeNotifRepo{}
		social := newFakeSocialRepo()
		social.friends[1] = []uint{2, 3}
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(repo, social, deliverer)

		before := time.Now().UTC()
		svc.UserOffline(1)

		if social.touchedUser != 1 {
			t.Errorf("last_online touched for user %d, want 1", social.touchedUser)
		}
		if at := social.lastOnline[1]; at.Before(before) {
			t.Errorf("last_online %v predates the disconnect", at)
		}
		for _, userID := range []uint{2, 3} {
			if got := len(deliverer.pushesTo(userID, domain.FrameTypeNewNotification)); got != 1 {
				t.Errorf("friend %d received %d pushes, want 1", userID, got)
			}
		}
		if len(repo.created) != 0 {
			t.Error("presence event was persisted")
		}
	})

	t.Run("online with no friends is a no-op", func(t *testing.T) {
		deliverer := &fakeDeliverer{}
		svc := NewNotificationService(&fakeNotifRepo{}, newFakeSocialRepo(), deliverer)

		svc.UserOnline(7)
		if len(deliverer.pushes) != 0 {
			t.Fatalf("unexpected pushes: %+v", deliverer.pushes)
		}
	})
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

type pushedEvent struct {
	userID uint
	event  string
	data   interface{}
}

type fakeDeliverer struct {
	pushes []pushedEvent
}

func (d *fakeDeliverer) Push(userID uint, event string, data interface{}) int {
	d.pushes = append(d.pushes, pushedEvent{userID: userID, event: event, data: data})
	return 1
}

func (d *fakeDeliverer) pushesTo(userID uint, event string) []pushedEvent {
	var out []pushedEvent
	for _, p := range d.pushes {
		if p.userID == userID && p.event == event {
			out = append(out, p)
		}
	}
	return out
}

type fakeChatRepo struct {
	members       []uint
	membersErr    error
	createMsgErr  error
	nextMessageID uint

	createdMessages []*domain.Message
	seenStatusRows  map[uint][]uint // messageID -> recipients
	markedSeen      []uint
	markedReader    uint
	summaries       []domain.ConversationSummary
}

func newFakeChatRepo(members ...uint) *fakeChatRepo {
	return &fakeChatRepo{
		members:        members,
		nextMessageID:  500,
		seenStatusRows: make(map[uint][]uint),
	}
}

func (r *fakeChatRepo) CreateConversation(ctx context.Context, title string, memberIDs []uint) (*domain.Conversation, error) {
	r.members = memberIDs
	return &domain.Conversation{ID: 42, Title: title}, nil
}

func (r *fakeChatRepo) ConversationMembers(ctx context.Context, conversationID uint) ([]uint, error) {
	if r.membersErr != nil {
		return nil, r.membersErr
	}
	return r.members, nil
}

func (r *fakeChatRepo) UserConversations(ctx context.Context, userID uint) ([]domain.ConversationSummary, error) {
	return r.summaries, nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if r.createMsgErr != nil {
		return r.createMsgErr
	}
	r.nextMessageID++
	msg.ID = r.nextMessageID
	r.createdMessages = append(r.createdMessages, msg)
	return nil
}

func (r *fakeChatRepo) CreateSeenStatuses(ctx context.Context, messageID uint, recipientIDs []uint) error {
	r.seenStatusRows[messageID] = append([]uint(nil), recipientIDs...)
	return nil
}

func (r *fakeChatRepo) Messages(ctx context.Context, conversationID uint, limit, offset int, before *time.Time) ([]domain.Message, error) {
	return nil, nil
}

func (r *fakeChatRepo) MarkSeen(ctx context.Context, readerID uint, messageIDs []uint, at time.Time) error {
	r.markedReader = readerID
	r.markedSeen = append([]uint(nil), messageIDs...)
	return nil
}

type fakeSocialRepo struct {
	friends     map[uint][]uint
	usernames   map[uint]string
	lastOnline  map[uint]time.Time
	friendsErr  error
	touchedUser uint
}

func newFakeSocialRepo() *fakeSocialRepo {
	return &fakeSocialRepo{
		friends:    make(map[uint][]uint),
		usernames:  make(map[uint]string),
		lastOnline: make(map[uint]time.Time),
	}
}

func (r *fakeSocialRepo) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	if r.friendsErr != nil {
		return nil, r.friendsErr
	}
	return r.friends[userID], nil
}

func (r *fakeSocialRepo) UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	for _, id := range ids {
		if name, ok := r.usernames[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (r *fakeSocialRepo) TouchLastOnline(ctx context.Context, userID uint, at time.Time) error {
	r.touchedUser = userID
	r.lastOnline[userID] = at
	return nil
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes to every participant after persisting", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2, 3)
		deliverer := &fakeDeliverer{}
		svc := NewChatService(repo, newFakeSocialRepo(), deliverer)

		msg, err := svc.SendMessage(ctx, 42, 1, "hi", "")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if msg.ID == 0 {
			t.Fatal("message was not assigned an id")
		}

		for _, userID := range []uint{1, 2, 3} {
			if got := len(deliverer.pushesTo(userID, domain.FrameTypeNewMessage)); got != 1 {
				t.Errorf("user %d received %d new_message pushes, want 1", userID, got)
			}
			if got := len(deliverer.pushesTo(userID, domain.FrameTypeConversationUpdate)); got != 1 {
				t.Errorf("user %d received %d conversation_update pushes, want 1", userID, got)
			}
		}
	})

	t.Run("seen rows exclude the sender", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2, 3)
		svc := NewChatService(repo, newFakeSocialRepo(), &fakeDeliverer{})

		msg, err := svc.SendMessage(ctx, 42, 2, "hi", "")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}

		rows := repo.seenStatusRows[msg.ID]
		if len(rows) != 2 {
			t.Fatalf("got %d seen rows, want 2: %v", len(rows), rows)
		}
		for _, id := range rows {
			if id == 2 {
				t.Error("seen row created for the sender")
			}
		}
	})

	t.Run("persistence failure skips fanout entirely", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2)
		repo.createMsgErr = errors.New("insert failed")
		deliverer := &fakeDeliverer{}
		svc := NewChatService(repo, newFakeSocialRepo(), deliverer)

		if _, err := svc.SendMessage(ctx, 42, 1, "hi", ""); err == nil {
			t.Fatal("expected error")
		}
		if len(deliverer.pushes) != 0 {
			t.Fatalf("fanout happened despite persistence failure: %v", deliverer.pushes)
		}
	})

	t.Run("message ids strictly increase", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2)
		svc := NewChatService(repo, newFakeSocialRepo(), &fakeDeliverer{})

		m1, err := svc.SendMessage(ctx, 42, 1, "first", "")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		m2, err := svc.SendMessage(ctx, 42, 1, "second", "")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if m1.ID >= m2.ID {
			t.Fatalf("ids not strictly increasing: %d then %d", m1.ID, m2.ID)
		}
	})
}

func TestMarkSeen(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies other participants only", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2, 3)
		deliverer := &fakeDeliverer{}
		svc := NewChatService(repo, newFakeSocialRepo(), deliverer)

		if err := svc.MarkSeen(ctx, 42, 2, []uint{501}); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}

		if got := len(deliverer.pushesTo(2, domain.FrameTypeMessageSeen)); got != 0 {
			t.Errorf("reader received %d message_seen pushes, want 0", got)
		}
		for _, userID := range []uint{1, 3} {
			pushes := deliverer.pushesTo(userID, domain.FrameTypeMessageSeen)
			if len(pushes) != 1 {
				t.Fatalf("user %d received %d message_seen pushes, want 1", userID, len(pushes))
			}
			data, ok := pushes[0].data.(domain.MessageSeenData)
			if !ok {
				t.Fatalf("unexpected payload type %T", pushes[0].data)
			}
			if data.SeenUser != 2 || data.ConversationID != 42 {
				t.Errorf("unexpected payload: %+v", data)
			}
		}
		if repo.markedReader != 2 {
			t.Errorf("seen state updated for reader %d, want 2", repo.markedReader)
		}
	})

	t.Run("empty id list is a no-op", func(t *testing.T) {
		repo := newFakeChatRepo(1, 2)
		deliverer := &fakeDeliverer{}
		svc := NewChatService(repo, newFakeSocialRepo(), deliverer)

		if err := svc.MarkSeen(ctx, 42, 2, nil); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}
		if len(deliverer.pushes) != 0 || repo.markedSeen != nil {
			t.Error("no-op mark_seen touched state")
		}
	})
}

func TestCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("deduplicates members", func(t *testing.T) {
		repo := newFakeChatRepo()
		svc := NewChatService(repo, newFakeSocialRepo(), &fakeDeliverer{})

		if _, err := svc.CreateConversation(ctx, 1, []uint{2, 2, 1, 3}, ""); err != nil {
			t.Fatalf("CreateConversation: %v", err)
		}
		if len(repo.members) != 3 {
			t.Fatalf("got members %v, want 3 distinct", repo.members)
		}
	})

	t.Run("rejects a single participant", func(t *testing.T) {
		svc := NewChatService(newFakeChatRepo(), newFakeSocialRepo(), &fakeDeliverer{})
		if _, err := svc.CreateConversation(ctx, 1, []uint{1}, ""); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestConversationsDefaultTitle(t *testing.T) {
	repo := newFakeChatRepo()
	repo.summaries = []domain.ConversationSummary{
		{ID: 1, Title: "", MemberIDs: []uint{1, 2}},
		{ID: 2, Title: "book club", MemberIDs: []uint{1, 3}},
	}
	social := newFakeSocialRepo()
	social.usernames[1] = "alice"
	social.usernames[2] = "bob"

	svc := NewChatService(repo, social, &fakeDeliverer{})
	summaries, err := svc.Conversations(context.Background(), 1)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}

	if summaries[0].Title != "alice, bob" {
		t.Errorf("default title = %q, want %q", summaries[0].Title, "alice, bob")
	}
	if summaries[1].Title != "book club" {
		t.Errorf("explicit title overwritten: %q", summaries[1].Title)
	}
}

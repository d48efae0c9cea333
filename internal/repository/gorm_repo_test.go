package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

var testDBSeq atomic.Int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Conversation{},
		&domain.ConversationMember{},
		&domain.Message{},
		&domain.SeenStatus{},
		&domain.Friendship{},
		&domain.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedConversation(t *testing.T, repo *GormChatRepository, members ...uint) *domain.Conversation {
	t.Helper()
	conv, err := repo.CreateConversation(context.Background(), "", members)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conv
}

func sendMessage(t *testing.T, repo *GormChatRepository, convID, sender uint, content string, at time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{ConversationID: convID, SenderID: sender, Content: content, CreatedAt: at}
	if err := repo.CreateMessage(context.Background(), msg); err != nil {
		t.Fatalf("send message: %v", err)
	}
	return msg
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ids strictly increase", func(t *testing.T) {
		repo := NewGormChatRepository(testDB(t))
		conv := seedConversation(t, repo, 1, 2)

		var prev uint
		for i := 0; i < 5; i++ {
			msg := sendMessage(t, repo, conv.ID, 1, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute))
			if msg.ID <= prev {
				t.Fatalf("id %d not greater than previous %d", msg.ID, prev)
			}
			prev = msg.ID
		}
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		repo := NewGormChatRepository(testDB(t))
		conv := seedConversation(t, repo, 1, 2)

		msg := &domain.Message{ConversationID: conv.ID, SenderID: 99, Content: "intruding"}
		if err := repo.CreateMessage(ctx, msg); !errors.Is(err, ErrNotParticipant) {
			t.Fatalf("err = %v, want ErrNotParticipant", err)
		}
	})

	t.Run("bumps last activity", func(t *testing.T) {
		repo := NewGormChatRepository(testDB(t))
		conv := seedConversation(t, repo, 1, 2)

		at := base.Add(24 * time.Hour)
		sendMessage(t, repo, conv.ID, 1, "hi", at)

		var got domain.Conversation
		if err := repo.db.First(&got, conv.ID).Error; err != nil {
			t.Fatalf("reload conversation: %v", err)
		}
		if !got.LastActivity.Equal(at) {
			t.Fatalf("last activity = %v, want %v", got.LastActivity, at)
		}
	})
}

func TestConversationMembers(t *testing.T) {
	repo := NewGormChatRepository(testDB(t))
	conv := seedConversation(t, repo, 3, 1, 2)

	members, err := repo.ConversationMembers(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("ConversationMembers: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}

	if _, err := repo.ConversationMembers(context.Background(), 9999); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestMessagesPagination(t *testing.T) {
	repo := NewGormChatRepository(testDB(t))
	conv := seedConversation(t, repo, 1, 2)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var all []*domain.Message
	for i := 0; i < 10; i++ {
		all = append(all, sendMessage(t, repo, conv.ID, 1, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	t.Run("most recent window reads oldest to newest", func(t *testing.T) {
		page, err := repo.Messages(ctx, conv.ID, 4, 0, nil)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(page) != 4 {
			t.Fatalf("got %d messages, want 4", len(page))
		}
		for i := 1; i < len(page); i++ {
			if page[i-1].ID >= page[i].ID {
				t.Fatalf("batch not oldest to newest: %d then %d", page[i-1].ID, page[i].ID)
			}
		}
		if page[3].ID != all[9].ID {
			t.Fatalf("window does not end at the newest message: %d", page[3].ID)
		}
	})

	t.Run("before cursor returns the older window", func(t *testing.T) {
		cursor := all[6].CreatedAt
		page, err := repo.Messages(ctx, conv.ID, 4, 0, &cursor)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(page) != 4 {
			t.Fatalf("got %d messages, want 4", len(page))
		}
		for _, m := range page {
			if !m.CreatedAt.Before(cursor) {
				t.Fatalf("message %d not older than cursor", m.ID)
			}
		}
		if page[3].ID != all[5].ID {
			t.Fatalf("older window does not end just before the cursor: %d", page[3].ID)
		}
	})

	t.Run("short page signals exhaustion", func(t *testing.T) {
		cursor := all[2].CreatedAt
		page, err := repo.Messages(ctx, conv.ID, 10, 0, &cursor)
		if err != nil {
			t.Fatalf("Messages: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("got %d messages older than the third, want 2", len(page))
		}
	})
}

func TestSeenStatus(t *testing.T) {
	repo := NewGormChatRepository(testDB(t))
	conv := seedConversation(t, repo, 1, 2, 3)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := sendMessage(t, repo, conv.ID, 1, "hi", base)
	if err := repo.CreateSeenStatuses(ctx, msg.ID, []uint{2, 3}); err != nil {
		t.Fatalf("CreateSeenStatuses: %v", err)
	}

	t.Run("unread counts exclude the sender", func(t *testing.T) {
		for userID, want := range map[uint]int64{1: 0, 2: 1, 3: 1} {
			summaries, err := repo.UserConversations(ctx, userID)
			if err != nil {
				t.Fatalf("UserConversations(%d): %v", userID, err)
			}
			if got := summaries[0].UnreadCount; got != want {
				t.Errorf("user %d unread = %d, want %d", userID, got, want)
			}
		}
	})

	t.Run("mark seen flips the reader's rows only", func(t *testing.T) {
		at := base.Add(time.Minute)
		if err := repo.MarkSeen(ctx, 2, []uint{msg.ID}, at); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}

		var rows []domain.SeenStatus
		if err := repo.db.Where("message_id = ?", msg.ID).Order("user_id").Find(&rows).Error; err != nil {
			t.Fatalf("load rows: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
		if !rows[0].Seen || rows[0].SeenAt == nil {
			t.Error("reader's row not flipped")
		}
		if rows[1].Seen {
			t.Error("other recipient's row flipped")
		}

		summaries, err := repo.UserConversations(ctx, 2)
		if err != nil {
			t.Fatalf("UserConversations: %v", err)
		}
		if got := summaries[0].UnreadCount; got != 0 {
			t.Errorf("reader unread = %d, want 0", got)
		}
	})
}

func TestNotificationRepository(t *testing.T) {
	db := testDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	mine := &domain.Notification{Type: domain.NotifFriendRequest, RecipientID: 1, Payload: []byte(`{"actor_id":2}`)}
	theirs := &domain.Notification{Type: domain.NotifReaction, RecipientID: 2, Payload: []byte(`{"actor_id":1}`)}
	for _, n := range []*domain.Notification{mine, theirs} {
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	t.Run("mark read is scoped to the recipient", func(t *testing.T) {
		if err := repo.MarkRead(ctx, 1, []uint{mine.ID, theirs.ID}); err != nil {
			t.Fatalf("MarkRead: %v", err)
		}

		got, err := repo.ForRecipient(ctx, 2)
		if err != nil {
			t.Fatalf("ForRecipient: %v", err)
		}
		if len(got) != 1 || got[0].Read {
			t.Fatalf("another user's notification was marked read: %+v", got)
		}
	})

	t.Run("delete is scoped to the recipient", func(t *testing.T) {
		if err := repo.Delete(ctx, 1, []uint{mine.ID, theirs.ID}); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if got, _ := repo.ForRecipient(ctx, 1); len(got) != 0 {
			t.Fatalf("own notification survived delete: %+v", got)
		}
		if got, _ := repo.ForRecipient(ctx, 2); len(got) != 1 {
			t.Fatal("another user's notification was deleted")
		}
	})
}

func TestSocialRepository(t *testing.T) {
	db := testDB(t)
	repo := NewGormSocialRepository(db)
	ctx := context.Background()

	users := []domain.User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}, {ID: 3, Username: "carol"}}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	// Symmetric friendship is two rows; 1-3 is one-directional on purpose.
	friendships := []domain.Friendship{{UserID: 1, FriendID: 2}, {UserID: 2, FriendID: 1}, {UserID: 3, FriendID: 1}}
	if err := db.Create(&friendships).Error; err != nil {
		t.Fatalf("seed friendships: %v", err)
	}

	t.Run("friend ids follow the row direction", func(t *testing.T) {
		ids, err := repo.FriendIDs(ctx, 1)
		if err != nil {
			t.Fatalf("FriendIDs: %v", err)
		}
		if len(ids) != 1 || ids[0] != 2 {
			t.Fatalf("friends of 1 = %v, want [2]", ids)
		}
	})

	t.Run("usernames by ids", func(t *testing.T) {
		names, err := repo.UsernamesByIDs(ctx, []uint{1, 3, 99})
		if err != nil {
			t.Fatalf("UsernamesByIDs: %v", err)
		}
		if len(names) != 2 || names[1] != "alice" || names[3] != "carol" {
			t.Fatalf("names = %v", names)
		}
	})

	t.Run("touch last online", func(t *testing.T) {
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if err := repo.TouchLastOnline(ctx, 2, at); err != nil {
			t.Fatalf("TouchLastOnline: %v", err)
		}

		var u domain.User
		if err := db.First(&u, 2).Error; err != nil {
			t.Fatalf("reload user: %v", err)
		}
		if u.LastOnline == nil || !u.LastOnline.Equal(at) {
			t.Fatalf("last_online = %v, want %v", u.LastOnline, at)
		}
	})
}

package clientstate

import (
	"testing"
	"time"
)

func msg(id, sender uint, at time.Time) ThreadMessage {
	return ThreadMessage{ID: id, ConversationID: 42, SenderID: sender, CreatedAt: at}
}

func TestThreadMerge(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("overlapping pages deduplicate by id", func(t *testing.T) {
		th := NewThread(42, 1)

		older := []ThreadMessage{msg(10, 2, base), msg(11, 1, base.Add(time.Minute)), msg(12, 2, base.Add(2*time.Minute))}
		newer := []ThreadMessage{msg(12, 2, base.Add(2*time.Minute)), msg(13, 1, base.Add(3*time.Minute))}

		th.Merge(newer)
		if inserted := th.Merge(older); inserted != 3 {
			t.Fatalf("inserted %d from overlapping page, want 3", inserted)
		}

		got := th.Messages()
		if len(got) != 4 {
			t.Fatalf("held %d messages, want 4", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].ID >= got[i].ID {
				t.Fatalf("ids not strictly increasing: %d then %d", got[i-1].ID, got[i].ID)
			}
		}
	})

	t.Run("pushed message racing a fetch inserts once", func(t *testing.T) {
		th := NewThread(42, 1)
		th.Merge([]ThreadMessage{msg(501, 2, base)})
		th.Merge([]ThreadMessage{msg(500, 1, base.Add(-time.Minute)), msg(501, 2, base)})

		if th.Len() != 2 {
			t.Fatalf("held %d messages, want 2", th.Len())
		}
	})
}

func TestThreadApplySeen(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("idempotent set union", func(t *testing.T) {
		th := NewThread(42, 1)
		th.Merge([]ThreadMessage{msg(10, 2, base), msg(11, 2, base.Add(time.Minute))})

		th.ApplySeen(1, []uint{10, 11})
		th.ApplySeen(1, []uint{10, 11})

		for _, m := range th.Messages() {
			if len(m.SeenBy) != 1 || !m.SeenBy[1] {
				t.Fatalf("message %d seen-by = %v, want exactly {1}", m.ID, m.SeenBy)
			}
		}
	})

	t.Run("self-sent messages are untouched", func(t *testing.T) {
		th := NewThread(42, 1)
		th.Merge([]ThreadMessage{msg(10, 1, base)})

		th.ApplySeen(2, []uint{10})
		if len(th.Messages()[0].SeenBy) != 0 {
			t.Fatal("seen entry recorded on a self-sent message")
		}
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		th := NewThread(42, 1)
		th.Merge([]ThreadMessage{msg(10, 2, base)})
		th.ApplySeen(1, []uint{99})
		if len(th.Messages()[0].SeenBy) != 0 {
			t.Fatal("seen entry recorded for an unheld message")
		}
	})
}

func TestLastSeenAnchor(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	th := NewThread(42, 1)
	th.Merge([]ThreadMessage{
		msg(10, 2, base),                    // other's, seen below
		msg(11, 1, base.Add(time.Minute)),   // self-sent
		msg(12, 2, base.Add(2*time.Minute)), // other's, unseen
	})
	th.ApplySeen(1, []uint{10})

	if got := th.LastSeenAnchor(); got != 11 {
		t.Fatalf("anchor = %d, want 11 (newest self-sent or viewer-seen)", got)
	}

	th.ApplySeen(1, []uint{12})
	if got := th.LastSeenAnchor(); got != 12 {
		t.Fatalf("anchor = %d, want 12 after viewer saw it", got)
	}
}

func TestLastSeenAnchorEmpty(t *testing.T) {
	th := NewThread(42, 1)
	if got := th.LastSeenAnchor(); got != 0 {
		t.Fatalf("anchor = %d on empty thread, want 0", got)
	}
}

// Package clientstate holds the client-side reducers that fold pushed
// events and fetched history pages into local view state: message threads,
// conversation lists, and notification badge counts. All reducers are
// idempotent under duplicate delivery, since the push channel is
// at-least-once across reconnects.
package clientstate

import (
	"sort"
	"time"
)

// ThreadMessage is one message as held in a local thread.
type ThreadMessage struct {
	ID             uint
	ConversationID uint
	SenderID       uint
	Content        string
	MediaURL       string
	CreatedAt      time.Time

	// SeenBy is the set of readers known to have seen the message,
	// keyed by user id.
	SeenBy map[uint]bool
}

// Thread is the locally held message list of one conversation. Messages
// are kept in strictly increasing id order; merges de-duplicate by id so
// overlapping history pages and racing pushes cannot double-insert.
type Thread struct {
	ConversationID uint
	ViewerID       uint

	byID  map[uint]*ThreadMessage
	order []uint
}

func NewThread(conversationID, viewerID uint) *Thread {
	return &Thread{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		byID:           make(map[uint]*ThreadMessage),
	}
}

// Merge folds a batch of messages (a history page or a single pushed
// message) into the thread. Already-held ids are skipped; the resulting
// order is strictly increasing by id. It returns the number of messages
// actually inserted.
func (t *Thread) Merge(batch []ThreadMessage) int {
	inserted := 0
	for i := range batch {
		m := batch[i]
		if _, ok := t.byID[m.ID]; ok {
			continue
		}
		if m.SeenBy == nil {
			m.SeenBy = make(map[uint]bool)
		}
		t.byID[m.ID] = &m
		t.order = append(t.order, m.ID)
		inserted++
	}
	if inserted > 0 {
		sort.Slice(t.order, func(i, j int) bool { return t.order[i] < t.order[j] })
	}
	return inserted
}

// Messages returns the thread's messages in id order.
func (t *Thread) Messages() []ThreadMessage {
	out := make([]ThreadMessage, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.byID[id])
	}
	return out
}

// Len returns the number of held messages.
func (t *Thread) Len() int {
	return len(t.order)
}

// ApplySeen folds a seen receipt into the thread: for each affected
// message not sent by the viewer, the reader is added to its seen-by set.
// Applying the same receipt twice leaves the state unchanged.
func (t *Thread) ApplySeen(seenUser uint, messageIDs []uint) {
	for _, id := range messageIDs {
		m, ok := t.byID[id]
		if !ok || m.SenderID == t.ViewerID {
			continue
		}
		m.SeenBy[seenUser] = true
	}
}

// LastSeenAnchor returns the id of the newest message that is either
// self-sent or carries a seen entry for the viewer. It anchors the initial
// scroll position when the thread is reopened; zero means no anchor.
func (t *Thread) LastSeenAnchor() uint {
	var anchor uint
	var anchorAt time.Time
	for _, id := range t.order {
		m := t.byID[id]
		if m.SenderID != t.ViewerID && !m.SeenBy[t.ViewerID] {
			continue
		}
		if anchor == 0 || m.CreatedAt.After(anchorAt) || (m.CreatedAt.Equal(anchorAt) && m.ID > anchor) {
			anchor = m.ID
			anchorAt = m.CreatedAt
		}
	}
	return anchor
}

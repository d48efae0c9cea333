package clientstate

import (
	"sort"
	"time"
)

// ConversationEntry is one row of the local conversation list.
type ConversationEntry struct {
	ConversationID uint
	Title          string
	LastActivity   time.Time
	Unread         int

	// unreadIDs tracks which message ids make up Unread, so duplicate
	// pushes and seen receipts cannot skew the count.
	unreadIDs map[uint]bool
	// selfSent remembers which held message ids the viewer sent, used
	// when folding in seen receipts.
	selfSent map[uint]bool
}

// ConversationList folds new_message, message_seen and conversation_update
// events into the sidebar's conversation rows.
type ConversationList struct {
	ViewerID uint

	byID map[uint]*ConversationEntry
}

func NewConversationList(viewerID uint) *ConversationList {
	return &ConversationList{
		ViewerID: viewerID,
		byID:     make(map[uint]*ConversationEntry),
	}
}

func (cl *ConversationList) entry(conversationID uint) *ConversationEntry {
	e, ok := cl.byID[conversationID]
	if !ok {
		e = &ConversationEntry{
			ConversationID: conversationID,
			unreadIDs:      make(map[uint]bool),
			selfSent:       make(map[uint]bool),
		}
		cl.byID[conversationID] = e
	}
	return e
}

// Seed installs a fetched conversation summary, keeping any locally
// accumulated unread ids.
func (cl *ConversationList) Seed(conversationID uint, title string, lastActivity time.Time, unread int) {
	e := cl.entry(conversationID)
	e.Title = title
	if lastActivity.After(e.LastActivity) {
		e.LastActivity = lastActivity
	}
	if unread > e.Unread {
		e.Unread = unread
	}
}

// ApplyNewMessage bumps the conversation's activity and, for messages the
// viewer did not send, its unread count. Reapplying the same message id
// changes nothing.
func (cl *ConversationList) ApplyNewMessage(conversationID, messageID, senderID uint, at time.Time) {
	e := cl.entry(conversationID)
	if at.After(e.LastActivity) {
		e.LastActivity = at
	}
	if senderID == cl.ViewerID {
		e.selfSent[messageID] = true
		return
	}
	if !e.unreadIDs[messageID] {
		e.unreadIDs[messageID] = true
		e.Unread++
	}
}

// ApplySeen folds in a seen receipt. When another participant reads, the
// viewer's own unread count only shrinks for messages the viewer sent;
// when the viewer is the reader, the listed messages leave the unread set.
func (cl *ConversationList) ApplySeen(conversationID, seenUser uint, messageIDs []uint) {
	e, ok := cl.byID[conversationID]
	if !ok {
		return
	}
	for _, id := range messageIDs {
		if seenUser == cl.ViewerID {
			if e.unreadIDs[id] {
				delete(e.unreadIDs, id)
				e.Unread--
			}
			continue
		}
		if e.selfSent[id] && e.unreadIDs[id] {
			delete(e.unreadIDs, id)
			e.Unread--
		}
	}
}

// ApplyUpdate folds in a pushed conversation_update.
func (cl *ConversationList) ApplyUpdate(conversationID uint, title string, lastActivity time.Time) {
	e := cl.entry(conversationID)
	if title != "" {
		e.Title = title
	}
	if lastActivity.After(e.LastActivity) {
		e.LastActivity = lastActivity
	}
}

// Entries returns the rows ordered by most recent activity first.
func (cl *ConversationList) Entries() []ConversationEntry {
	out := make([]ConversationEntry, 0, len(cl.byID))
	for _, e := range cl.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ConversationID < out[j].ConversationID
	})
	return out
}

// Unread returns the unread count for one conversation.
func (cl *ConversationList) Unread(conversationID uint) int {
	if e, ok := cl.byID[conversationID]; ok {
		return e.Unread
	}
	return 0
}

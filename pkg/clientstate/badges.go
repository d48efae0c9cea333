package clientstate

// BadgeCounts is the derived navbar badge state.
type BadgeCounts struct {
	UnseenPosts    int
	UnreadMessages int
	// Alerts aggregates pending friend requests, event invites and
	// unread general notifications.
	Alerts int
}

// Badges accumulates unread categories and recomputes badge counts as a
// pure function of the accumulated state. Reapplying an event the state
// already reflects changes nothing.
type Badges struct {
	unseenPosts    map[uint]bool // post id
	unreadMessages map[uint]bool // message id
	friendRequests map[uint]bool // requester id
	eventInvites   map[uint]bool // event id
	generalUnread  map[uint]bool // notification id
}

func NewBadges() *Badges {
	return &Badges{
		unseenPosts:    make(map[uint]bool),
		unreadMessages: make(map[uint]bool),
		friendRequests: make(map[uint]bool),
		eventInvites:   make(map[uint]bool),
		generalUnread:  make(map[uint]bool),
	}
}

// ApplyNewPost records an unseen post.
func (b *Badges) ApplyNewPost(postID uint) {
	b.unseenPosts[postID] = true
}

// ApplyNewMessage records an unread message.
func (b *Badges) ApplyNewMessage(messageID uint) {
	b.unreadMessages[messageID] = true
}

// ApplyMessagesSeen clears read messages from the unread set.
func (b *Badges) ApplyMessagesSeen(messageIDs []uint) {
	for _, id := range messageIDs {
		delete(b.unreadMessages, id)
	}
}

// ApplyFriendRequest records a pending request keyed by requester, so a
// redelivered request from the same sender cannot double count.
func (b *Badges) ApplyFriendRequest(requesterID uint) {
	b.friendRequests[requesterID] = true
}

// ResolveFriendRequest drops a request once accepted or declined.
func (b *Badges) ResolveFriendRequest(requesterID uint) {
	delete(b.friendRequests, requesterID)
}

// ApplyEventInvite records a pending invite keyed by event.
func (b *Badges) ApplyEventInvite(eventID uint) {
	b.eventInvites[eventID] = true
}

// ApplyNotification records an unread general notification.
func (b *Badges) ApplyNotification(notificationID uint) {
	b.generalUnread[notificationID] = true
}

// ApplyNotificationsRead clears read general notifications.
func (b *Badges) ApplyNotificationsRead(notificationIDs []uint) {
	for _, id := range notificationIDs {
		delete(b.generalUnread, id)
	}
}

// ClearPosts empties the unseen post set, e.g. when the feed is opened.
func (b *Badges) ClearPosts() {
	b.unseenPosts = make(map[uint]bool)
}

// Counts recomputes the badge numbers from the accumulated state.
func (b *Badges) Counts() BadgeCounts {
	return BadgeCounts{
		UnseenPosts:    len(b.unseenPosts),
		UnreadMessages: len(b.unreadMessages),
		Alerts:         len(b.friendRequests) + len(b.eventInvites) + len(b.generalUnread),
	}
}

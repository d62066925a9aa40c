package entities

import "time"

// LikeableCounter is the viewer's membership flag plus the authoritative
// member count for one entity.
type LikeableCounter struct {
	EntityID   string
	Liked      bool
	Count      int
	CountStale bool
	Toggling   bool
}

type Post struct {
	PostID    string
	AuthorID  string
	Body      string
	Pinned    bool
	PollID    string
	CreatedAt time.Time
}

type FeedItem struct {
	Post  Post
	Likes LikeableCounter
	Poll  *PollView
}

type TabCount struct {
	Tab   NotificationTab
	Count int
}

// View is the ordered state a presentation layer renders.
type View struct {
	Feed          []FeedItem
	ActiveTab     NotificationTab
	Notifications []Notification
	UnreadCount   int
	TabCounts     []TabCount
	ComposedAt    time.Time
}

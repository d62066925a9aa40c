package v1

// PollChanged is the payload of engagement.poll.changed.
type PollChanged struct {
	PollID     string   `json:"poll_id"`
	Reason     string   `json:"reason"`
	Selections []string `json:"selections,omitempty"`
	TotalVotes *int     `json:"total_votes,omitempty"`
}

// MembershipChanged is the payload of engagement.membership.changed.
type MembershipChanged struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
	Liked    bool   `json:"liked"`
	Count    int    `json:"count"`
	Conflict bool   `json:"conflict,omitempty"`
}

// NotificationsChanged is the payload of engagement.notifications.changed.
type NotificationsChanged struct {
	ViewerID    string `json:"viewer_id"`
	Reason      string `json:"reason"`
	UnreadCount int    `json:"unread_count"`
	Generation  uint64 `json:"generation"`
}

package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SelectOptionRequest struct {
	OptionID string `json:"option_id"`
}

type PollOptionResponse struct {
	OptionID   string `json:"option_id"`
	Label      string `json:"label"`
	VoteCount  int    `json:"vote_count"`
	Percentage int    `json:"percentage"`
	Selected   bool   `json:"selected"`
	Submitted  bool   `json:"submitted"`
}

type PollResponse struct {
	PollID        string               `json:"poll_id"`
	PostID        string               `json:"post_id,omitempty"`
	Question      string               `json:"question"`
	AllowMultiple bool                 `json:"allow_multiple"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	State         string               `json:"state"`
	TotalVotes    int                  `json:"total_votes"`
	Options       []PollOptionResponse `json:"options"`
	Pending       []string             `json:"pending"`
	Submitted     []string             `json:"submitted"`
	ShowResults   bool                 `json:"show_results"`
	CanRevert     bool                 `json:"can_revert"`
	Submitting    bool                 `json:"submitting"`
	TallyStale    bool                 `json:"tally_stale"`
}

type LikeResponse struct {
	EntityID   string `json:"entity_id"`
	Liked      bool   `json:"liked"`
	Count      int    `json:"count"`
	CountStale bool   `json:"count_stale"`
	Toggling   bool   `json:"toggling"`
}

type NotificationResponse struct {
	NotificationID string    `json:"notification_id"`
	Type           string    `json:"type"`
	TypeLabel      string    `json:"type_label"`
	Category       string    `json:"category"`
	Icon           string    `json:"icon"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
	Priority       string    `json:"priority"`
	ActorID        string    `json:"actor_id,omitempty"`
	PostID         string    `json:"post_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	EventID        string    `json:"event_id,omitempty"`
}

type TabCountResponse struct {
	Tab   string `json:"tab"`
	Count int    `json:"count"`
}

type NotificationListResponse struct {
	Tab         string                 `json:"tab"`
	Items       []NotificationResponse `json:"items"`
	UnreadCount int                    `json:"unread_count"`
	TabCounts   []TabCountResponse     `json:"tab_counts"`
}

type NavigationResponse struct {
	Kind     string `json:"kind"`
	TargetID string `json:"target_id,omitempty"`
}

type PostResponse struct {
	PostID    string        `json:"post_id"`
	AuthorID  string        `json:"author_id"`
	Body      string        `json:"body"`
	Pinned    bool          `json:"pinned"`
	CreatedAt time.Time     `json:"created_at"`
	Likes     LikeResponse  `json:"likes"`
	Poll      *PollResponse `json:"poll,omitempty"`
}

type FeedResponse struct {
	Items         []PostResponse         `json:"items"`
	Tab           string                 `json:"tab"`
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
	TabCounts     []TabCountResponse     `json:"tab_counts"`
	ComposedAt    time.Time              `json:"composed_at"`
}

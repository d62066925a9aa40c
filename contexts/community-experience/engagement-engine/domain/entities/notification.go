package entities

import (
	"strings"
	"time"
)

type NotificationType string

const (
	NotificationTypePostLiked            NotificationType = "post_liked"
	NotificationTypePostCommented        NotificationType = "post_commented"
	NotificationTypePostCommentReply     NotificationType = "post_comment_reply"
	NotificationTypePostCreated          NotificationType = "post_created"
	NotificationTypeOrganizationApproved NotificationType = "organization_approved"
	NotificationTypeOrganizationRejected NotificationType = "organization_rejected"
	NotificationTypeMemberJoined         NotificationType = "member_joined"
	NotificationTypeAnnouncementCreated  NotificationType = "announcement_created"
	NotificationTypeEventCreated         NotificationType = "event_created"
	NotificationTypeEventReminder        NotificationType = "event_reminder"
	NotificationTypePollClosed           NotificationType = "poll_closed"
	NotificationTypeSystem               NotificationType = "system"
)

// NotificationTypes lists every known type in display order.
var NotificationTypes = []NotificationType{
	NotificationTypePostLiked,
	NotificationTypePostCommented,
	NotificationTypePostCommentReply,
	NotificationTypePostCreated,
	NotificationTypeOrganizationApproved,
	NotificationTypeOrganizationRejected,
	NotificationTypeMemberJoined,
	NotificationTypeAnnouncementCreated,
	NotificationTypeEventCreated,
	NotificationTypeEventReminder,
	NotificationTypePollClosed,
	NotificationTypeSystem,
}

// ParseNotificationType accepts only known types.
func ParseNotificationType(raw string) (NotificationType, bool) {
	candidate := NotificationType(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, true
	}
	return "", false
}

func (t NotificationType) Valid() bool {
	_, ok := t.category()
	return ok
}

type NotificationCategory string

const (
	NotificationCategoryPosts         NotificationCategory = "posts"
	NotificationCategoryOrganizations NotificationCategory = "organizations"
	NotificationCategoryEvents        NotificationCategory = "events"
	NotificationCategorySystem        NotificationCategory = "system"
)

// Category maps a type to its filter group. Unknown types report system.
func (t NotificationType) Category() NotificationCategory {
	category, ok := t.category()
	if !ok {
		return NotificationCategorySystem
	}
	return category
}

func (t NotificationType) category() (NotificationCategory, bool) {
	switch t {
	case NotificationTypePostLiked,
		NotificationTypePostCommented,
		NotificationTypePostCommentReply,
		NotificationTypePostCreated:
		return NotificationCategoryPosts, true
	case NotificationTypeOrganizationApproved,
		NotificationTypeOrganizationRejected,
		NotificationTypeMemberJoined,
		NotificationTypeAnnouncementCreated:
		return NotificationCategoryOrganizations, true
	case NotificationTypeEventCreated,
		NotificationTypeEventReminder:
		return NotificationCategoryEvents, true
	case NotificationTypePollClosed,
		NotificationTypeSystem:
		return NotificationCategorySystem, true
	}
	return "", false
}

// Icon names the glyph a client renders for the type.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationTypePostLiked:
		return "heart"
	case NotificationTypePostCommented:
		return "chatbubble"
	case NotificationTypePostCommentReply:
		return "chatbubbles"
	case NotificationTypePostCreated:
		return "document-text"
	case NotificationTypeOrganizationApproved:
		return "checkmark-circle"
	case NotificationTypeOrganizationRejected:
		return "close-circle"
	case NotificationTypeMemberJoined:
		return "person-add"
	case NotificationTypeAnnouncementCreated:
		return "megaphone"
	case NotificationTypeEventCreated:
		return "calendar"
	case NotificationTypeEventReminder:
		return "alarm"
	case NotificationTypePollClosed:
		return "stats-chart"
	case NotificationTypeSystem:
		return "information-circle"
	}
	return "notifications"
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority falls back to normal for empty or unknown values.
func ParsePriority(raw string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityUrgent:
		return PriorityUrgent
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Rank orders priorities, lower is more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

type Notification struct {
	NotificationID string
	Type           NotificationType
	Title          string
	Message        string
	CreatedAt      time.Time
	IsRead         bool
	Priority       Priority
	ActorID        string
	PostID         string
	OrganizationID string
	EventID        string
}

type NotificationTab string

const (
	NotificationTabAll           NotificationTab = "all"
	NotificationTabUnread        NotificationTab = "unread"
	NotificationTabPosts         NotificationTab = "posts"
	NotificationTabOrganizations NotificationTab = "organizations"
)

var NotificationTabs = []NotificationTab{
	NotificationTabAll,
	NotificationTabUnread,
	NotificationTabPosts,
	NotificationTabOrganizations,
}

// ParseNotificationTab treats an empty value as all.
func ParseNotificationTab(raw string) (NotificationTab, bool) {
	value := NotificationTab(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return NotificationTabAll, true
	}
	for _, tab := range NotificationTabs {
		if tab == value {
			return tab, true
		}
	}
	return "", false
}

type NavigationKind string

const (
	NavigationKindNone         NavigationKind = "none"
	NavigationKindPost         NavigationKind = "post"
	NavigationKindOrganization NavigationKind = "organization"
	NavigationKindEvent        NavigationKind = "event"
)

type NavigationTarget struct {
	Kind     NavigationKind
	TargetID string
}

type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "pending"
	ReceiptStatusFailed    ReceiptStatus = "failed"
	ReceiptStatusConfirmed ReceiptStatus = "confirmed"
)

// ReadReceipt tracks a background mark-as-read started by a press.
type ReadReceipt struct {
	NotificationID string
	Status         ReceiptStatus
	Attempts       int
	LastError      string
	UpdatedAt      time.Time
}

type NotificationSnapshot struct {
	Items       []Notification
	UnreadCount int
	Generation  uint64
}

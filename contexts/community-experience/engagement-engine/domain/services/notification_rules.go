package services

import (
	"sort"
	"strings"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
)

// MatchesTab is the membership rule behind every notification tab.
func MatchesTab(item entities.Notification, tab entities.NotificationTab) bool {
	switch tab {
	case entities.NotificationTabAll:
		return true
	case entities.NotificationTabUnread:
		return !item.IsRead
	case entities.NotificationTabPosts:
		return item.Type.Category() == entities.NotificationCategoryPosts
	case entities.NotificationTabOrganizations:
		return item.Type.Category() == entities.NotificationCategoryOrganizations
	}
	return false
}

// FilterByTab keeps the input order and never mutates items.
func FilterByTab(items []entities.Notification, tab entities.NotificationTab) []entities.Notification {
	out := make([]entities.Notification, 0, len(items))
	for _, item := range items {
		if MatchesTab(item, tab) {
			out = append(out, item)
		}
	}
	return out
}

func CountUnread(items []entities.Notification) int {
	count := 0
	for _, item := range items {
		if !item.IsRead {
			count++
		}
	}
	return count
}

// ResolveNavigationTarget picks the first reference in post, organization,
// event order. Later references are ignored.
func ResolveNavigationTarget(item entities.Notification) entities.NavigationTarget {
	if id := strings.TrimSpace(item.PostID); id != "" {
		return entities.NavigationTarget{Kind: entities.NavigationKindPost, TargetID: id}
	}
	if id := strings.TrimSpace(item.OrganizationID); id != "" {
		return entities.NavigationTarget{Kind: entities.NavigationKindOrganization, TargetID: id}
	}
	if id := strings.TrimSpace(item.EventID); id != "" {
		return entities.NavigationTarget{Kind: entities.NavigationKindEvent, TargetID: id}
	}
	return entities.NavigationTarget{Kind: entities.NavigationKindNone}
}

// SortNotificationsRecentFirst orders newest first; ties break on priority
// then id.
func SortNotificationsRecentFirst(items []entities.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() < items[j].Priority.Rank()
		}
		return items[i].NotificationID < items[j].NotificationID
	})
}

// SortPostsPinnedFirst puts pinned posts ahead, each group newest first.
func SortPostsPinnedFirst(posts []entities.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Pinned != posts[j].Pinned {
			return posts[i].Pinned
		}
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].PostID < posts[j].PostID
	})
}

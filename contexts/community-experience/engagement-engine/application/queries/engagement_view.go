package queries

import (
	"context"
	"strings"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	"engagement/contexts/community-experience/engagement-engine/domain/services"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

// ViewInput is everything the composition reads. It is never mutated.
type ViewInput struct {
	Posts         []entities.Post
	Polls         []entities.PollView
	Likes         []entities.LikeableCounter
	Notifications entities.NotificationSnapshot
	Tab           entities.NotificationTab
	Now           time.Time
}

// Compose derives the ordered presentation lists: pinned posts first, each
// group newest first, joined to their poll and like counter; notifications
// newest first under the active tab.
func Compose(in ViewInput) entities.View {
	tab := in.Tab
	if tab == "" {
		tab = entities.NotificationTabAll
	}

	polls := make(map[string]entities.PollView, len(in.Polls))
	for _, poll := range in.Polls {
		polls[poll.PollID] = poll
	}
	likes := make(map[string]entities.LikeableCounter, len(in.Likes))
	for _, counter := range in.Likes {
		likes[counter.EntityID] = counter
	}

	posts := make([]entities.Post, len(in.Posts))
	copy(posts, in.Posts)
	services.SortPostsPinnedFirst(posts)

	feed := make([]entities.FeedItem, 0, len(posts))
	for _, post := range posts {
		item := entities.FeedItem{Post: post}
		if counter, ok := likes[post.PostID]; ok {
			item.Likes = counter
		} else {
			item.Likes = entities.LikeableCounter{EntityID: post.PostID}
		}
		if pollID := strings.TrimSpace(post.PollID); pollID != "" {
			if poll, ok := polls[pollID]; ok {
				item.Poll = &poll
			}
		}
		feed = append(feed, item)
	}

	visible := services.FilterByTab(in.Notifications.Items, tab)
	services.SortNotificationsRecentFirst(visible)

	counts := make([]entities.TabCount, 0, len(entities.NotificationTabs))
	for _, candidate := range entities.NotificationTabs {
		counts = append(counts, entities.TabCount{
			Tab:   candidate,
			Count: len(services.FilterByTab(in.Notifications.Items, candidate)),
		})
	}

	return entities.View{
		Feed:          feed,
		ActiveTab:     tab,
		Notifications: visible,
		UnreadCount:   in.Notifications.UnreadCount,
		TabCounts:     counts,
		ComposedAt:    in.Now,
	}
}

type PollSource interface {
	Snapshots() []entities.PollView
}

type CounterSource interface {
	Snapshots() []entities.LikeableCounter
}

type NotificationSource interface {
	Snapshot() entities.NotificationSnapshot
}

// Projector composes the current view from live engine snapshots. It holds
// no state of its own.
type Projector struct {
	Posts         ports.PostFeed
	Polls         PollSource
	Likes         CounterSource
	Notifications NotificationSource
	Clock         ports.Clock
	PostLimit     int
}

func (p Projector) Project(ctx context.Context, tab entities.NotificationTab) (entities.View, error) {
	var posts []entities.Post
	if p.Posts != nil {
		limit := p.PostLimit
		if limit <= 0 {
			limit = 50
		}
		items, err := p.Posts.ListPosts(ctx, limit)
		if err != nil {
			return entities.View{}, err
		}
		posts = items
	}
	return Compose(p.input(posts, tab)), nil
}

// ProjectPosts composes against an already-loaded post list.
func (p Projector) ProjectPosts(posts []entities.Post, tab entities.NotificationTab) entities.View {
	return Compose(p.input(posts, tab))
}

func (p Projector) input(posts []entities.Post, tab entities.NotificationTab) ViewInput {
	in := ViewInput{
		Posts: posts,
		Tab:   tab,
		Now:   time.Now().UTC(),
	}
	if p.Clock != nil {
		in.Now = p.Clock.Now().UTC()
	}
	if p.Polls != nil {
		in.Polls = p.Polls.Snapshots()
	}
	if p.Likes != nil {
		in.Likes = p.Likes.Snapshots()
	}
	if p.Notifications != nil {
		in.Notifications = p.Notifications.Snapshot()
	}
	return in
}

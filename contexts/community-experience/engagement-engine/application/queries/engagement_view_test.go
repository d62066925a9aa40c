package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"

	"github.com/sebdah/goldie/v2"
)

var composeNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func composeInput(tab entities.NotificationTab) ViewInput {
	return ViewInput{
		Posts: []entities.Post{
			{PostID: "post_old", CreatedAt: composeNow.Add(-2 * time.Hour), PollID: "poll_1"},
			{PostID: "post_new", CreatedAt: composeNow.Add(-time.Hour)},
			{PostID: "post_pinned", Pinned: true, CreatedAt: composeNow.Add(-5 * time.Hour)},
		},
		Polls: []entities.PollView{
			{PollID: "poll_1", State: entities.PollStateVoted, TotalVotes: 3},
			{PollID: "poll_orphan", State: entities.PollStateUnvoted},
		},
		Likes: []entities.LikeableCounter{
			{EntityID: "post_new", Liked: true, Count: 4},
			{EntityID: "post_pinned", Count: 1},
		},
		Notifications: entities.NotificationSnapshot{
			Items: []entities.Notification{
				{NotificationID: "n1", Type: entities.NotificationTypePostLiked, CreatedAt: composeNow.Add(-3 * time.Minute), Priority: entities.PriorityNormal},
				{NotificationID: "n2", Type: entities.NotificationTypeMemberJoined, CreatedAt: composeNow.Add(-2 * time.Minute), IsRead: true, Priority: entities.PriorityNormal},
				{NotificationID: "n3", Type: entities.NotificationTypeEventReminder, CreatedAt: composeNow.Add(-time.Minute), Priority: entities.PriorityHigh},
				{NotificationID: "n4", Type: entities.NotificationTypePostCommented, CreatedAt: composeNow.Add(-time.Minute), Priority: entities.PriorityUrgent},
			},
			UnreadCount: 3,
		},
		Tab: tab,
		Now: composeNow,
	}
}

func renderView(view entities.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "composed_at: %s\n", view.ComposedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "active_tab: %s\n", view.ActiveTab)
	b.WriteString("feed:\n")
	for _, item := range view.Feed {
		fmt.Fprintf(&b, "  - post=%s pinned=%t likes=%d liked=%t", item.Post.PostID, item.Post.Pinned, item.Likes.Count, item.Likes.Liked)
		if item.Poll != nil {
			fmt.Fprintf(&b, " poll=%s state=%s total=%d", item.Poll.PollID, item.Poll.State, item.Poll.TotalVotes)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "unread_count: %d\n", view.UnreadCount)
	b.WriteString("notifications:\n")
	for _, item := range view.Notifications {
		fmt.Fprintf(&b, "  - %s %s %s\n", item.NotificationID, item.Type, item.CreatedAt.Format(time.RFC3339))
	}
	b.WriteString("tab_counts:\n")
	for _, count := range view.TabCounts {
		fmt.Fprintf(&b, "  %s: %d\n", count.Tab, count.Count)
	}
	return b.String()
}

func TestComposeUnreadTab(t *testing.T) {
	view := Compose(composeInput(entities.NotificationTabUnread))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "compose_unread_tab", []byte(renderView(view)))
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	in := composeInput("")
	view := Compose(in)

	if view.ActiveTab != entities.NotificationTabAll {
		t.Fatalf("empty tab should compose as all, got %s", view.ActiveTab)
	}
	if in.Posts[0].PostID != "post_old" || in.Notifications.Items[0].NotificationID != "n1" {
		t.Fatal("compose must not reorder its input")
	}
	if len(view.Notifications) != 4 {
		t.Fatalf("all tab shows every notification, got %d", len(view.Notifications))
	}
	again := Compose(in)
	if renderView(again) != renderView(view) {
		t.Fatal("compose should be deterministic for the same input")
	}
}

type stubPosts struct {
	posts []entities.Post
	err   error
	limit int
}

func (s *stubPosts) ListPosts(_ context.Context, limit int) ([]entities.Post, error) {
	s.limit = limit
	return s.posts, s.err
}

type stubPolls []entities.PollView

func (s stubPolls) Snapshots() []entities.PollView { return s }

type stubLikes []entities.LikeableCounter

func (s stubLikes) Snapshots() []entities.LikeableCounter { return s }

type stubNotifications entities.NotificationSnapshot

func (s stubNotifications) Snapshot() entities.NotificationSnapshot {
	return entities.NotificationSnapshot(s)
}

type stubClock struct{}

func (stubClock) Now() time.Time { return composeNow }

func TestProjectorProjectReadsLiveSources(t *testing.T) {
	in := composeInput(entities.NotificationTabPosts)
	posts := &stubPosts{posts: in.Posts}
	projector := Projector{
		Posts:         posts,
		Polls:         stubPolls(in.Polls),
		Likes:         stubLikes(in.Likes),
		Notifications: stubNotifications(in.Notifications),
		Clock:         stubClock{},
	}

	view, err := projector.Project(context.Background(), entities.NotificationTabPosts)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if posts.limit != 50 {
		t.Fatalf("expected default post limit 50, got %d", posts.limit)
	}
	if len(view.Feed) != 3 || view.Feed[0].Post.PostID != "post_pinned" {
		t.Fatalf("unexpected feed %+v", view.Feed)
	}
	if len(view.Notifications) != 2 || view.Notifications[0].NotificationID != "n4" {
		t.Fatalf("unexpected posts tab %+v", view.Notifications)
	}
	if !view.ComposedAt.Equal(composeNow) {
		t.Fatalf("expected clock time, got %s", view.ComposedAt)
	}

	posts.err = errors.New("feed offline")
	if _, err := projector.Project(context.Background(), entities.NotificationTabAll); err == nil {
		t.Fatal("expected post feed failure to surface")
	}
}

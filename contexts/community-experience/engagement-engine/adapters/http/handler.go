package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/application/commands"
	"engagement/contexts/community-experience/engagement-engine/application/queries"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	httptransport "engagement/contexts/community-experience/engagement-engine/transport/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ViewSource hands out the most recently composed view and how many times it
// has been rebuilt. Zero means nothing has been composed yet.
type ViewSource interface {
	Latest() (entities.View, uint64)
}

type Handler struct {
	Polls         *commands.PollEngine
	Likes         *commands.CounterReconciler
	Notifications *commands.NotificationStore
	View          queries.Projector
	Views         ViewSource
	Logger        *slog.Logger
}

// FeedHandler serves the refreshed view when it covers the requested tab and
// every post in it is backed by engine state. Otherwise it lists posts, loads
// any poll or like state the engines do not hold yet, and composes on demand.
func (h Handler) FeedHandler(ctx context.Context, rawTab string) (httptransport.FeedResponse, error) {
	tab, ok := entities.ParseNotificationTab(rawTab)
	if !ok {
		return httptransport.FeedResponse{}, domainerrors.ErrInvalidTab
	}
	if view, ok := h.refreshedView(tab); ok {
		return mapFeed(view), nil
	}
	var posts []entities.Post
	if h.View.Posts != nil {
		limit := h.View.PostLimit
		if limit <= 0 {
			limit = 50
		}
		items, err := h.View.Posts.ListPosts(ctx, limit)
		if err != nil {
			return httptransport.FeedResponse{}, domainerrors.NewStoreError("list_posts", err)
		}
		posts = items
	}
	if err := h.hydrate(ctx, posts); err != nil {
		return httptransport.FeedResponse{}, err
	}
	return mapFeed(h.View.ProjectPosts(posts, tab)), nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	view, err := h.Polls.Snapshot(pollID)
	if errors.Is(err, domainerrors.ErrPollNotFound) {
		if err := ignoreStale(h.Polls.Refresh(ctx, pollID)); err != nil {
			return httptransport.PollResponse{}, err
		}
		view, err = h.Polls.Snapshot(pollID)
	}
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(view), nil
}

func (h Handler) SelectOptionHandler(
	ctx context.Context,
	pollID string,
	req httptransport.SelectOptionRequest,
) (httptransport.PollResponse, error) {
	if _, err := h.GetPollHandler(ctx, pollID); err != nil {
		return httptransport.PollResponse{}, err
	}
	view, err := h.Polls.SelectOption(ctx, pollID, req.OptionID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(view), nil
}

func (h Handler) CastVoteHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	view, err := h.Polls.CastVote(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(view), nil
}

func (h Handler) RevertPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	view, err := h.Polls.RevertToVoting(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(view), nil
}

func (h Handler) ResyncPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	view, err := h.Polls.ResyncTally(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(view), nil
}

func (h Handler) GetLikeHandler(ctx context.Context, entityID string) (httptransport.LikeResponse, error) {
	counter, err := h.Likes.Snapshot(entityID)
	if errors.Is(err, domainerrors.ErrCounterNotFound) {
		if err := ignoreStale(h.Likes.Refresh(ctx, entityID)); err != nil {
			return httptransport.LikeResponse{}, err
		}
		counter, err = h.Likes.Snapshot(entityID)
	}
	if err != nil {
		return httptransport.LikeResponse{}, err
	}
	return mapLike(counter), nil
}

func (h Handler) ToggleLikeHandler(ctx context.Context, entityID string) (httptransport.LikeResponse, error) {
	if _, err := h.GetLikeHandler(ctx, entityID); err != nil {
		return httptransport.LikeResponse{}, err
	}
	counter, err := h.Likes.Toggle(ctx, entityID)
	if err != nil {
		return httptransport.LikeResponse{}, err
	}
	return mapLike(counter), nil
}

func (h Handler) ListNotificationsHandler(_ context.Context, rawTab string) (httptransport.NotificationListResponse, error) {
	tab, ok := entities.ParseNotificationTab(rawTab)
	if !ok {
		return httptransport.NotificationListResponse{}, domainerrors.ErrInvalidTab
	}
	view := queries.Compose(queries.ViewInput{
		Notifications: h.Notifications.Snapshot(),
		Tab:           tab,
	})
	return httptransport.NotificationListResponse{
		Tab:         string(view.ActiveTab),
		Items:       mapNotifications(view.Notifications),
		UnreadCount: view.UnreadCount,
		TabCounts:   mapTabCounts(view.TabCounts),
	}, nil
}

func (h Handler) RefreshNotificationsHandler(ctx context.Context, rawTab string) (httptransport.NotificationListResponse, error) {
	if err := h.Notifications.Fetch(ctx); err != nil {
		return httptransport.NotificationListResponse{}, err
	}
	return h.ListNotificationsHandler(ctx, rawTab)
}

func (h Handler) MarkNotificationReadHandler(ctx context.Context, notificationID string) (httptransport.NotificationResponse, error) {
	if err := h.Notifications.MarkAsRead(ctx, notificationID); err != nil {
		return httptransport.NotificationResponse{}, err
	}
	notification, err := h.Notifications.Get(notificationID)
	if err != nil {
		return httptransport.NotificationResponse{}, err
	}
	return mapNotification(notification), nil
}

func (h Handler) MarkAllNotificationsReadHandler(ctx context.Context) (httptransport.NotificationListResponse, error) {
	if err := h.Notifications.MarkAllAsRead(ctx); err != nil {
		return httptransport.NotificationListResponse{}, err
	}
	return h.ListNotificationsHandler(ctx, string(entities.NotificationTabAll))
}

func (h Handler) PressNotificationHandler(ctx context.Context, notificationID string) (httptransport.NavigationResponse, error) {
	target, err := h.Notifications.Press(ctx, notificationID)
	if err != nil {
		return httptransport.NavigationResponse{}, err
	}
	return httptransport.NavigationResponse{
		Kind:     string(target.Kind),
		TargetID: target.TargetID,
	}, nil
}

func (h Handler) hydrate(ctx context.Context, posts []entities.Post) error {
	var pollIDs, entityIDs []string
	for _, post := range posts {
		if _, err := h.Likes.Snapshot(post.PostID); err != nil {
			entityIDs = append(entityIDs, post.PostID)
		}
		pollID := strings.TrimSpace(post.PollID)
		if pollID == "" {
			continue
		}
		if _, err := h.Polls.Snapshot(pollID); err != nil {
			pollIDs = append(pollIDs, pollID)
		}
	}
	for _, pollID := range pollIDs {
		err := ignoreStale(h.Polls.Refresh(ctx, pollID))
		if err == nil {
			continue
		}
		application.ResolveLogger(h.Logger).Warn("feed poll hydration failed",
			"event", "engagement_feed_poll_hydration_failed",
			"module", application.ModuleName,
			"layer", "adapter",
			"poll_id", pollID,
			"error", err.Error(),
		)
		// A post pointing at a missing or malformed poll renders without it.
		if errors.Is(err, domainerrors.ErrValidation) {
			continue
		}
		return err
	}
	if err := ignoreStale(h.Likes.Refresh(ctx, entityIDs...)); err != nil {
		application.ResolveLogger(h.Logger).Warn("feed like hydration failed",
			"event", "engagement_feed_like_hydration_failed",
			"module", application.ModuleName,
			"layer", "adapter",
			"entity_ids", entityIDs,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (h Handler) refreshedView(tab entities.NotificationTab) (entities.View, bool) {
	if h.Views == nil {
		return entities.View{}, false
	}
	view, version := h.Views.Latest()
	if version == 0 || view.ActiveTab != tab {
		return entities.View{}, false
	}
	for _, item := range view.Feed {
		if strings.TrimSpace(item.Post.PollID) != "" && item.Poll == nil {
			return entities.View{}, false
		}
		if _, err := h.Likes.Snapshot(item.Post.PostID); err != nil {
			return entities.View{}, false
		}
	}
	return view, true
}

func ignoreStale(err error) error {
	if errors.Is(err, domainerrors.ErrStaleResponse) {
		return nil
	}
	return err
}

func mapFeed(view entities.View) httptransport.FeedResponse {
	items := make([]httptransport.PostResponse, 0, len(view.Feed))
	for _, item := range view.Feed {
		post := httptransport.PostResponse{
			PostID:    item.Post.PostID,
			AuthorID:  item.Post.AuthorID,
			Body:      item.Post.Body,
			Pinned:    item.Post.Pinned,
			CreatedAt: item.Post.CreatedAt,
			Likes:     mapLike(item.Likes),
		}
		if item.Poll != nil {
			poll := mapPoll(*item.Poll)
			post.Poll = &poll
		}
		items = append(items, post)
	}
	return httptransport.FeedResponse{
		Items:         items,
		Tab:           string(view.ActiveTab),
		Notifications: mapNotifications(view.Notifications),
		UnreadCount:   view.UnreadCount,
		TabCounts:     mapTabCounts(view.TabCounts),
		ComposedAt:    view.ComposedAt,
	}
}

func mapPoll(view entities.PollView) httptransport.PollResponse {
	options := make([]httptransport.PollOptionResponse, 0, len(view.Options))
	for _, option := range view.Options {
		options = append(options, httptransport.PollOptionResponse{
			OptionID:   option.OptionID,
			Label:      option.Label,
			VoteCount:  option.VoteCount,
			Percentage: option.Percentage,
			Selected:   option.Selected,
			Submitted:  option.Submitted,
		})
	}
	resp := httptransport.PollResponse{
		PollID:        view.PollID,
		PostID:        view.PostID,
		Question:      view.Question,
		AllowMultiple: view.AllowMultiple,
		State:         string(view.State),
		TotalVotes:    view.TotalVotes,
		Options:       options,
		Pending:       append([]string{}, view.Pending...),
		Submitted:     append([]string{}, view.Submitted...),
		ShowResults:   view.ShowResults,
		CanRevert:     view.CanRevert,
		Submitting:    view.Submitting,
		TallyStale:    view.TallyStale,
	}
	if !view.ExpiresAt.IsZero() {
		expiresAt := view.ExpiresAt.UTC()
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

func mapLike(counter entities.LikeableCounter) httptransport.LikeResponse {
	return httptransport.LikeResponse{
		EntityID:   counter.EntityID,
		Liked:      counter.Liked,
		Count:      counter.Count,
		CountStale: counter.CountStale,
		Toggling:   counter.Toggling,
	}
}

func mapNotifications(items []entities.Notification) []httptransport.NotificationResponse {
	out := make([]httptransport.NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapNotification(item))
	}
	return out
}

func mapNotification(item entities.Notification) httptransport.NotificationResponse {
	return httptransport.NotificationResponse{
		NotificationID: item.NotificationID,
		Type:           string(item.Type),
		TypeLabel:      TypeLabel(item.Type),
		Category:       string(item.Type.Category()),
		Icon:           item.Type.Icon(),
		Title:          item.Title,
		Message:        item.Message,
		CreatedAt:      item.CreatedAt,
		IsRead:         item.IsRead,
		Priority:       string(item.Priority),
		ActorID:        item.ActorID,
		PostID:         item.PostID,
		OrganizationID: item.OrganizationID,
		EventID:        item.EventID,
	}
}

func mapTabCounts(counts []entities.TabCount) []httptransport.TabCountResponse {
	out := make([]httptransport.TabCountResponse, 0, len(counts))
	for _, count := range counts {
		out = append(out, httptransport.TabCountResponse{
			Tab:   string(count.Tab),
			Count: count.Count,
		})
	}
	return out
}

// TypeLabel renders a notification type for display, e.g. "Post Comment Reply".
func TypeLabel(t entities.NotificationType) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}

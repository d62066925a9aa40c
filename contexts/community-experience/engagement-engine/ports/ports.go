package ports

import (
	"context"
	"time"

	contractsv1 "engagement/contracts/gen/events/v1"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
)

// PollStore is the authoritative poll backend. SubmitVote must upsert by
// (poll, voter) so a changed ballot replaces the previous one.
type PollStore interface {
	FetchPoll(ctx context.Context, pollID string, viewerID string) (entities.Poll, error)
	SubmitVote(ctx context.Context, pollID string, viewerID string, optionIDs []string) error
	FetchPollTally(ctx context.Context, pollID string) (entities.Tally, error)
}

// MembershipStore backs boolean-membership counters such as likes.
// SetMembership returns domainerrors.ErrConflict when the member is already
// in the desired state.
type MembershipStore interface {
	FetchMembership(ctx context.Context, entityID string, memberID string) (entities.LikeableCounter, error)
	SetMembership(ctx context.Context, entityID string, memberID string, desired bool) error
	CountMembers(ctx context.Context, entityID string) (int, error)
}

type FetchOptions struct {
	Limit int
}

type NotificationFeed interface {
	FetchNotifications(ctx context.Context, viewerID string, opts FetchOptions) ([]entities.Notification, error)
	MarkNotificationAsRead(ctx context.Context, viewerID string, notificationID string) error
	MarkAllNotificationsAsRead(ctx context.Context, viewerID string) error
}

type PostFeed interface {
	ListPosts(ctx context.Context, limit int) ([]entities.Post, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

const (
	TopicPollChanged          = "engagement.poll.changed"
	TopicMembershipChanged    = "engagement.membership.changed"
	TopicNotificationsChanged = "engagement.notifications.changed"
)

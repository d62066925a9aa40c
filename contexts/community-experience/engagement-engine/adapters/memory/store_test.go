package memory

import (
	"context"
	"testing"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pollDefinition(allowMultiple bool) entities.Poll {
	return entities.Poll{
		PollID:        "poll_1",
		PostID:        "post_1",
		Question:      "Pick one",
		AllowMultiple: allowMultiple,
		Options: []entities.PollOption{
			{OptionID: "opt_a", Label: "A", VoteCount: 99},
			{OptionID: "opt_b", Label: "B"},
		},
		TotalVotes: 99,
	}
}

func TestStoreVotesUpsertPerVoter(t *testing.T) {
	store := NewStore()
	store.SetPoll(pollDefinition(false))
	ctx := context.Background()

	poll, err := store.FetchPoll(ctx, "poll_1", "viewer_1")
	require.NoError(t, err)
	assert.Equal(t, 0, poll.TotalVotes, "counts are derived from stored votes")
	assert.Equal(t, 0, poll.Options[0].VoteCount)

	require.NoError(t, store.SubmitVote(ctx, "poll_1", "viewer_1", []string{"opt_a"}))
	require.NoError(t, store.SubmitVote(ctx, "poll_1", "viewer_2", []string{"opt_a"}))
	require.NoError(t, store.SubmitVote(ctx, "poll_1", "viewer_1", []string{"opt_b"}))

	tally, err := store.FetchPollTally(ctx, "poll_1")
	require.NoError(t, err)
	assert.Equal(t, 2, tally.TotalVotes)
	assert.Equal(t, []entities.OptionTally{
		{OptionID: "opt_a", VoteCount: 1},
		{OptionID: "opt_b", VoteCount: 1},
	}, tally.Options)

	poll, err = store.FetchPoll(ctx, "poll_1", "viewer_1")
	require.NoError(t, err)
	assert.Equal(t, entities.Ballot{"opt_b"}, poll.UserSelections)
}

func TestStoreSubmitVoteValidation(t *testing.T) {
	store := NewStore()
	store.SetPoll(pollDefinition(false))
	ctx := context.Background()

	assert.ErrorIs(t, store.SubmitVote(ctx, "poll_x", "viewer_1", []string{"opt_a"}), domainerrors.ErrPollNotFound)
	assert.ErrorIs(t, store.SubmitVote(ctx, "poll_1", "viewer_1", nil), domainerrors.ErrInvalidInput)
	assert.ErrorIs(t, store.SubmitVote(ctx, "poll_1", "viewer_1", []string{"opt_a", "opt_b"}), domainerrors.ErrInvalidInput)
	assert.ErrorIs(t, store.SubmitVote(ctx, "poll_1", "viewer_1", []string{"opt_z"}), domainerrors.ErrUnknownOption)
	_, err := store.FetchPollTally(ctx, "poll_x")
	assert.ErrorIs(t, err, domainerrors.ErrPollNotFound)
}

func TestStoreMultiChoiceTallyCountsVotersOnce(t *testing.T) {
	store := NewStore()
	store.SetPoll(pollDefinition(true))
	ctx := context.Background()

	require.NoError(t, store.SubmitVote(ctx, "poll_1", "viewer_1", []string{"opt_a", "opt_b"}))
	require.NoError(t, store.SubmitVote(ctx, "poll_1", "viewer_2", []string{"opt_b"}))

	tally, err := store.FetchPollTally(ctx, "poll_1")
	require.NoError(t, err)
	assert.Equal(t, 2, tally.TotalVotes)
	assert.Equal(t, 1, tally.Options[0].VoteCount)
	assert.Equal(t, 2, tally.Options[1].VoteCount)
}

func TestStoreMembershipConflicts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SetMembership(ctx, "post_1", "viewer_1", true))
	assert.ErrorIs(t, store.SetMembership(ctx, "post_1", "viewer_1", true), domainerrors.ErrConflict)
	require.NoError(t, store.SetMembership(ctx, "post_1", "viewer_2", true))

	counter, err := store.FetchMembership(ctx, "post_1", "viewer_1")
	require.NoError(t, err)
	assert.True(t, counter.Liked)
	assert.Equal(t, 2, counter.Count)

	require.NoError(t, store.SetMembership(ctx, "post_1", "viewer_1", false))
	assert.ErrorIs(t, store.SetMembership(ctx, "post_1", "viewer_1", false), domainerrors.ErrConflict)
	count, err := store.CountMembers(ctx, "post_1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, store.SetMembership(ctx, "", "viewer_1", true), domainerrors.ErrInvalidInput)
}

func TestStoreNotificationsPerViewer(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	store.AddNotification("viewer_1", entities.Notification{NotificationID: "n1", Type: entities.NotificationTypeSystem, CreatedAt: base})
	store.AddNotification("viewer_1", entities.Notification{NotificationID: "n2", Type: entities.NotificationTypeSystem, CreatedAt: base.Add(time.Minute)})
	store.AddNotification("viewer_2", entities.Notification{NotificationID: "n3", Type: entities.NotificationTypeSystem, CreatedAt: base})
	store.AddNotification("viewer_1", entities.Notification{Type: entities.NotificationTypeSystem, CreatedAt: base.Add(-time.Minute)})

	items, err := store.FetchNotifications(ctx, "viewer_1", ports.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "n2", items[0].NotificationID)
	assert.Equal(t, "n1", items[1].NotificationID)
	assert.NotEmpty(t, items[2].NotificationID, "missing ids are generated")

	limited, err := store.FetchNotifications(ctx, "viewer_1", ports.FetchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.ErrorIs(t, store.MarkNotificationAsRead(ctx, "viewer_1", "n3"), domainerrors.ErrNotificationNotFound)
	require.NoError(t, store.MarkNotificationAsRead(ctx, "viewer_1", "n1"))
	require.NoError(t, store.MarkAllNotificationsAsRead(ctx, "viewer_1"))

	items, err = store.FetchNotifications(ctx, "viewer_1", ports.FetchOptions{})
	require.NoError(t, err)
	for _, item := range items {
		assert.True(t, item.IsRead, item.NotificationID)
	}
	others, err := store.FetchNotifications(ctx, "viewer_2", ports.FetchOptions{})
	require.NoError(t, err)
	assert.False(t, others[0].IsRead, "other viewers are untouched")
}

func TestStoreListPostsNewestFirst(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	store.SetPost(entities.Post{PostID: "p1", CreatedAt: base})
	store.SetPost(entities.Post{PostID: "p2", CreatedAt: base.Add(time.Hour)})
	store.SetPost(entities.Post{PostID: "p3", CreatedAt: base.Add(-time.Hour)})

	posts, err := store.ListPosts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].PostID)
	assert.Equal(t, "p1", posts[1].PostID)
	assert.Equal(t, []string{"p1", "p2", "p3"}, store.EntityIDs())
}

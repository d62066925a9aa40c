package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/ports"

	"github.com/google/uuid"
)

type pollRecord struct {
	poll entities.Poll
}

type voteRecord struct {
	VoteID    string
	PollID    string
	VoterID   string
	OptionIDs []string
	UpdatedAt time.Time
}

type membershipRecord struct {
	MembershipID string
	CreatedAt    time.Time
}

type notificationRecord struct {
	ViewerID     string
	Notification entities.Notification
}

// Store is the in-memory authoritative backend. Votes are keyed by
// (poll, voter) so a repeat submission replaces the previous ballot.
type Store struct {
	mu sync.RWMutex

	polls         map[string]pollRecord
	pollOrder     []string
	votes         map[string]voteRecord
	memberships   map[string]map[string]membershipRecord
	notifications map[string]notificationRecord
	posts         map[string]entities.Post
}

func NewStore() *Store {
	return &Store{
		polls:         make(map[string]pollRecord),
		votes:         make(map[string]voteRecord),
		memberships:   make(map[string]map[string]membershipRecord),
		notifications: make(map[string]notificationRecord),
		posts:         make(map[string]entities.Post),
	}
}

// SetPoll registers a poll definition. Counts and selections on the input are
// ignored; they are always derived from stored votes.
func (s *Store) SetPoll(poll entities.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID := strings.TrimSpace(poll.PollID)
	if _, exists := s.polls[pollID]; !exists {
		s.pollOrder = append(s.pollOrder, pollID)
	}
	definition := poll.Clone()
	definition.PollID = pollID
	definition.TotalVotes = 0
	definition.UserSelections = nil
	for i := range definition.Options {
		definition.Options[i].VoteCount = 0
	}
	s.polls[pollID] = pollRecord{poll: definition}
}

func (s *Store) SetPost(post entities.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[strings.TrimSpace(post.PostID)] = post
}

func (s *Store) AddNotification(viewerID string, notification entities.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(notification.NotificationID)
	if id == "" {
		id = uuid.NewString()
	}
	notification.NotificationID = id
	s.notifications[id] = notificationRecord{
		ViewerID:     strings.TrimSpace(viewerID),
		Notification: notification,
	}
}

func (s *Store) FetchPoll(_ context.Context, pollID string, viewerID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	poll := record.poll.WithTally(s.tallyLocked(record.poll.PollID))
	if vote, ok := s.votes[voteKey(poll.PollID, viewerID)]; ok {
		poll.UserSelections = entities.NewBallot(vote.OptionIDs...)
	}
	return poll, nil
}

func (s *Store) SubmitVote(_ context.Context, pollID string, viewerID string, optionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID = strings.TrimSpace(pollID)
	viewerID = strings.TrimSpace(viewerID)
	record, ok := s.polls[pollID]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	ballot := entities.NewBallot(optionIDs...)
	if viewerID == "" || len(ballot) == 0 {
		return domainerrors.ErrInvalidInput
	}
	if !record.poll.AllowMultiple && len(ballot) > 1 {
		return domainerrors.ErrInvalidInput
	}
	for _, optionID := range ballot {
		if !record.poll.HasOption(optionID) {
			return domainerrors.ErrUnknownOption
		}
	}
	key := voteKey(pollID, viewerID)
	existing, found := s.votes[key]
	voteID := existing.VoteID
	if !found {
		voteID = uuid.NewString()
	}
	s.votes[key] = voteRecord{
		VoteID:    voteID,
		PollID:    pollID,
		VoterID:   viewerID,
		OptionIDs: ballot,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *Store) FetchPollTally(_ context.Context, pollID string) (entities.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pollID = strings.TrimSpace(pollID)
	if _, ok := s.polls[pollID]; !ok {
		return entities.Tally{}, domainerrors.ErrPollNotFound
	}
	return s.tallyLocked(pollID), nil
}

func (s *Store) FetchMembership(_ context.Context, entityID string, memberID string) (entities.LikeableCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entityID = strings.TrimSpace(entityID)
	members := s.memberships[entityID]
	_, liked := members[strings.TrimSpace(memberID)]
	return entities.LikeableCounter{
		EntityID: entityID,
		Liked:    liked,
		Count:    len(members),
	}, nil
}

func (s *Store) SetMembership(_ context.Context, entityID string, memberID string, desired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entityID = strings.TrimSpace(entityID)
	memberID = strings.TrimSpace(memberID)
	if entityID == "" || memberID == "" {
		return domainerrors.ErrInvalidInput
	}
	members, ok := s.memberships[entityID]
	if !ok {
		members = make(map[string]membershipRecord)
		s.memberships[entityID] = members
	}
	_, present := members[memberID]
	if present == desired {
		return domainerrors.ErrConflict
	}
	if desired {
		members[memberID] = membershipRecord{
			MembershipID: uuid.NewString(),
			CreatedAt:    time.Now().UTC(),
		}
		return nil
	}
	delete(members, memberID)
	return nil
}

func (s *Store) CountMembers(_ context.Context, entityID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memberships[strings.TrimSpace(entityID)]), nil
}

func (s *Store) FetchNotifications(_ context.Context, viewerID string, opts ports.FetchOptions) ([]entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	viewerID = strings.TrimSpace(viewerID)
	items := make([]entities.Notification, 0)
	for _, record := range s.notifications {
		if record.ViewerID == viewerID {
			items = append(items, record.Notification)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].NotificationID < items[j].NotificationID
	})
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (s *Store) MarkNotificationAsRead(_ context.Context, viewerID string, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(notificationID)
	record, ok := s.notifications[id]
	if !ok || record.ViewerID != strings.TrimSpace(viewerID) {
		return domainerrors.ErrNotificationNotFound
	}
	record.Notification.IsRead = true
	s.notifications[id] = record
	return nil
}

func (s *Store) MarkAllNotificationsAsRead(_ context.Context, viewerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	viewerID = strings.TrimSpace(viewerID)
	for id, record := range s.notifications {
		if record.ViewerID != viewerID {
			continue
		}
		record.Notification.IsRead = true
		s.notifications[id] = record
	}
	return nil
}

func (s *Store) ListPosts(_ context.Context, limit int) ([]entities.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Post, 0, len(s.posts))
	for _, post := range s.posts {
		items = append(items, post)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].PostID < items[j].PostID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// PollIDs lists registered polls in insertion order.
func (s *Store) PollIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.pollOrder...)
}

// EntityIDs lists every post id, which are the entities likes attach to.
func (s *Store) EntityIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.posts))
	for id := range s.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) tallyLocked(pollID string) entities.Tally {
	record := s.polls[pollID]
	counts := make(map[string]int, len(record.poll.Options))
	voters := 0
	for _, vote := range s.votes {
		if vote.PollID != pollID {
			continue
		}
		voters++
		for _, optionID := range vote.OptionIDs {
			counts[optionID]++
		}
	}
	tally := entities.Tally{PollID: pollID, TotalVotes: voters}
	for _, option := range record.poll.Options {
		tally.Options = append(tally.Options, entities.OptionTally{
			OptionID:  option.OptionID,
			VoteCount: counts[option.OptionID],
		})
	}
	return tally
}

func voteKey(pollID string, voterID string) string {
	return strings.TrimSpace(pollID) + "\x00" + strings.TrimSpace(voterID)
}

var _ ports.PollStore = (*Store)(nil)
var _ ports.MembershipStore = (*Store)(nil)
var _ ports.NotificationFeed = (*Store)(nil)
var _ ports.PostFeed = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)

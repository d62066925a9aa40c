package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"engagement/contexts/community-experience/engagement-engine/adapters/memory"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []ports.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.EventEnvelope, 0)
	for _, event := range p.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

// faultyStore wraps the in-memory backend with per-operation failures and
// gates that hold a call until released.
type faultyStore struct {
	*memory.Store

	mu       sync.Mutex
	failures map[string]error
	gates    map[string]chan struct{}
	started  map[string]chan struct{}
	calls    map[string]int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:    memory.NewStore(),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		started:  make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (f *faultyStore) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// hold blocks every call to op until release is called. The returned channel
// receives once per call that reaches the gate.
func (f *faultyStore) hold(op string) (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	started := make(chan struct{}, 16)
	f.gates[op] = gate
	f.started[op] = started
	var once sync.Once
	return started, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, op)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *faultyStore) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultyStore) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	started := f.started[op]
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func (f *faultyStore) SubmitVote(ctx context.Context, pollID string, viewerID string, optionIDs []string) error {
	if err := f.enter("submit_vote"); err != nil {
		return err
	}
	return f.Store.SubmitVote(ctx, pollID, viewerID, optionIDs)
}

func (f *faultyStore) FetchPollTally(ctx context.Context, pollID string) (entities.Tally, error) {
	if err := f.enter("fetch_poll_tally"); err != nil {
		return entities.Tally{}, err
	}
	return f.Store.FetchPollTally(ctx, pollID)
}

func (f *faultyStore) SetMembership(ctx context.Context, entityID string, memberID string, desired bool) error {
	if err := f.enter("set_membership"); err != nil {
		return err
	}
	return f.Store.SetMembership(ctx, entityID, memberID, desired)
}

func (f *faultyStore) CountMembers(ctx context.Context, entityID string) (int, error) {
	if err := f.enter("count_members"); err != nil {
		return 0, err
	}
	return f.Store.CountMembers(ctx, entityID)
}

func (f *faultyStore) FetchNotifications(ctx context.Context, viewerID string, opts ports.FetchOptions) ([]entities.Notification, error) {
	if err := f.enter("fetch_notifications"); err != nil {
		return nil, err
	}
	return f.Store.FetchNotifications(ctx, viewerID, opts)
}

func (f *faultyStore) MarkNotificationAsRead(ctx context.Context, viewerID string, notificationID string) error {
	if err := f.enter("mark_read"); err != nil {
		return err
	}
	return f.Store.MarkNotificationAsRead(ctx, viewerID, notificationID)
}

func (f *faultyStore) MarkAllNotificationsAsRead(ctx context.Context, viewerID string) error {
	if err := f.enter("mark_all_read"); err != nil {
		return err
	}
	return f.Store.MarkAllNotificationsAsRead(ctx, viewerID)
}

func waitStarted(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("store call never started")
	}
}

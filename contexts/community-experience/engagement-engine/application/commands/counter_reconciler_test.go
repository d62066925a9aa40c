package commands

import (
	"context"
	"errors"
	"testing"

	contractsv1 "engagement/contracts/gen/events/v1"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

type toggleResult struct {
	counter entities.LikeableCounter
	err     error
}

func newCounterFixture(t *testing.T, members ...string) (*CounterReconciler, *faultyStore, *recordingPublisher) {
	t.Helper()
	ctx := context.Background()
	store := newFaultyStore()
	for _, member := range members {
		if err := store.Store.SetMembership(ctx, "post_1", member, true); err != nil {
			t.Fatalf("seed membership failed: %v", err)
		}
	}
	publisher := &recordingPublisher{}
	reconciler := NewCounterReconciler(CounterReconcilerDependencies{
		Kind:      "like",
		Store:     store,
		Publisher: publisher,
		Clock:     fixedClock{now: testNow},
		ViewerID:  "viewer_1",
	})
	return reconciler, store, publisher
}

func TestCounterReconcilerToggleResyncsCount(t *testing.T) {
	reconciler, _, publisher := newCounterFixture(t, "member_a", "member_b")
	ctx := context.Background()

	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	counter, err := reconciler.Snapshot("post_1")
	if err != nil || counter.Liked || counter.Count != 2 {
		t.Fatalf("unexpected initial counter %+v err=%v", counter, err)
	}

	counter, err = reconciler.Toggle(ctx, "post_1")
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !counter.Liked || counter.Count != 3 || counter.Toggling {
		t.Fatalf("expected liked with 3 members, got %+v", counter)
	}

	counter, err = reconciler.Toggle(ctx, "post_1")
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if counter.Liked || counter.Count != 2 {
		t.Fatalf("double toggle should restore the original state, got %+v", counter)
	}

	events := publisher.byType(ports.TopicMembershipChanged)
	if len(events) != 2 {
		t.Fatalf("expected two membership events, got %d", len(events))
	}
	var payload contractsv1.MembershipChanged
	if err := events[0].Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Kind != "like" || !payload.Liked || payload.Count != 3 || payload.Conflict {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCounterReconcilerConflictConvergesOnStoreState(t *testing.T) {
	reconciler, _, publisher := newCounterFixture(t, "member_a", "viewer_1")
	ctx := context.Background()

	// Local state lags the store: the viewer already likes the post.
	if err := reconciler.Load(entities.LikeableCounter{EntityID: "post_1", Liked: false, Count: 1}); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	counter, err := reconciler.Toggle(ctx, "post_1")
	if err != nil {
		t.Fatalf("conflict should be treated as success, got %v", err)
	}
	if !counter.Liked || counter.Count != 2 {
		t.Fatalf("expected store count after conflict, got %+v", counter)
	}

	events := publisher.byType(ports.TopicMembershipChanged)
	var payload contractsv1.MembershipChanged
	if err := events[len(events)-1].Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Conflict {
		t.Fatal("expected the event to flag the conflict")
	}
}

func TestCounterReconcilerSetFailureLeavesCounterUnchanged(t *testing.T) {
	reconciler, store, _ := newCounterFixture(t, "member_a")
	ctx := context.Background()
	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	store.fail("set_membership", errors.New("connection refused"))

	_, err := reconciler.Toggle(ctx, "post_1")
	if !errors.Is(err, domainerrors.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	counter, _ := reconciler.Snapshot("post_1")
	if counter.Liked || counter.Count != 1 || counter.Toggling {
		t.Fatalf("failed toggle must not change the counter, got %+v", counter)
	}
	if got := store.callCount("count_members"); got != 0 {
		t.Fatalf("count must not be read after a failed write, got %d reads", got)
	}
}

func TestCounterReconcilerCountFailureKeepsLastCount(t *testing.T) {
	reconciler, store, _ := newCounterFixture(t, "member_a", "member_b")
	ctx := context.Background()
	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	store.fail("count_members", errors.New("replica lag"))

	counter, err := reconciler.Toggle(ctx, "post_1")
	if err != nil {
		t.Fatalf("toggle should succeed when only the count read fails: %v", err)
	}
	if !counter.Liked || counter.Count != 2 || !counter.CountStale {
		t.Fatalf("expected liked with stale count 2, got %+v", counter)
	}

	store.fail("count_members", nil)
	counter, err = reconciler.Resync(ctx, "post_1")
	if err != nil {
		t.Fatalf("resync failed: %v", err)
	}
	if counter.Count != 3 || counter.CountStale {
		t.Fatalf("expected fresh count 3, got %+v", counter)
	}
}

func TestCounterReconcilerRejectsConcurrentToggle(t *testing.T) {
	reconciler, store, _ := newCounterFixture(t)
	ctx := context.Background()
	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	started, release := store.hold("set_membership")
	defer release()

	done := make(chan toggleResult, 1)
	go func() {
		counter, err := reconciler.Toggle(ctx, "post_1")
		done <- toggleResult{counter: counter, err: err}
	}()
	waitStarted(t, started)

	if _, err := reconciler.Toggle(ctx, "post_1"); !errors.Is(err, domainerrors.ErrToggleInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	if _, err := reconciler.Resync(ctx, "post_1"); !errors.Is(err, domainerrors.ErrToggleInFlight) {
		t.Fatalf("expected resync rejection while toggling, got %v", err)
	}
	snapshot, _ := reconciler.Snapshot("post_1")
	if !snapshot.Toggling {
		t.Fatal("snapshot should report the toggle in flight")
	}

	release()
	result := <-done
	if result.err != nil || !result.counter.Liked || result.counter.Count != 1 {
		t.Fatalf("unexpected result %+v err=%v", result.counter, result.err)
	}
	if got := store.callCount("set_membership"); got != 1 {
		t.Fatalf("expected one store write, got %d", got)
	}
}

func TestCounterReconcilerDropsResponseForDiscardedCounter(t *testing.T) {
	reconciler, store, _ := newCounterFixture(t)
	ctx := context.Background()
	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	started, release := store.hold("set_membership")
	defer release()

	done := make(chan toggleResult, 1)
	go func() {
		counter, err := reconciler.Toggle(ctx, "post_1")
		done <- toggleResult{counter: counter, err: err}
	}()
	waitStarted(t, started)
	reconciler.Discard("post_1")
	release()

	if result := <-done; !errors.Is(result.err, domainerrors.ErrStaleResponse) {
		t.Fatalf("expected stale response, got %v", result.err)
	}
	if _, err := reconciler.Snapshot("post_1"); !errors.Is(err, domainerrors.ErrCounterNotFound) {
		t.Fatalf("discarded counter must stay gone, got %v", err)
	}
}

func TestCounterReconcilerRefreshKeepsToggleGuard(t *testing.T) {
	reconciler, store, _ := newCounterFixture(t)
	ctx := context.Background()
	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	started, release := store.hold("set_membership")
	defer release()

	done := make(chan toggleResult, 1)
	go func() {
		counter, err := reconciler.Toggle(ctx, "post_1")
		done <- toggleResult{counter: counter, err: err}
	}()
	waitStarted(t, started)

	if err := reconciler.Refresh(ctx, "post_1"); err != nil {
		t.Fatalf("refresh during toggle failed: %v", err)
	}
	if snapshot, _ := reconciler.Snapshot("post_1"); !snapshot.Toggling {
		t.Fatal("refreshed counter must still report the outstanding toggle")
	}
	if _, err := reconciler.Toggle(ctx, "post_1"); !errors.Is(err, domainerrors.ErrToggleInFlight) {
		t.Fatalf("expected in-flight rejection after refresh, got %v", err)
	}
	if got := store.callCount("set_membership"); got != 1 {
		t.Fatalf("expected one store write, got %d", got)
	}

	release()
	if result := <-done; !errors.Is(result.err, domainerrors.ErrStaleResponse) {
		t.Fatalf("expected stale response, got %v", result.err)
	}
	if snapshot, _ := reconciler.Snapshot("post_1"); snapshot.Toggling {
		t.Fatal("guard must clear once the original toggle returns")
	}
}

func TestCounterReconcilerUnknownEntity(t *testing.T) {
	reconciler, _, _ := newCounterFixture(t)
	if _, err := reconciler.Toggle(context.Background(), "post_missing"); !errors.Is(err, domainerrors.ErrCounterNotFound) {
		t.Fatalf("expected counter not found, got %v", err)
	}
	if err := reconciler.Load(entities.LikeableCounter{EntityID: "post_1", Count: -1}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected negative count rejection, got %v", err)
	}
}

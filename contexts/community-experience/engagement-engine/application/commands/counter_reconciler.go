package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	contractsv1 "engagement/contracts/gen/events/v1"
	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/ports"

	"golang.org/x/sync/errgroup"
)

type CounterReconcilerDependencies struct {
	// Kind labels the membership in logs and events, e.g. "like".
	Kind      string
	Store     ports.MembershipStore
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	ViewerID  string
	Logger    *slog.Logger
}

type counterEntry struct {
	counter  entities.LikeableCounter
	toggling bool
}

// CounterReconciler toggles the viewer's membership of an entity and always
// resyncs the member count from the store afterwards. Counts are never
// adjusted by local arithmetic.
type CounterReconciler struct {
	kind     string
	store    ports.MembershipStore
	clock    ports.Clock
	viewerID string
	logger   *slog.Logger
	changes  changePublisher

	mu       sync.Mutex
	entries  map[string]*counterEntry
	order    []string
	tokens   map[string]uint64
	inFlight map[string]bool
}

func NewCounterReconciler(deps CounterReconcilerDependencies) *CounterReconciler {
	kind := strings.TrimSpace(deps.Kind)
	if kind == "" {
		kind = "like"
	}
	return &CounterReconciler{
		kind:     kind,
		store:    deps.Store,
		clock:    deps.Clock,
		viewerID: strings.TrimSpace(deps.ViewerID),
		logger:   deps.Logger,
		changes: changePublisher{
			publisher: deps.Publisher,
			idGen:     deps.IDGen,
			logger:    deps.Logger,
		},
		entries:  make(map[string]*counterEntry),
		tokens:   make(map[string]uint64),
		inFlight: make(map[string]bool),
	}
}

func (r *CounterReconciler) Kind() string {
	return r.kind
}

// Load replaces every counter held by the session.
func (r *CounterReconciler) Load(counters ...entities.LikeableCounter) error {
	for _, counter := range counters {
		if strings.TrimSpace(counter.EntityID) == "" || counter.Count < 0 {
			return domainerrors.ErrInvalidInput
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entityID := range r.order {
		r.tokens[entityID]++
	}
	r.entries = make(map[string]*counterEntry, len(counters))
	r.order = r.order[:0]
	for _, counter := range counters {
		entityID := strings.TrimSpace(counter.EntityID)
		if _, exists := r.entries[entityID]; !exists {
			r.order = append(r.order, entityID)
		}
		r.tokens[entityID]++
		r.entries[entityID] = r.installLocked(counter)
	}
	return nil
}

// Refresh loads membership state for the entities concurrently and replaces
// them only when every read succeeds.
func (r *CounterReconciler) Refresh(ctx context.Context, entityIDs ...string) error {
	logger := application.ResolveLogger(r.logger)
	ids := normalizeIDs(entityIDs)
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	tokens := make(map[string]uint64, len(ids))
	for _, entityID := range ids {
		tokens[entityID] = r.tokens[entityID]
	}
	r.mu.Unlock()

	fetched := make([]entities.LikeableCounter, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, entityID := range ids {
		group.Go(func() error {
			counter, err := r.store.FetchMembership(groupCtx, entityID, r.viewerID)
			if err != nil {
				return err
			}
			counter.EntityID = entityID
			fetched[i] = counter
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("membership refresh failed",
			"event", "engagement_membership_refresh_failed",
			"module", application.ModuleName,
			"layer", "application",
			"kind", r.kind,
			"entity_ids", ids,
			"error", err.Error(),
		)
		return domainerrors.NewStoreError("fetch_membership", err)
	}

	r.mu.Lock()
	applied := 0
	for i, entityID := range ids {
		if r.tokens[entityID] != tokens[entityID] {
			continue
		}
		r.tokens[entityID]++
		if _, exists := r.entries[entityID]; !exists {
			r.order = append(r.order, entityID)
		}
		r.entries[entityID] = r.installLocked(fetched[i])
		applied++
	}
	r.mu.Unlock()

	if applied < len(ids) {
		return domainerrors.ErrStaleResponse
	}
	return nil
}

// Discard tears a counter down. In-flight responses for it are dropped.
func (r *CounterReconciler) Discard(entityID string) {
	entityID = strings.TrimSpace(entityID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[entityID]++
	if _, ok := r.entries[entityID]; !ok {
		return
	}
	delete(r.entries, entityID)
	filtered := r.order[:0]
	for _, id := range r.order {
		if id != entityID {
			filtered = append(filtered, id)
		}
	}
	r.order = filtered
}

// Toggle flips the viewer's membership. A conflict from the store means the
// desired state already holds and is treated as success. The count is
// re-read from the store in every successful branch.
func (r *CounterReconciler) Toggle(ctx context.Context, entityID string) (entities.LikeableCounter, error) {
	logger := application.ResolveLogger(r.logger)
	entityID = strings.TrimSpace(entityID)

	r.mu.Lock()
	entry, ok := r.entries[entityID]
	if !ok {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.ErrCounterNotFound
	}
	if entry.toggling {
		r.mu.Unlock()
		logger.Warn("membership toggle rejected while another is in flight",
			"event", "engagement_membership_toggle_in_flight",
			"module", application.ModuleName,
			"layer", "application",
			"kind", r.kind,
			"entity_id", entityID,
		)
		return entities.LikeableCounter{}, domainerrors.ErrToggleInFlight
	}
	desired := !entry.counter.Liked
	entry.toggling = true
	r.inFlight[entityID] = true
	r.tokens[entityID]++
	token := r.tokens[entityID]
	r.mu.Unlock()

	logger.Info("membership toggle started",
		"event", "engagement_membership_toggle_started",
		"module", application.ModuleName,
		"layer", "application",
		"kind", r.kind,
		"entity_id", entityID,
		"viewer_id", r.viewerID,
		"desired", desired,
	)

	conflict := false
	if err := r.store.SetMembership(ctx, entityID, r.viewerID, desired); err != nil {
		if !errors.Is(err, domainerrors.ErrConflict) {
			r.mu.Lock()
			current := r.tokens[entityID] == token
			r.releaseLocked(entityID)
			r.mu.Unlock()
			if !current {
				return entities.LikeableCounter{}, domainerrors.ErrStaleResponse
			}
			logger.Error("membership toggle failed",
				"event", "engagement_membership_toggle_failed",
				"module", application.ModuleName,
				"layer", "application",
				"kind", r.kind,
				"entity_id", entityID,
				"desired", desired,
				"error", err.Error(),
			)
			return entities.LikeableCounter{}, domainerrors.NewStoreError("set_membership", err)
		}
		conflict = true
		logger.Info("membership toggle converged on existing state",
			"event", "engagement_membership_toggle_conflict",
			"module", application.ModuleName,
			"layer", "application",
			"kind", r.kind,
			"entity_id", entityID,
			"desired", desired,
		)
	}

	count, countErr := r.store.CountMembers(ctx, entityID)

	r.mu.Lock()
	r.releaseLocked(entityID)
	if r.tokens[entityID] != token {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.ErrStaleResponse
	}
	entry.counter.Liked = desired
	if countErr == nil {
		entry.counter.Count = count
		entry.counter.CountStale = false
	} else {
		entry.counter.CountStale = true
	}
	counter := entry.snapshot()
	r.mu.Unlock()

	if countErr != nil {
		logger.Warn("membership count resync failed; keeping last authoritative count",
			"event", "engagement_membership_count_failed",
			"module", application.ModuleName,
			"layer", "application",
			"kind", r.kind,
			"entity_id", entityID,
			"error", countErr.Error(),
		)
	}
	now := r.now()
	r.changes.publish(ctx, ports.TopicMembershipChanged, "entity_id", entityID, now, contractsv1.MembershipChanged{
		Kind:     r.kind,
		EntityID: entityID,
		Reason:   "toggled",
		Liked:    counter.Liked,
		Count:    counter.Count,
		Conflict: conflict,
	})
	return counter, nil
}

// Resync re-reads the authoritative count for an entity.
func (r *CounterReconciler) Resync(ctx context.Context, entityID string) (entities.LikeableCounter, error) {
	entityID = strings.TrimSpace(entityID)

	r.mu.Lock()
	entry, ok := r.entries[entityID]
	if !ok {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.ErrCounterNotFound
	}
	if entry.toggling {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.ErrToggleInFlight
	}
	entry.toggling = true
	r.inFlight[entityID] = true
	r.tokens[entityID]++
	token := r.tokens[entityID]
	r.mu.Unlock()

	count, err := r.store.CountMembers(ctx, entityID)

	r.mu.Lock()
	r.releaseLocked(entityID)
	if r.tokens[entityID] != token {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.ErrStaleResponse
	}
	if err != nil {
		r.mu.Unlock()
		return entities.LikeableCounter{}, domainerrors.NewStoreError("count_members", err)
	}
	entry.counter.Count = count
	entry.counter.CountStale = false
	counter := entry.snapshot()
	r.mu.Unlock()

	r.changes.publish(ctx, ports.TopicMembershipChanged, "entity_id", entityID, r.now(), contractsv1.MembershipChanged{
		Kind:     r.kind,
		EntityID: entityID,
		Reason:   "resynced",
		Liked:    counter.Liked,
		Count:    counter.Count,
	})
	return counter, nil
}

func (r *CounterReconciler) Snapshot(entityID string) (entities.LikeableCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[strings.TrimSpace(entityID)]
	if !ok {
		return entities.LikeableCounter{}, domainerrors.ErrCounterNotFound
	}
	return entry.snapshot(), nil
}

func (r *CounterReconciler) Snapshots() []entities.LikeableCounter {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]entities.LikeableCounter, 0, len(r.order))
	for _, entityID := range r.order {
		if entry, ok := r.entries[entityID]; ok {
			items = append(items, entry.snapshot())
		}
	}
	return items
}

// releaseLocked ends the entity's outstanding store call, including on an
// entry that was reinstalled while the call ran.
func (r *CounterReconciler) releaseLocked(entityID string) {
	delete(r.inFlight, entityID)
	if entry, ok := r.entries[entityID]; ok {
		entry.toggling = false
	}
}

func (r *CounterReconciler) installLocked(counter entities.LikeableCounter) *counterEntry {
	entry := newCounterEntry(counter)
	entry.toggling = r.inFlight[entry.counter.EntityID]
	return entry
}

func (r *CounterReconciler) now() time.Time {
	return resolveNow(r.clock)
}

func newCounterEntry(counter entities.LikeableCounter) *counterEntry {
	counter.EntityID = strings.TrimSpace(counter.EntityID)
	counter.Toggling = false
	return &counterEntry{counter: counter}
}

func (e *counterEntry) snapshot() entities.LikeableCounter {
	counter := e.counter
	counter.Toggling = e.toggling
	return counter
}

package commands

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	contractsv1 "engagement/contracts/gen/events/v1"
	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/contexts/community-experience/engagement-engine/domain/services"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

const defaultNotificationFetchLimit = 50

type NotificationStoreDependencies struct {
	Feed       ports.NotificationFeed
	Publisher  ports.EventPublisher
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	ViewerID   string
	FetchLimit int
	Logger     *slog.Logger
}

// NotificationStore holds the viewer's notification set. Read flags only move
// from unread to read; the only way back is a fresh ingest. Store calls are
// applied after the store confirms them, so a failure never leaves the local
// set or unread count half-updated.
type NotificationStore struct {
	feed       ports.NotificationFeed
	clock      ports.Clock
	viewerID   string
	fetchLimit int
	logger     *slog.Logger
	changes    changePublisher

	mu         sync.Mutex
	items      []entities.Notification
	index      map[string]int
	unread     int
	generation uint64
	fetchSeq   uint64
	receipts   map[string]*entities.ReadReceipt

	background sync.WaitGroup
}

func NewNotificationStore(deps NotificationStoreDependencies) *NotificationStore {
	limit := deps.FetchLimit
	if limit <= 0 {
		limit = defaultNotificationFetchLimit
	}
	return &NotificationStore{
		feed:       deps.Feed,
		clock:      deps.Clock,
		viewerID:   strings.TrimSpace(deps.ViewerID),
		fetchLimit: limit,
		logger:     deps.Logger,
		changes: changePublisher{
			publisher: deps.Publisher,
			idGen:     deps.IDGen,
			logger:    deps.Logger,
		},
		index:    make(map[string]int),
		receipts: make(map[string]*entities.ReadReceipt),
	}
}

// Fetch pulls the latest notifications and ingests them. When two fetches
// overlap, only the most recently issued one is applied.
func (s *NotificationStore) Fetch(ctx context.Context) error {
	logger := application.ResolveLogger(s.logger)

	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	items, err := s.feed.FetchNotifications(ctx, s.viewerID, ports.FetchOptions{Limit: s.fetchLimit})
	if err != nil {
		logger.Error("notification fetch failed",
			"event", "engagement_notifications_fetch_failed",
			"module", application.ModuleName,
			"layer", "application",
			"viewer_id", s.viewerID,
			"error", err.Error(),
		)
		return domainerrors.NewStoreError("fetch_notifications", err)
	}
	items, err = s.acceptNotifications(items)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.fetchSeq != seq {
		s.mu.Unlock()
		return domainerrors.ErrStaleResponse
	}
	s.replaceLocked(items)
	unread := s.unread
	s.mu.Unlock()

	logger.Info("notifications fetched",
		"event", "engagement_notifications_fetched",
		"module", application.ModuleName,
		"layer", "application",
		"viewer_id", s.viewerID,
		"count", len(items),
		"unread_count", unread,
	)
	s.publishChange(ctx, "ingested")
	return nil
}

// Ingest replaces the working set. A missing or duplicate id rejects the
// whole batch; items of an unrecognised type are skipped.
func (s *NotificationStore) Ingest(ctx context.Context, items []entities.Notification) error {
	items, err := s.acceptNotifications(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fetchSeq++
	s.replaceLocked(items)
	s.mu.Unlock()
	s.publishChange(ctx, "ingested")
	return nil
}

// MarkAsRead is idempotent: an already-read item returns immediately without
// a store call.
func (s *NotificationStore) MarkAsRead(ctx context.Context, notificationID string) error {
	logger := application.ResolveLogger(s.logger)
	notificationID = strings.TrimSpace(notificationID)

	s.mu.Lock()
	idx, ok := s.index[notificationID]
	if !ok {
		s.mu.Unlock()
		return domainerrors.ErrNotificationNotFound
	}
	if s.items[idx].IsRead {
		s.mu.Unlock()
		return nil
	}
	generation := s.generation
	s.mu.Unlock()

	if err := s.feed.MarkNotificationAsRead(ctx, s.viewerID, notificationID); err != nil {
		logger.Error("notification mark as read failed",
			"event", "engagement_notification_mark_read_failed",
			"module", application.ModuleName,
			"layer", "application",
			"viewer_id", s.viewerID,
			"notification_id", notificationID,
			"error", err.Error(),
		)
		return domainerrors.NewStoreError("mark_notification_as_read", err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return domainerrors.ErrStaleResponse
	}
	changed := s.markReadLocked(notificationID)
	s.mu.Unlock()

	if changed {
		s.publishChange(ctx, "marked_read")
	}
	return nil
}

// MarkAllAsRead applies one pass over the current snapshot once the store
// confirms.
func (s *NotificationStore) MarkAllAsRead(ctx context.Context) error {
	logger := application.ResolveLogger(s.logger)

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	if err := s.feed.MarkAllNotificationsAsRead(ctx, s.viewerID); err != nil {
		logger.Error("notification mark all as read failed",
			"event", "engagement_notification_mark_all_failed",
			"module", application.ModuleName,
			"layer", "application",
			"viewer_id", s.viewerID,
			"error", err.Error(),
		)
		return domainerrors.NewStoreError("mark_all_notifications_as_read", err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return domainerrors.ErrStaleResponse
	}
	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()

	logger.Info("notifications marked read",
		"event", "engagement_notifications_marked_all_read",
		"module", application.ModuleName,
		"layer", "application",
		"viewer_id", s.viewerID,
	)
	s.publishChange(ctx, "marked_all_read")
	return nil
}

// Press resolves where a tapped notification leads. An unread item gets a
// background read receipt; navigation never waits for it.
func (s *NotificationStore) Press(ctx context.Context, notificationID string) (entities.NavigationTarget, error) {
	notificationID = strings.TrimSpace(notificationID)

	s.mu.Lock()
	idx, ok := s.index[notificationID]
	if !ok {
		s.mu.Unlock()
		return entities.NavigationTarget{}, domainerrors.ErrNotificationNotFound
	}
	item := s.items[idx]
	if !item.IsRead {
		s.trackReceiptLocked(notificationID)
		s.background.Add(1)
		go s.deliverReceipt(context.WithoutCancel(ctx), notificationID)
	}
	s.mu.Unlock()

	return services.ResolveNavigationTarget(item), nil
}

// RetryFailedReceipts re-sends every failed background read receipt and
// returns how many were confirmed.
func (s *NotificationStore) RetryFailedReceipts(ctx context.Context) (int, error) {
	s.mu.Lock()
	failed := make([]string, 0)
	for id, receipt := range s.receipts {
		if receipt.Status == entities.ReceiptStatusFailed {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	for _, id := range failed {
		s.trackReceiptLocked(id)
	}
	s.mu.Unlock()

	confirmed := 0
	var errs []error
	for _, id := range failed {
		err := s.MarkAsRead(ctx, id)
		s.settleReceipt(id, err)
		if err == nil || errors.Is(err, domainerrors.ErrStaleResponse) {
			confirmed++
			continue
		}
		errs = append(errs, err)
	}
	return confirmed, errors.Join(errs...)
}

// Receipts lists tracked read receipts ordered by notification id.
func (s *NotificationStore) Receipts() []entities.ReadReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ReadReceipt, 0, len(s.receipts))
	for _, receipt := range s.receipts {
		out = append(out, *receipt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NotificationID < out[j].NotificationID
	})
	return out
}

// Wait blocks until background receipts started by Press have settled.
func (s *NotificationStore) Wait() {
	s.background.Wait()
}

func (s *NotificationStore) Filter(tab entities.NotificationTab) []entities.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return services.FilterByTab(s.items, tab)
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *NotificationStore) Snapshot() entities.NotificationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entities.Notification, len(s.items))
	copy(items, s.items)
	return entities.NotificationSnapshot{
		Items:       items,
		UnreadCount: s.unread,
		Generation:  s.generation,
	}
}

func (s *NotificationStore) Get(notificationID string) (entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.index[strings.TrimSpace(notificationID)]
	if !ok {
		return entities.Notification{}, domainerrors.ErrNotificationNotFound
	}
	return s.items[idx], nil
}

func (s *NotificationStore) deliverReceipt(ctx context.Context, notificationID string) {
	defer s.background.Done()
	err := s.MarkAsRead(ctx, notificationID)
	s.settleReceipt(notificationID, err)
	if err != nil && !errors.Is(err, domainerrors.ErrStaleResponse) {
		application.ResolveLogger(s.logger).Warn("background read receipt failed; queued for retry",
			"event", "engagement_notification_receipt_failed",
			"module", application.ModuleName,
			"layer", "application",
			"notification_id", notificationID,
			"error", err.Error(),
		)
	}
}

func (s *NotificationStore) trackReceiptLocked(notificationID string) {
	receipt, ok := s.receipts[notificationID]
	if !ok {
		receipt = &entities.ReadReceipt{NotificationID: notificationID}
		s.receipts[notificationID] = receipt
	}
	receipt.Status = entities.ReceiptStatusPending
	receipt.Attempts++
	receipt.UpdatedAt = s.now()
}

func (s *NotificationStore) settleReceipt(notificationID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, ok := s.receipts[notificationID]
	if !ok {
		return
	}
	receipt.UpdatedAt = s.now()
	if err == nil || errors.Is(err, domainerrors.ErrStaleResponse) {
		receipt.Status = entities.ReceiptStatusConfirmed
		receipt.LastError = ""
		return
	}
	receipt.Status = entities.ReceiptStatusFailed
	receipt.LastError = err.Error()
}

func (s *NotificationStore) replaceLocked(items []entities.Notification) {
	s.items = make([]entities.Notification, len(items))
	copy(s.items, items)
	s.index = make(map[string]int, len(items))
	for i := range s.items {
		s.items[i].NotificationID = strings.TrimSpace(s.items[i].NotificationID)
		if s.items[i].Priority == "" {
			s.items[i].Priority = entities.PriorityNormal
		}
		s.index[s.items[i].NotificationID] = i
	}
	s.unread = services.CountUnread(s.items)
	s.generation++
	s.receipts = make(map[string]*entities.ReadReceipt)
}

func (s *NotificationStore) markReadLocked(notificationID string) bool {
	idx, ok := s.index[notificationID]
	if !ok || s.items[idx].IsRead {
		return false
	}
	s.items[idx].IsRead = true
	if s.unread > 0 {
		s.unread--
	}
	return true
}

func (s *NotificationStore) publishChange(ctx context.Context, reason string) {
	s.mu.Lock()
	unread := s.unread
	generation := s.generation
	s.mu.Unlock()
	s.changes.publish(ctx, ports.TopicNotificationsChanged, "viewer_id", s.viewerID, s.now(), contractsv1.NotificationsChanged{
		ViewerID:    s.viewerID,
		Reason:      reason,
		UnreadCount: unread,
		Generation:  generation,
	})
}

func (s *NotificationStore) now() time.Time {
	return resolveNow(s.clock)
}

// acceptNotifications checks ids across the batch and drops rows whose type
// this build does not know, so a newer feed cannot empty the working set.
func (s *NotificationStore) acceptNotifications(items []entities.Notification) ([]entities.Notification, error) {
	seen := make(map[string]struct{}, len(items))
	accepted := make([]entities.Notification, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.NotificationID)
		if id == "" {
			return nil, domainerrors.ErrInvalidInput
		}
		if _, dup := seen[id]; dup {
			return nil, domainerrors.ErrInvalidInput
		}
		seen[id] = struct{}{}
		if !item.Type.Valid() {
			application.ResolveLogger(s.logger).Warn("notification with unknown type skipped",
				"event", "engagement_notification_type_unknown",
				"module", application.ModuleName,
				"layer", "application",
				"viewer_id", s.viewerID,
				"notification_id", id,
				"type", string(item.Type),
			)
			continue
		}
		accepted = append(accepted, item)
	}
	return accepted, nil
}

package workers

import (
	"context"
	"log/slog"
	"sync"

	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/domain/entities"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

type ViewComposer interface {
	Project(ctx context.Context, tab entities.NotificationTab) (entities.View, error)
}

// ViewRefresher recomposes the engagement view whenever an engine reports a
// snapshot change, so readers always see a view built from the latest state.
type ViewRefresher struct {
	Subscriber    ports.EventSubscriber
	Composer      ViewComposer
	Tab           entities.NotificationTab
	ConsumerGroup string
	Logger        *slog.Logger

	mu      sync.RWMutex
	latest  entities.View
	version uint64
}

var refreshTopics = []string{
	ports.TopicPollChanged,
	ports.TopicMembershipChanged,
	ports.TopicNotificationsChanged,
}

// Start subscribes to every engine change topic and composes once. A failed
// first composition is logged and retried on the next event.
func (r *ViewRefresher) Start(ctx context.Context) error {
	group := r.ConsumerGroup
	if group == "" {
		group = "engagement-view-refresher"
	}
	for _, topic := range refreshTopics {
		if err := r.Subscriber.Subscribe(ctx, topic, group, r.handle); err != nil {
			return err
		}
	}
	_ = r.Refresh(ctx)
	return nil
}

// Refresh recomposes immediately.
func (r *ViewRefresher) Refresh(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	tab := r.Tab
	if tab == "" {
		tab = entities.NotificationTabAll
	}
	view, err := r.Composer.Project(ctx, tab)
	if err != nil {
		logger.Error("engagement view refresh failed",
			"event", "engagement_view_refresh_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	r.mu.Lock()
	r.latest = view
	r.version++
	r.mu.Unlock()
	return nil
}

// Latest returns the most recent view and how many times it was rebuilt.
func (r *ViewRefresher) Latest() (entities.View, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.version
}

func (r *ViewRefresher) handle(ctx context.Context, event ports.EventEnvelope) error {
	application.ResolveLogger(r.Logger).Debug("engagement view refresh triggered",
		"event", "engagement_view_refresh_triggered",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return r.Refresh(ctx)
}

package engagementengine

import (
	"log/slog"

	httpadapter "engagement/contexts/community-experience/engagement-engine/adapters/http"
	"engagement/contexts/community-experience/engagement-engine/adapters/memory"
	"engagement/contexts/community-experience/engagement-engine/application/commands"
	"engagement/contexts/community-experience/engagement-engine/application/queries"
	"engagement/contexts/community-experience/engagement-engine/application/workers"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	Polls         *commands.PollEngine
	Likes         *commands.CounterReconciler
	Notifications *commands.NotificationStore
	View          queries.Projector
	Retrier       workers.ReceiptRetrier
	Store         *memory.Store
}

type Dependencies struct {
	Polls                  ports.PollStore
	Memberships            ports.MembershipStore
	Notifications          ports.NotificationFeed
	Posts                  ports.PostFeed
	Publisher              ports.EventPublisher
	Clock                  ports.Clock
	IDGen                  ports.IDGenerator
	ViewerID               string
	NotificationFetchLimit int
	PostLimit              int
	Logger                 *slog.Logger
}

func NewModule(deps Dependencies) Module {
	polls := commands.NewPollEngine(commands.PollEngineDependencies{
		Store:     deps.Polls,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		ViewerID:  deps.ViewerID,
		Logger:    deps.Logger,
	})
	likes := commands.NewCounterReconciler(commands.CounterReconcilerDependencies{
		Kind:      "like",
		Store:     deps.Memberships,
		Publisher: deps.Publisher,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		ViewerID:  deps.ViewerID,
		Logger:    deps.Logger,
	})
	notifications := commands.NewNotificationStore(commands.NotificationStoreDependencies{
		Feed:       deps.Notifications,
		Publisher:  deps.Publisher,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		ViewerID:   deps.ViewerID,
		FetchLimit: deps.NotificationFetchLimit,
		Logger:     deps.Logger,
	})
	view := queries.Projector{
		Posts:         deps.Posts,
		Polls:         polls,
		Likes:         likes,
		Notifications: notifications,
		Clock:         deps.Clock,
		PostLimit:     deps.PostLimit,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:         polls,
			Likes:         likes,
			Notifications: notifications,
			View:          view,
			Logger:        deps.Logger,
		},
		Polls:         polls,
		Likes:         likes,
		Notifications: notifications,
		View:          view,
		Retrier: workers.ReceiptRetrier{
			Receipts: notifications,
			Logger:   deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one in-memory store. The store is
// exposed so callers can seed it.
func NewInMemoryModule(viewerID string, publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Polls:         store,
		Memberships:   store,
		Notifications: store,
		Posts:         store,
		Publisher:     publisher,
		Clock:         store,
		IDGen:         store,
		ViewerID:      viewerID,
		Logger:        logger,
	})
	module.Store = store
	return module
}

// AttachRefresher builds a view refresher over the module's projector and
// points the feed handler at it. Build the HTTP server after attaching.
func (m *Module) AttachRefresher(subscriber ports.EventSubscriber, logger *slog.Logger) *workers.ViewRefresher {
	refresher := &workers.ViewRefresher{
		Subscriber: subscriber,
		Composer:   m.View,
		Logger:     logger,
	}
	m.Handler.Views = refresher
	return refresher
}

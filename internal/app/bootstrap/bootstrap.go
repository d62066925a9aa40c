package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	engagementengine "engagement/contexts/community-experience/engagement-engine"
	"engagement/contexts/community-experience/engagement-engine/adapters/memory"
	postgresadapter "engagement/contexts/community-experience/engagement-engine/adapters/postgres"
	"engagement/contexts/community-experience/engagement-engine/application/workers"
	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	"engagement/internal/platform/config"
	"engagement/internal/platform/db"
	"engagement/internal/platform/httpserver"
	"engagement/internal/platform/logging"
	"engagement/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// Session is one viewer's engine set bound to a backing store.
type Session struct {
	Config   config.Config
	Module   engagementengine.Module
	Bus      *messaging.Bus
	Postgres *db.Postgres
	Logger   *slog.Logger

	pollIDs func(ctx context.Context) ([]string, error)
}

type APIApp struct {
	session    *Session
	server     *httpserver.Server
	background backgroundLoop
	logger     *slog.Logger
}

// backgroundLoop runs the receipt retrier on an interval and keeps the view
// refresher subscribed to engine change events.
type backgroundLoop struct {
	retrier       workers.ReceiptRetrier
	refresher     *workers.ViewRefresher
	retryInterval time.Duration
}

// OpenSession selects PostgreSQL when a DSN is configured and the in-memory
// store otherwise, optionally seeded from SEED_FILE.
func OpenSession(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bus := messaging.NewBus(logger)
	session := &Session{
		Config: cfg,
		Bus:    bus,
		Logger: logger,
	}

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err := db.Connect(ctx, cfg.PostgresDSN, 5*time.Second)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		session.Postgres = pg
		session.pollIDs = repo.ListPollIDs
		session.Module = engagementengine.NewModule(engagementengine.Dependencies{
			Polls:                  repo,
			Memberships:            repo,
			Notifications:          repo,
			Posts:                  repo,
			Publisher:              bus,
			Clock:                  postgresadapter.SystemClock{},
			IDGen:                  postgresadapter.UUIDGenerator{},
			ViewerID:               cfg.ViewerID,
			NotificationFetchLimit: cfg.NotificationFetchLimit,
			Logger:                 logger,
		})
	} else {
		module := engagementengine.NewInMemoryModule(cfg.ViewerID, bus, logger)
		if cfg.SeedFile != "" {
			if err := memory.LoadSeedFile(module.Store, cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		session.Module = module
		session.pollIDs = func(context.Context) ([]string, error) {
			return module.Store.PollIDs(), nil
		}
	}

	if err := session.Module.Notifications.Fetch(ctx); err != nil && !errors.Is(err, domainerrors.ErrStaleResponse) {
		_ = session.Close()
		return nil, fmt.Errorf("initial notification fetch: %w", err)
	}
	return session, nil
}

// LoadAllPolls pulls every known poll into the poll engine.
func (s *Session) LoadAllPolls(ctx context.Context) error {
	ids, err := s.pollIDs(ctx)
	if err != nil {
		return err
	}
	if err := s.Module.Polls.Refresh(ctx, ids...); err != nil && !errors.Is(err, domainerrors.ErrStaleResponse) {
		return err
	}
	return nil
}

func (s *Session) Close() error {
	s.Module.Notifications.Wait()
	if s.Postgres != nil {
		return s.Postgres.Close()
	}
	return nil
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName, "process", "api")

	session, err := OpenSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	background := newBackgroundLoop(session)
	server := httpserver.New(session.Module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		session:    session,
		server:     server,
		background: background,
		logger:     logger,
	}, nil
}

// newBackgroundLoop attaches the view refresher to the session's feed handler,
// so it must run before the HTTP server is built.
func newBackgroundLoop(session *Session) backgroundLoop {
	loop := backgroundLoop{
		retryInterval: session.Config.ReceiptRetryInterval,
	}
	if session.Config.EnableReceiptRetrier {
		loop.retrier = session.Module.Retrier
	}
	if session.Config.EnableViewRefresher {
		loop.refresher = session.Module.AttachRefresher(session.Bus, session.Logger)
	}
	return loop
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		return a.background.run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.session.Close()
}

func (l backgroundLoop) run(ctx context.Context) error {
	if l.refresher != nil {
		if err := l.refresher.Start(ctx); err != nil {
			return err
		}
	}
	interval := l.retryInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := l.retrier.RunOnce(ctx); err != nil {
			return err
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

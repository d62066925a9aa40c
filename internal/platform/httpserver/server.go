package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	engagementengine "engagement/contexts/community-experience/engagement-engine"
	engagementhttp "engagement/contexts/community-experience/engagement-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "engagement/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	engagement engagementengine.Module
	http       *http.Server
}

func New(
	engagement engagementengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		engagement: engagement,
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /v1/feed", s.handleFeed)

	s.mux.HandleFunc("GET /v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/selections", s.handleSelectOption)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/revert", s.handleRevertPoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/resync", s.handleResyncPoll)

	s.mux.HandleFunc("GET /v1/likes/{entity_id}", s.handleGetLike)
	s.mux.HandleFunc("POST /v1/likes/{entity_id}/toggle", s.handleToggleLike)

	s.mux.HandleFunc("GET /v1/notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /v1/notifications/refresh", s.handleRefreshNotifications)
	s.mux.HandleFunc("POST /v1/notifications/read-all", s.handleMarkAllNotificationsRead)
	s.mux.HandleFunc("POST /v1/notifications/{notification_id}/read", s.handleMarkNotificationRead)
	s.mux.HandleFunc("POST /v1/notifications/{notification_id}/press", s.handlePressNotification)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeEngagementError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, engagementhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

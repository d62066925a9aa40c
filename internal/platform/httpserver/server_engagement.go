package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	domainerrors "engagement/contexts/community-experience/engagement-engine/domain/errors"
	engagementhttp "engagement/contexts/community-experience/engagement-engine/transport/http"
)

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.FeedHandler(r.Context(), r.URL.Query().Get("tab"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.GetPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	var req engagementhttp.SelectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEngagementError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engagement.Handler.SelectOptionHandler(r.Context(), r.PathValue("poll_id"), req)
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.CastVoteHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevertPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.RevertPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResyncPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.ResyncPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLike(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.GetLikeHandler(r.Context(), r.PathValue("entity_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.ToggleLikeHandler(r.Context(), r.PathValue("entity_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.ListNotificationsHandler(r.Context(), r.URL.Query().Get("tab"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshNotifications(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.RefreshNotificationsHandler(r.Context(), r.URL.Query().Get("tab"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.MarkNotificationReadHandler(r.Context(), r.PathValue("notification_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.MarkAllNotificationsReadHandler(r.Context())
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePressNotification(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engagement.Handler.PressNotificationHandler(r.Context(), r.PathValue("notification_id"))
	if err != nil {
		s.writeEngagementDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngagementDomainError maps engine errors to responses. A stale
// response is not a failure: the request was superseded, so nothing is sent.
func (s *Server) writeEngagementDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrStaleResponse):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domainerrors.ErrSubmissionInFlight),
		errors.Is(err, domainerrors.ErrToggleInFlight):
		writeEngagementError(w, http.StatusConflict, "in_flight", err.Error())
	case errors.Is(err, domainerrors.ErrPollNotFound),
		errors.Is(err, domainerrors.ErrCounterNotFound),
		errors.Is(err, domainerrors.ErrNotificationNotFound):
		writeEngagementError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domainerrors.ErrStore):
		s.logger.Warn("engagement store call failed",
			"event", "http_engagement_store_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeEngagementError(w, http.StatusBadGateway, "store_unavailable", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidTab),
		errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrUnknownNotificationType):
		writeEngagementError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrValidation):
		writeEngagementError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domainerrors.ErrConflict):
		writeEngagementError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("engagement request failed",
			"event", "http_engagement_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeEngagementError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

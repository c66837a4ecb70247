package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/user"
)

type ClickRecorder interface {
	MarkClicked(ctx context.Context, id uuid.UUID) error
}

// TrackingHandler serves the link embedded in notification mails.
type TrackingHandler struct {
	users        ClickRecorder
	dashboardURL string
}

func NewTrackingHandler(users ClickRecorder, dashboardURL string) *TrackingHandler {
	return &TrackingHandler{users: users, dashboardURL: dashboardURL}
}

func (h *TrackingHandler) EmailClick(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "user")
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.users.MarkClicked(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to record email click", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.Redirect(w, r, h.dashboardURL, http.StatusFound)
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/audit"
	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/settings"
)

// Settings returns every stored setting, the users that can receive
// notifications and a snapshot of the notification queue.
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.All(r.Context())
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}
	stats, err := h.queue.Status(r.Context())
	if err != nil {
		slog.Warn("failed to read queue status", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings":    all,
		"users":       users,
		"queue_stats": stats,
	})
}

type updateSettingsRequest struct {
	Settings map[string]json.RawMessage `json:"settings"`
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Settings) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "settings is required")
		return
	}

	values := make(map[string]settings.Value, len(req.Settings))
	keys := make([]string, 0, len(req.Settings))
	for k, raw := range req.Settings {
		if k == "" {
			writeError(w, http.StatusUnprocessableEntity, "setting keys must not be empty")
			return
		}
		v, err := settings.ValueFromJSON(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid value for "+k)
			return
		}
		values[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := h.settings.SetMany(r.Context(), values); err != nil {
		slog.Error("failed to save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.record(r, audit.ActionSettingsUpdate, "setting", nil, map[string]interface{}{"keys": keys})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings updated successfully"})
}

type notifyRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

// NotifyUpdate queues a "reports updated" mail for each selected user.
func (h *AdminHandler) NotifyUpdate(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.notifier.NotifyReportUpdated(r.Context(), req.UserIDs)
	if errors.Is(err, notify.ErrNoRecipients) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil && res.Queued == 0 {
		slog.Error("failed to queue notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue notifications")
		return
	}

	h.record(r, audit.ActionNotifySend, "user", nil, map[string]interface{}{
		"user_ids": req.UserIDs,
		"queued":   res.Queued,
		"failed":   res.Failed,
	})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Notifications queued for sending",
		"queued":  res.Queued,
		"failed":  res.Failed,
	})
}

// TestMail sends the notification synchronously to the current user.
func (h *AdminHandler) TestMail(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.notifier.SendTest(r.Context(), u); err != nil {
		slog.Error("test mail failed", "user_id", u.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to send test email: "+err.Error())
		return
	}

	h.record(r, audit.ActionMailTest, "user", &u.ID, nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Test email sent to " + u.Email})
}

func (h *AdminHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Status(r.Context())
	if err != nil {
		slog.Error("failed to read queue status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

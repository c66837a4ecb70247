package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/audit"
	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/models"
	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/queue"
	"github.com/nikhilbhutani/reportportal/internal/settings"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, f user.Filter) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.UserSummary, error)
	Stats(ctx context.Context) (user.Stats, error)
	Activity(ctx context.Context, page int) (*user.ActivityPage, error)
	ClearActivity(ctx context.Context) (int64, error)
	Create(ctx context.Context, in user.CreateInput) (*models.User, error)
	Update(ctx context.Context, actorID, id uuid.UUID, in user.UpdateInput) (*models.User, bool, error)
	ToggleStatus(ctx context.Context, actorID, id uuid.UUID) (*models.User, error)
	BulkUpdateStatus(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID, active bool) (user.BulkResult, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	RecordLogout(ctx context.Context, id uuid.UUID) error
}

type SessionRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
}

type SettingsStore interface {
	All(ctx context.Context) (map[string]interface{}, error)
	Strings(ctx context.Context, key string) ([]string, error)
	SetMany(ctx context.Context, values map[string]settings.Value) error
}

type Notifier interface {
	NotifyReportUpdated(ctx context.Context, userIDs []uuid.UUID) (notify.DispatchResult, error)
	SendTest(ctx context.Context, u *models.User) error
}

type QueueMonitor interface {
	Status(ctx context.Context) (queue.Status, error)
}

type AuditLog interface {
	Log(ctx context.Context, entry audit.LogEntry) error
	List(ctx context.Context, q audit.AuditQuery) ([]models.AuditLog, error)
}

type AdminHandler struct {
	users    UserService
	settings SettingsStore
	notifier Notifier
	queue    QueueMonitor
	audit    AuditLog
	sessions SessionRevoker
}

func NewAdminHandler(users UserService, st SettingsStore, notifier Notifier, q QueueMonitor, al AuditLog, sessions SessionRevoker) *AdminHandler {
	return &AdminHandler{users: users, settings: st, notifier: notifier, queue: q, audit: al, sessions: sessions}
}

// record writes an audit entry. Failures are logged and never fail the request.
func (h *AdminHandler) record(r *http.Request, action, resourceType string, resourceID *uuid.UUID, details map[string]interface{}) {
	err := h.audit.Log(r.Context(), audit.LogEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    r.RemoteAddr,
	})
	if err != nil {
		slog.Warn("failed to write audit log", "action", action, "error", err)
	}
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrInvalidInput), errors.Is(err, user.ErrNoChanges):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, user.ErrSelfAction), errors.Is(err, user.ErrSelfDemotion):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("user operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := user.Filter{
		Search: r.URL.Query().Get("search"),
		Status: user.Status(r.URL.Query().Get("status")),
	}

	users, err := h.users.List(r.Context(), f)
	if err != nil {
		writeUserError(w, err)
		return
	}
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":        users,
		"filters":      map[string]string{"search": f.Search, "status": string(f.Status)},
		"total_users":  stats.Total,
		"active_users": stats.Active,
		"online_users": stats.Online,
	})
}

// UserDefaults returns the values the create form is pre-filled with.
func (h *AdminHandler) UserDefaults(w http.ResponseWriter, r *http.Request) {
	pages, err := h.settings.Strings(r.Context(), settings.KeyDefaultUserPages)
	if err != nil {
		slog.Error("failed to load default pages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"default_pages": pages})
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.users.Create(r.Context(), in)
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionUserCreate, "user", &u.ID, map[string]interface{}{"email": u.Email, "is_master": u.IsMaster})
	writeJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in user.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, reauth, err := h.users.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, in)
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionUserUpdate, "user", &u.ID, map[string]interface{}{
		"email":            u.Email,
		"is_master":        u.IsMaster,
		"is_active":        u.IsActive,
		"password_changed": in.Password != "",
	})
	if reauth {
		if err := h.endSession(r); err != nil {
			slog.Error("failed to revoke token after password change", "user_id", u.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": u, "reauth_required": reauth})
}

// endSession logs the caller out and revokes the token the request carried.
func (h *AdminHandler) endSession(r *http.Request) error {
	ctx := r.Context()
	actorID := auth.UserIDFromContext(ctx)
	if err := h.users.RecordLogout(ctx, actorID); err != nil {
		slog.Warn("failed to record logout", "user_id", actorID, "error", err)
	}
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		return h.sessions.Revoke(ctx, claims)
	}
	return nil
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionUserDelete, "user", &id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.ToggleStatus(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionUserToggle, "user", &u.ID, map[string]interface{}{"is_active": u.IsActive})
	writeJSON(w, http.StatusOK, u)
}

type bulkStatusRequest struct {
	UserIDs  []uuid.UUID `json:"user_ids"`
	IsActive *bool       `json:"is_active"`
}

func (h *AdminHandler) BulkUserStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.UserIDs) == 0 || req.IsActive == nil {
		writeError(w, http.StatusUnprocessableEntity, "user_ids and is_active are required")
		return
	}

	res, err := h.users.BulkUpdateStatus(r.Context(), auth.UserIDFromContext(r.Context()), req.UserIDs, *req.IsActive)
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionUserBulkStatus, "user", nil, map[string]interface{}{
		"user_ids":  req.UserIDs,
		"is_active": *req.IsActive,
		"updated":   res.Updated,
	})

	verb := "activated"
	if !*req.IsActive {
		verb = "deactivated"
	}
	msg := strconv.FormatInt(res.Updated, 10) + " user(s) " + verb + " successfully"
	if res.SelfExcluded {
		msg += " (your own account was skipped)"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       msg,
		"updated":       res.Updated,
		"self_excluded": res.SelfExcluded,
	})
}

func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	p, err := h.users.Activity(r.Context(), page)
	if err != nil {
		writeUserError(w, err)
		return
	}
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activity":     p,
		"total_users":  stats.Total,
		"online_users": stats.Online,
	})
}

func (h *AdminHandler) ClearActivity(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.ClearActivity(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.record(r, audit.ActionActivityClear, "user", nil, map[string]interface{}{"cleared": n})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All user activity data has been cleared",
		"cleared": n,
	})
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.AuditQuery{
		Action: r.URL.Query().Get("action"),
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if s := r.URL.Query().Get("actor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid actor_id")
			return
		}
		q.ActorID = &id
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.audit.List(r.Context(), q)
	if err != nil {
		slog.Error("failed to list audit logs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}

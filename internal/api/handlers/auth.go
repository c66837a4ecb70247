package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/models"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID) error
	RecordLogout(ctx context.Context, id uuid.UUID) error
}

type TokenIssuer interface {
	IssueToken(u *models.User) (string, time.Time, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

type AuthHandler struct {
	users  Authenticator
	tokens TokenIssuer
}

func NewAuthHandler(users Authenticator, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, user.ErrInvalidLogin):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, user.ErrInactive):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, expires, err := h.tokens.IssueToken(u)
	if err != nil {
		slog.Error("failed to issue token", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.users.RecordLogin(r.Context(), u.ID); err != nil {
		slog.Warn("failed to record login", "user_id", u.ID, "error", err)
	}

	slog.Info("user logged in", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expires,
		"user":       u,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err := h.users.RecordLogout(r.Context(), u.ID); err != nil {
		slog.Warn("failed to record logout", "user_id", u.ID, "error", err)
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		if err := h.tokens.Revoke(r.Context(), claims); err != nil {
			slog.Error("failed to revoke token", "user_id", u.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

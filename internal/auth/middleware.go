package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/models"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

const (
	revokedKeyPrefix = "auth_revoked_"

	// Last activity is written at most once per resolution per user.
	activityResolution = time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserStore is what the middleware needs from the user service.
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchActivity(ctx context.Context, id uuid.UUID) error
}

// Denylist remembers revoked token ids until they would have expired anyway.
type Denylist interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

type JWTMiddleware struct {
	secret   []byte
	ttl      time.Duration
	users    UserStore
	denylist Denylist
	now      func() time.Time
}

func NewJWTMiddleware(secret string, ttl time.Duration, users UserStore, denylist Denylist) *JWTMiddleware {
	return &JWTMiddleware{
		secret:   []byte(secret),
		ttl:      ttl,
		users:    users,
		denylist: denylist,
		now:      time.Now,
	}
}

// IssueToken signs a session token for u.
func (m *JWTMiddleware) IssueToken(u *models.User) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its claims.
func (m *JWTMiddleware) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Revoke invalidates the token described by claims until its expiry.
func (m *JWTMiddleware) Revoke(ctx context.Context, claims *Claims) error {
	if m.denylist == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.denylist.Set(ctx, revokedKeyPrefix+claims.ID, true, ttl)
}

func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := m.Parse(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := r.Context()

		if m.denylist != nil && claims.ID != "" {
			revoked, err := m.denylist.Exists(ctx, revokedKeyPrefix+claims.ID)
			if err != nil {
				slog.Warn("token denylist lookup failed", "error", err)
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "token revoked")
				return
			}
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		u, err := m.users.Get(ctx, userID)
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		if err != nil {
			slog.Error("failed to load token subject", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !u.IsActive {
			writeError(w, http.StatusForbidden, "account is inactive")
			return
		}

		now := m.now()
		if u.LastActivityAt == nil || now.Sub(*u.LastActivityAt) >= activityResolution {
			if err := m.users.TouchActivity(ctx, u.ID); err != nil {
				slog.Warn("failed to record activity", "user_id", u.ID, "error", err)
			} else {
				u.LastActivityAt = &now
			}
		}

		ctx = WithUser(ctx, u)
		ctx = WithClaims(ctx, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

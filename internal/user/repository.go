package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/models"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
	ErrSelfAction   = errors.New("action not allowed on your own account")
	ErrSelfDemotion = errors.New("you cannot remove your own master status or deactivate yourself")
	ErrNoChanges    = errors.New("no changes allowed for your own account")
	ErrInvalidLogin = errors.New("invalid email or password")
	ErrInactive     = errors.New("account is inactive")
)

// Status filters the user list by activation state.
type Status string

const (
	StatusAny      Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Filter struct {
	Search string
	Status Status
}

type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Online int `json:"online"`
}

// Stamp names one of the tracked per-user timestamps.
type Stamp int

const (
	StampLastLogin Stamp = iota
	StampLastActivity
	StampEmailNotified
	StampEmailClicked
)

func (s Stamp) column() string {
	switch s {
	case StampLastLogin:
		return "last_login_at"
	case StampLastActivity:
		return "last_activity_at"
	case StampEmailNotified:
		return "email_notified_at"
	case StampEmailClicked:
		return "email_clicked_at"
	}
	panic("user: unknown stamp")
}

// Repository is the persistence boundary of the user service.
type Repository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	List(ctx context.Context, f Filter) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.UserSummary, error)
	Stats(ctx context.Context, onlineSince time.Time) (Stats, error)
	// Activity returns one page ordered by last activity, never-active
	// users last, and the total number of users.
	Activity(ctx context.Context, limit, offset int) ([]models.User, int, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error)
	// Stamp sets one timestamp column for ids; a nil at clears it.
	Stamp(ctx context.Context, s Stamp, at *time.Time, ids ...uuid.UUID) error
	ClearActivity(ctx context.Context) (int64, error)
}

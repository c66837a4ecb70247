package models

import (
	"time"

	"github.com/google/uuid"
)

// OnlineWindow is how recent last activity must be for a user to count as online.
const OnlineWindow = 5 * time.Minute

type User struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Email           string     `json:"email" db:"email"`
	PasswordHash    string     `json:"-" db:"password_hash"`
	Phone           *string    `json:"phone,omitempty" db:"phone"`
	CompanyName     *string    `json:"company_name,omitempty" db:"company_name"`
	IsMaster        bool       `json:"is_master" db:"is_master"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	AllowedPages    []string   `json:"allowed_pages" db:"allowed_pages"`
	TenantID        *string    `json:"tenant_id,omitempty" db:"tenant_id"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`
	EmailNotifiedAt *time.Time `json:"email_notified_at,omitempty" db:"email_notified_at"`
	EmailClickedAt  *time.Time `json:"email_clicked_at,omitempty" db:"email_clicked_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOnline reports whether the user was active within OnlineWindow of now.
// A logout clears LastActivityAt, so a logged-out user is never online.
func (u *User) IsOnline(now time.Time) bool {
	return u.LastActivityAt != nil && u.LastActivityAt.After(now.Add(-OnlineWindow))
}

// UserSummary is the short form used in recipient pickers.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsMaster bool      `json:"is_master"`
}

// ActivityEntry is one row of the user activity report.
type ActivityEntry struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	IsMaster   bool       `json:"is_master"`
	IsOnline   bool       `json:"is_online"`
	LastLogin  *time.Time `json:"last_login"`
	LastActive *time.Time `json:"last_activity"`
	NotifiedAt *time.Time `json:"notified_at"`
	ClickedAt  *time.Time `json:"clicked_at"`
}

// NewActivityEntry projects a user into the activity report as of now.
func NewActivityEntry(u *User, now time.Time) ActivityEntry {
	return ActivityEntry{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsMaster:   u.IsMaster,
		IsOnline:   u.IsOnline(now),
		LastLogin:  u.LastLoginAt,
		LastActive: u.LastActivityAt,
		NotifiedAt: u.EmailNotifiedAt,
		ClickedAt:  u.EmailClickedAt,
	}
}

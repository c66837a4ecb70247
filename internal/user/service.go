package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikhilbhutani/reportportal/internal/models"
)

// ActivityPageSize is the number of users per activity report page.
const ActivityPageSize = 12

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	repo     Repository
	validate *validator.Validate
	hashCost int
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

type CreateInput struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Email        string   `json:"email" validate:"required,email,max=255"`
	Password     string   `json:"password" validate:"required,min=8,max=72"`
	Phone        *string  `json:"phone" validate:"omitempty,max=20"`
	CompanyName  *string  `json:"company_name" validate:"omitempty,max=255"`
	IsMaster     bool     `json:"is_master"`
	IsActive     *bool    `json:"is_active"`
	AllowedPages []string `json:"allowed_pages"`
	TenantID     *string  `json:"tenant_id"`
}

type UpdateInput struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Email        string   `json:"email" validate:"required,email,max=255"`
	Password     string   `json:"password" validate:"omitempty,min=8,max=72"`
	Phone        *string  `json:"phone" validate:"omitempty,max=20"`
	CompanyName  *string  `json:"company_name" validate:"omitempty,max=255"`
	IsMaster     bool     `json:"is_master"`
	IsActive     bool     `json:"is_active"`
	AllowedPages []string `json:"allowed_pages"`
}

type ActivityPage struct {
	Users    []models.ActivityEntry `json:"users"`
	Page     int                    `json:"page"`
	PerPage  int                    `json:"per_page"`
	Total    int                    `json:"total"`
	LastPage int                    `json:"last_page"`
}

type BulkResult struct {
	Updated      int64 `json:"updated"`
	SelfExcluded bool  `json:"self_excluded"`
}

func (s *Service) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s may not be longer than %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func (s *Service) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func cleanPages(pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetMany loads the given users, silently skipping unknown ids.
func (s *Service) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.repo.GetMany(ctx, ids)
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.User, error) {
	switch f.Status {
	case StatusAny, StatusActive, StatusInactive:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListActive(ctx context.Context) ([]models.UserSummary, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx, s.now().Add(-models.OnlineWindow))
}

// Activity returns one page of the activity report. Pages start at 1.
func (s *Service) Activity(ctx context.Context, page int) (*ActivityPage, error) {
	if page < 1 {
		page = 1
	}
	users, total, err := s.repo.Activity(ctx, ActivityPageSize, (page-1)*ActivityPageSize)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := make([]models.ActivityEntry, 0, len(users))
	for i := range users {
		entries = append(entries, models.NewActivityEntry(&users[i], now))
	}

	lastPage := (total + ActivityPageSize - 1) / ActivityPageSize
	if lastPage < 1 {
		lastPage = 1
	}
	return &ActivityPage{
		Users:    entries,
		Page:     page,
		PerPage:  ActivityPageSize,
		Total:    total,
		LastPage: lastPage,
	}, nil
}

// ClearActivity resets the tracked timestamps of every user.
func (s *Service) ClearActivity(ctx context.Context) (int64, error) {
	return s.repo.ClearActivity(ctx)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		CompanyName:  in.CompanyName,
		IsMaster:     in.IsMaster,
		IsActive:     in.IsActive == nil || *in.IsActive,
		AllowedPages: cleanPages(in.AllowedPages),
		TenantID:     in.TenantID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies in to the user id on behalf of actorID. The returned
// boolean is true when the actor changed their own password and must log in
// again.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, in UpdateInput) (*models.User, bool, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return nil, false, err
	}

	self := actorID == id
	if self && (!in.IsMaster || !in.IsActive) {
		return nil, false, ErrSelfDemotion
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	u.Name = strings.TrimSpace(in.Name)
	u.Email = in.Email
	u.Phone = in.Phone
	u.CompanyName = in.CompanyName
	u.IsMaster = in.IsMaster
	u.IsActive = in.IsActive
	u.AllowedPages = cleanPages(in.AllowedPages)

	passwordChanged := in.Password != ""
	if passwordChanged {
		if u.PasswordHash, err = s.hash(in.Password); err != nil {
			return nil, false, err
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, false, err
	}
	return u, self && passwordChanged, nil
}

// ToggleStatus flips the active flag of id. Actors cannot toggle themselves.
func (s *Service) ToggleStatus(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	if actorID == id {
		return nil, ErrSelfAction
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	if _, err := s.repo.SetActive(ctx, []uuid.UUID{id}, u.IsActive); err != nil {
		return nil, err
	}
	return u, nil
}

// BulkUpdateStatus sets the active flag on ids. When deactivating, the actor
// is removed from the set; an empty remaining set is ErrNoChanges.
func (s *Service) BulkUpdateStatus(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID, active bool) (BulkResult, error) {
	var res BulkResult
	seen := make(map[uuid.UUID]struct{}, len(ids))
	targets := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if !active && id == actorID {
			res.SelfExcluded = true
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return res, ErrNoChanges
	}

	n, err := s.repo.SetActive(ctx, targets, active)
	if err != nil {
		return res, err
	}
	res.Updated = n
	return res, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrSelfAction
	}
	return s.repo.Delete(ctx, id)
}

// Authenticate verifies credentials. Unknown emails and wrong passwords both
// yield ErrInvalidLogin.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return u, nil
}

// RecordLogin stamps the login time; a login also counts as activity.
func (s *Service) RecordLogin(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	if err := s.repo.Stamp(ctx, StampLastLogin, &now, id); err != nil {
		return err
	}
	return s.repo.Stamp(ctx, StampLastActivity, &now, id)
}

// RecordLogout clears last activity so the user drops out of the online
// count immediately.
func (s *Service) RecordLogout(ctx context.Context, id uuid.UUID) error {
	return s.repo.Stamp(ctx, StampLastActivity, nil, id)
}

func (s *Service) TouchActivity(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	return s.repo.Stamp(ctx, StampLastActivity, &now, id)
}

func (s *Service) MarkNotified(ctx context.Context, at time.Time, ids ...uuid.UUID) error {
	return s.repo.Stamp(ctx, StampEmailNotified, &at, ids...)
}

// MarkClicked records that the user followed the link in a notification.
func (s *Service) MarkClicked(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	now := s.now()
	return s.repo.Stamp(ctx, StampEmailClicked, &now, id)
}

// Upsert creates or updates the account for in.Email. It is used for
// seeding and always sets the password.
func (s *Service) Upsert(ctx context.Context, in CreateInput) (*models.User, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, ErrNotFound) {
		return s.Create(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	if err := s.check(in); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.PasswordHash = hash
	existing.IsMaster = in.IsMaster
	existing.IsActive = in.IsActive == nil || *in.IsActive
	if in.AllowedPages != nil {
		existing.AllowedPages = cleanPages(in.AllowedPages)
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/reportportal/internal/models"
)

const userColumns = `id, name, email, password_hash, phone, company_name, is_master, is_active,
	allowed_pages, tenant_id, last_login_at, last_activity_at, email_notified_at, email_clicked_at,
	created_at, updated_at`

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var pages []byte
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.CompanyName,
		&u.IsMaster, &u.IsActive, &pages, &u.TenantID, &u.LastLoginAt, &u.LastActivityAt,
		&u.EmailNotifiedAt, &u.EmailClickedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.AllowedPages = []string{}
	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &u.AllowedPages); err != nil {
			return nil, fmt.Errorf("decode allowed pages: %w", err)
		}
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func encodePages(pages []string) ([]byte, error) {
	if pages == nil {
		pages = []string{}
	}
	return json.Marshal(pages)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	pages, err := encodePages(u.AllowedPages)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, phone, company_name, is_master, is_active, allowed_pages, tenant_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.CompanyName, u.IsMaster, u.IsActive, pages, u.TenantID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return collectUsers(rows)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]models.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	switch f.Status {
	case StatusActive:
		where = append(where, "is_active")
	case StatusInactive:
		where = append(where, "NOT is_active")
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collectUsers(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email, is_master FROM users WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	out := []models.UserSummary{}
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.IsMaster); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Stats(ctx context.Context, onlineSince time.Time) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE is_active),
		        count(*) FILTER (WHERE last_activity_at > $1)
		 FROM users`, onlineSince,
	).Scan(&s.Total, &s.Active, &s.Online)
	if err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Activity(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY last_activity_at DESC NULLS LAST, name
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *models.User) error {
	pages, err := encodePages(u.AllowedPages)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`UPDATE users
		 SET name = $2, email = $3, password_hash = $4, phone = $5, company_name = $6,
		     is_master = $7, is_active = $8, allowed_pages = $9, tenant_id = $10, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.CompanyName,
		u.IsMaster, u.IsActive, pages, u.TenantID,
	).Scan(&u.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrEmailTaken
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = ANY($1)`, ids, active)
	if err != nil {
		return 0, fmt.Errorf("update user status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) Stamp(ctx context.Context, s Stamp, at *time.Time, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $2 WHERE id = ANY($1)`, s.column()), ids, at)
	if err != nil {
		return fmt.Errorf("stamp %s: %w", s.column(), err)
	}
	return nil
}

func (r *PostgresRepository) ClearActivity(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET last_login_at = NULL, last_activity_at = NULL,
		     email_notified_at = NULL, email_clicked_at = NULL`)
	if err != nil {
		return 0, fmt.Errorf("clear activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

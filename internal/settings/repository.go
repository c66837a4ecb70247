package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/reportportal/internal/models"
)

var ErrNotFound = errors.New("setting not found")

// Repository persists settings rows keyed by name.
type Repository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, rows ...models.Setting) error
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var s models.Setting
	err := r.db.QueryRow(ctx,
		`SELECT key, COALESCE(value, ''), kind, updated_at FROM settings WHERE key = $1`, key,
	).Scan(&s.Key, &s.Value, &s.Kind, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return &s, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, COALESCE(value, ''), kind, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Kind, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert writes all rows in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, rows ...models.Setting) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO settings (key, value, kind, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (key) DO UPDATE
			 SET value = EXCLUDED.value, kind = EXCLUDED.kind, updated_at = now()`,
			s.Key, s.Value, s.Kind,
		)
		if err != nil {
			return fmt.Errorf("upsert setting %s: %w", s.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/models"
)

// Recorded admin actions.
const (
	ActionUserCreate     = "user.create"
	ActionUserUpdate     = "user.update"
	ActionUserDelete     = "user.delete"
	ActionUserToggle     = "user.toggle_status"
	ActionUserBulkStatus = "user.bulk_status"
	ActionActivityClear  = "activity.clear"
	ActionSettingsUpdate = "settings.update"
	ActionNotifySend     = "notify.report_updated"
	ActionMailTest       = "mail.test"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
}

// Log records entry on behalf of the authenticated user in ctx.
func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	var actorID *uuid.UUID
	if user := auth.UserFromContext(ctx); user != nil {
		actorID = &user.ID
	}

	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, resource_type, resource_id, details, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		actorID, entry.Action, entry.ResourceType, entry.ResourceID, detailsJSON, parseIP(entry.IPAddress),
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		addr := ap.Addr()
		return &addr
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return &addr
	}
	return nil
}

type AuditQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	ActorID   *uuid.UUID
	Limit     int
	Offset    int
}

func buildListQuery(q AuditQuery) (string, []interface{}) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	query := `SELECT id, actor_id, action, COALESCE(resource_type, ''), resource_id, details, ip_address, created_at
			  FROM audit_logs WHERE true`
	var args []interface{}
	argIdx := 1

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.ActorID != nil {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *q.ActorID)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)
	return query, args
}

func (s *Service) List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	query, args := buildListQuery(q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		query, args := buildListQuery(AuditQuery{})
		assert.Contains(t, query, "LIMIT $1 OFFSET $2")
		assert.Equal(t, []interface{}{defaultLimit, 0}, args)
	})

	t.Run("all filters", func(t *testing.T) {
		actor := uuid.New()
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)

		query, args := buildListQuery(AuditQuery{
			Action:    ActionUserDelete,
			ActorID:   &actor,
			StartDate: &start,
			EndDate:   &end,
			Limit:     10,
			Offset:    20,
		})
		assert.Contains(t, query, "action = $1")
		assert.Contains(t, query, "actor_id = $2")
		assert.Contains(t, query, "created_at >= $3")
		assert.Contains(t, query, "created_at <= $4")
		assert.Contains(t, query, "LIMIT $5 OFFSET $6")
		assert.Equal(t, []interface{}{ActionUserDelete, actor, start, end, 10, 20}, args)
	})

	t.Run("limit is capped", func(t *testing.T) {
		_, args := buildListQuery(AuditQuery{Limit: 10000, Offset: -5})
		assert.Equal(t, []interface{}{maxLimit, 0}, args)
	})
}

func TestParseIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{"203.0.113.7:52100", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"", ""},
		{"not-an-ip", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseIP(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

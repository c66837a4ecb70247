package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	HeartbeatKey      = "queue_worker_active"
	HeartbeatInterval = 30 * time.Second
	HeartbeatTTL      = 90 * time.Second
)

// HeartbeatStore is the slice of the cache used for the worker heartbeat.
type HeartbeatStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RunHeartbeat marks the worker alive until ctx is cancelled.
func RunHeartbeat(ctx context.Context, store HeartbeatStore, interval time.Duration) {
	beat := func() {
		if err := store.Set(ctx, HeartbeatKey, time.Now().UTC(), HeartbeatTTL); err != nil && ctx.Err() == nil {
			slog.Warn("worker heartbeat failed", "error", err)
		}
	}

	beat()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}

type Status struct {
	Pending   int       `json:"pending"`
	Failed    int       `json:"failed"`
	IsRunning bool      `json:"is_running"`
	LastCheck time.Time `json:"last_check"`
}

// Inspector is implemented by *asynq.Inspector.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

type Monitor struct {
	inspector Inspector
	store     HeartbeatStore
	now       func() time.Time
}

func NewMonitor(inspector Inspector, store HeartbeatStore) *Monitor {
	return &Monitor{inspector: inspector, store: store, now: time.Now}
}

// Status summarises the notification queue. Scheduled and retrying tasks
// count as pending; archived tasks are the ones that exhausted retries.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	st := Status{LastCheck: m.now().UTC()}

	info, err := m.inspector.GetQueueInfo(QueueDefault)
	switch {
	case errors.Is(err, asynq.ErrQueueNotFound):
		// Nothing has been enqueued yet.
	case err != nil:
		return st, fmt.Errorf("inspect queue: %w", err)
	default:
		st.Pending = info.Pending + info.Scheduled + info.Retry
		st.Failed = info.Archived
	}

	running, err := m.store.Exists(ctx, HeartbeatKey)
	if err != nil {
		return st, fmt.Errorf("check heartbeat: %w", err)
	}
	st.IsRunning = running
	return st, nil
}

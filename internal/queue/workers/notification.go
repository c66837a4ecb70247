package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/queue"
)

type NotificationWorker struct {
	mailer  notify.Mailer
	appName string
	appURL  string
}

func NewNotificationWorker(mailer notify.Mailer, appName, appURL string) *NotificationWorker {
	return &NotificationWorker{
		mailer:  mailer,
		appName: appName,
		appURL:  appURL,
	}
}

func (w *NotificationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ReportUpdatedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.Email == "" {
		return fmt.Errorf("payload has no recipient: %w", asynq.SkipRetry)
	}

	slog.Info("sending report update notification", "user_id", payload.UserID)

	msg, err := notify.BuildMessage(w.appName, w.appURL, payload)
	if err != nil {
		return fmt.Errorf("build message: %w: %w", err, asynq.SkipRetry)
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

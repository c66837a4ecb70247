package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/reportportal/internal/models"
	"github.com/nikhilbhutani/reportportal/internal/queue"
	"github.com/nikhilbhutani/reportportal/internal/settings"
)

// StaggerInterval spaces consecutive notifications of one batch.
const StaggerInterval = 5 * time.Second

var ErrNoRecipients = errors.New("no recipients selected")

type Recipients interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	MarkNotified(ctx context.Context, at time.Time, ids ...uuid.UUID) error
}

type TemplateSettings interface {
	String(ctx context.Context, key, def string) (string, error)
}

type Enqueuer interface {
	EnqueueReportUpdated(ctx context.Context, payload queue.ReportUpdatedPayload, processAt time.Time) error
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Dispatcher struct {
	users    Recipients
	settings TemplateSettings
	queue    Enqueuer
	mailer   Mailer
	appName  string
	appURL   string
	now      func() time.Time
}

func NewDispatcher(users Recipients, st TemplateSettings, q Enqueuer, mailer Mailer, appName, appURL string) *Dispatcher {
	return &Dispatcher{
		users:    users,
		settings: st,
		queue:    q,
		mailer:   mailer,
		appName:  appName,
		appURL:   appURL,
		now:      time.Now,
	}
}

type mailTemplate struct {
	title, intro, buttonText, footer string
}

func (d *Dispatcher) loadTemplate(ctx context.Context) (mailTemplate, error) {
	var (
		t   mailTemplate
		err error
	)
	if t.title, err = d.settings.String(ctx, settings.KeyEmailTitle, DefaultTitle); err != nil {
		return t, fmt.Errorf("load mail template: %w", err)
	}
	if t.intro, err = d.settings.String(ctx, settings.KeyEmailIntro, DefaultIntro); err != nil {
		return t, fmt.Errorf("load mail template: %w", err)
	}
	if t.buttonText, err = d.settings.String(ctx, settings.KeyEmailBtnText, DefaultButtonText); err != nil {
		return t, fmt.Errorf("load mail template: %w", err)
	}
	if t.footer, err = d.settings.String(ctx, settings.KeyEmailFooter, ""); err != nil {
		return t, fmt.Errorf("load mail template: %w", err)
	}
	return t, nil
}

func (d *Dispatcher) payload(u *models.User, t mailTemplate, now time.Time) queue.ReportUpdatedPayload {
	return queue.ReportUpdatedPayload{
		UserID:     u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		UpdateDate: now.Format(dateLayout),
		UpdateTime: now.Format(timeLayout),
		Title:      t.title,
		Intro:      t.intro,
		ButtonText: t.buttonText,
		Footer:     t.footer,
	}
}

type DispatchResult struct {
	Queued int `json:"queued"`
	Failed int `json:"failed"`
}

// NotifyReportUpdated schedules one "reports updated" mail per user, the
// first immediately and each following one StaggerInterval later. Users
// whose mail was queued are stamped as notified at dispatch time.
func (d *Dispatcher) NotifyReportUpdated(ctx context.Context, userIDs []uuid.UUID) (DispatchResult, error) {
	var res DispatchResult
	if len(userIDs) == 0 {
		return res, ErrNoRecipients
	}

	users, err := d.users.GetMany(ctx, userIDs)
	if err != nil {
		return res, fmt.Errorf("load recipients: %w", err)
	}
	if len(users) == 0 {
		return res, ErrNoRecipients
	}

	t, err := d.loadTemplate(ctx)
	if err != nil {
		return res, err
	}

	now := d.now()
	queued := make([]uuid.UUID, 0, len(users))
	var errs []error
	for i := range users {
		u := &users[i]
		processAt := now.Add(time.Duration(i) * StaggerInterval)
		if err := d.queue.EnqueueReportUpdated(ctx, d.payload(u, t, now), processAt); err != nil {
			slog.Error("failed to queue notification", "user_id", u.ID, "error", err)
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
			res.Failed++
			continue
		}
		queued = append(queued, u.ID)
		res.Queued++
	}

	if len(queued) > 0 {
		if err := d.users.MarkNotified(ctx, now, queued...); err != nil {
			errs = append(errs, fmt.Errorf("mark notified: %w", err))
		}
	}

	slog.Info("report update notifications queued", "queued", res.Queued, "failed", res.Failed)
	return res, errors.Join(errs...)
}

// SendTest renders the notification for u with the current template and
// delivers it synchronously.
func (d *Dispatcher) SendTest(ctx context.Context, u *models.User) error {
	t, err := d.loadTemplate(ctx)
	if err != nil {
		return err
	}
	msg, err := BuildMessage(d.appName, d.appURL, d.payload(u, t, d.now()))
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, msg)
}

package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/nikhilbhutani/reportportal/internal/settings"
)

var ErrNoMailServer = errors.New("no mail server configured")

// SMTPSource supplies the current mail server settings. The boolean is false
// when none are stored.
type SMTPSource interface {
	SMTP(ctx context.Context) (settings.SMTPSettings, bool, error)
}

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers messages over SMTP. Server settings are re-read for every
// message so changes made in the admin settings apply without a restart.
type Sender struct {
	source   SMTPSource
	fallback settings.SMTPSettings
	dial     func(settings.SMTPSettings) Dialer
}

func NewSender(source SMTPSource, fallback settings.SMTPSettings) *Sender {
	return &Sender{source: source, fallback: fallback, dial: newDialer}
}

func newDialer(cfg settings.SMTPSettings) Dialer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		d.SSL = true
	case "tls", "starttls":
		d.SSL = false
	}
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d
}

// resolve picks the stored settings, falling back to the environment.
func (s *Sender) resolve(ctx context.Context) (settings.SMTPSettings, error) {
	cfg, ok, err := s.source.SMTP(ctx)
	if err != nil {
		slog.Warn("failed to load mail settings, using environment", "error", err)
	}
	if err != nil || !ok {
		cfg = s.fallback
	}
	if cfg.Host == "" {
		return cfg, ErrNoMailServer
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = s.fallback.FromAddress
	}
	if cfg.FromName == "" {
		cfg.FromName = s.fallback.FromName
	}
	return cfg, nil
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	cfg, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", cfg.FromAddress, cfg.FromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dial(cfg).DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s via %s:%d: %w", msg.To, cfg.Host, cfg.Port, err)
	}
	slog.Info("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

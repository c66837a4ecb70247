package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/reportportal/internal/config"
	"github.com/nikhilbhutani/reportportal/internal/models"
)

// Well-known keys.
const (
	KeyDefaultUserPages = "default_user_pages"

	KeyEmailTitle   = "email_template_title"
	KeyEmailIntro   = "email_template_intro"
	KeyEmailBtnText = "email_template_btn_text"
	KeyEmailFooter  = "email_template_footer"

	KeyMailHost        = "mail_host"
	KeyMailPort        = "mail_port"
	KeyMailUsername    = "mail_username"
	KeyMailPassword    = "mail_password"
	KeyMailEncryption  = "mail_encryption"
	KeyMailFromAddress = "mail_from_address"
	KeyMailFromName    = "mail_from_name"
)

const (
	DefaultSMTPPort       = 587
	DefaultSMTPEncryption = "tls"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the value stored under key. The boolean is false when the key
// has never been set.
func (s *Service) Get(ctx context.Context, key string) (Value, bool, error) {
	row, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	return fromRow(*row), true, nil
}

// String returns the stored text of key, or def when the key is unset or
// empty.
func (s *Service) String(ctx context.Context, key, def string) (string, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok || v.Raw() == "" {
		return def, err
	}
	return v.Raw(), nil
}

func (s *Service) Bool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v.Bool(), nil
}

// Strings reads a list setting. JSON arrays are decoded; plain strings are
// treated as comma separated.
func (s *Service) Strings(ctx context.Context, key string) ([]string, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return []string{}, err
	}
	if v.Kind() == KindJSON {
		var out []string
		if err := v.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode setting %s: %w", key, err)
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	}
	return config.SplitList(v.Raw()), nil
}

// DecodeJSON decodes a structured setting into dest. It reports false when
// the key is unset.
func (s *Service) DecodeJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := v.Decode(dest); err != nil {
		return true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (s *Service) Set(ctx context.Context, key string, v Value) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	return s.repo.Upsert(ctx, v.row(key))
}

// SetMany upserts every entry atomically.
func (s *Service) SetMany(ctx context.Context, values map[string]Value) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "" {
			return fmt.Errorf("setting key is required")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]models.Setting, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, values[k].row(k))
	}
	return s.repo.Upsert(ctx, rows...)
}

// All returns every setting as plain values for display.
func (s *Service) All(ctx context.Context) (map[string]interface{}, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		out[row.Key] = fromRow(row).Interface()
	}
	return out, nil
}

type SMTPSettings struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Encryption  string
	FromAddress string
	FromName    string
}

// SMTP reads the mail server settings. The boolean is false when no host is
// configured, in which case callers fall back to the environment.
func (s *Service) SMTP(ctx context.Context) (SMTPSettings, bool, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return SMTPSettings{}, false, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if strings.HasPrefix(row.Key, "mail_") {
			values[row.Key] = strings.TrimSpace(row.Value)
		}
	}

	smtp := SMTPSettings{
		Host:        values[KeyMailHost],
		Port:        DefaultSMTPPort,
		Username:    values[KeyMailUsername],
		Password:    values[KeyMailPassword],
		Encryption:  values[KeyMailEncryption],
		FromAddress: values[KeyMailFromAddress],
		FromName:    values[KeyMailFromName],
	}
	if p, err := strconv.Atoi(values[KeyMailPort]); err == nil && p > 0 {
		smtp.Port = p
	}
	if smtp.Encryption == "" {
		smtp.Encryption = DefaultSMTPEncryption
	}
	return smtp, smtp.Host != "", nil
}

// FromMailConfig converts the environment fallback into SMTP settings.
func FromMailConfig(cfg config.MailConfig) SMTPSettings {
	smtp := SMTPSettings{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Encryption:  cfg.Encryption,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
	}
	if smtp.Port <= 0 {
		smtp.Port = DefaultSMTPPort
	}
	if smtp.Encryption == "" {
		smtp.Encryption = DefaultSMTPEncryption
	}
	return smtp
}

// SMTPValues is the inverse of SMTP, used by seeding.
func SMTPValues(smtp SMTPSettings) map[string]Value {
	return map[string]Value{
		KeyMailHost:        String(smtp.Host),
		KeyMailPort:        String(strconv.Itoa(smtp.Port)),
		KeyMailUsername:    String(smtp.Username),
		KeyMailPassword:    String(smtp.Password),
		KeyMailEncryption:  String(smtp.Encryption),
		KeyMailFromAddress: String(smtp.FromAddress),
		KeyMailFromName:    String(smtp.FromName),
	}
}

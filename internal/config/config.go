package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	PowerBI  PowerBIConfig
	Mail     MailConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	AllowOrigins []string
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PowerBIConfig holds the service principal and report identity used to
// embed the dashboard report.
type PowerBIConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	WorkspaceID  string
	ReportID     string
	RLSUsername  string
	RLSRoles     []string
	AuthorityURL string
	APIURL       string
	Scope        string
}

type MailConfig struct {
	AppName      string
	AppURL       string
	DashboardURL string
	Host         string
	Port         int
	Username     string
	Password     string
	Encryption   string
	FromAddress  string
	FromName     string
}

type QueueConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("AUTH_TOKEN_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
	}

	mailPort, err := getEnvInt("MAIL_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
	}

	concurrency, err := getEnvInt("QUEUE_CONCURRENCY", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_CONCURRENCY: %w", err)
	}

	appURL := strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         port,
			AllowOrigins: SplitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		PowerBI: PowerBIConfig{
			ClientID:     getEnv("POWERBI_CLIENT_ID", ""),
			ClientSecret: getEnv("POWERBI_CLIENT_SECRET", ""),
			TenantID:     getEnv("POWERBI_TENANT_ID", ""),
			WorkspaceID:  getEnv("POWERBI_WORKSPACE_ID", ""),
			ReportID:     getEnv("POWERBI_REPORT_ID", ""),
			RLSUsername:  getEnv("POWERBI_RLS_USERNAME", ""),
			RLSRoles:     SplitList(getEnv("POWERBI_RLS_ROLES", "")),
			AuthorityURL: getEnv("POWERBI_AUTHORITY_URL", "https://login.microsoftonline.com"),
			APIURL:       getEnv("POWERBI_API_URL", "https://api.powerbi.com/v1.0/myorg"),
			Scope:        getEnv("POWERBI_SCOPE", "https://analysis.windows.net/powerbi/api/.default"),
		},
		Mail: MailConfig{
			AppName:      getEnv("APP_NAME", "Report Portal"),
			AppURL:       appURL,
			DashboardURL: getEnv("APP_DASHBOARD_URL", appURL+"/dashboard"),
			Host:         getEnv("MAIL_HOST", ""),
			Port:         mailPort,
			Username:     getEnv("MAIL_USERNAME", ""),
			Password:     getEnv("MAIL_PASSWORD", ""),
			Encryption:   getEnv("MAIL_ENCRYPTION", "tls"),
			FromAddress:  getEnv("MAIL_FROM_ADDRESS", "noreply@localhost"),
			FromName:     getEnv("MAIL_FROM_NAME", "Report Portal"),
		},
		Queue: QueueConfig{
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.PowerBI.ClientID == "" {
		missing = append(missing, "POWERBI_CLIENT_ID")
	}
	if c.PowerBI.ClientSecret == "" {
		missing = append(missing, "POWERBI_CLIENT_SECRET")
	}
	if c.PowerBI.TenantID == "" {
		missing = append(missing, "POWERBI_TENANT_ID")
	}
	if c.PowerBI.WorkspaceID == "" {
		missing = append(missing, "POWERBI_WORKSPACE_ID")
	}
	if c.PowerBI.ReportID == "" {
		missing = append(missing, "POWERBI_REPORT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SplitList splits a comma-separated value, trimming blanks and dropping
// empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

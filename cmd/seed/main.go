// Command seed creates the initial master account and, optionally, the mail
// server settings.
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/reportportal/internal/config"
	"github.com/nikhilbhutani/reportportal/internal/database"
	"github.com/nikhilbhutani/reportportal/internal/settings"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	// config.Load already read .env; this also picks up a seed-only file.
	_ = godotenv.Load(".env.seed")

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	users := user.NewService(user.NewPostgresRepository(db))
	st := settings.NewService(settings.NewPostgresRepository(db))

	if err := seedAdmin(ctx, users); err != nil {
		slog.Error("failed to seed admin", "error", err)
		os.Exit(1)
	}
	if err := seedMail(ctx, st); err != nil {
		slog.Error("failed to seed mail settings", "error", err)
		os.Exit(1)
	}
	slog.Info("seed complete")
}

func seedAdmin(ctx context.Context, users *user.Service) error {
	active := true
	u, err := users.Upsert(ctx, user.CreateInput{
		Name:     getEnv("SEED_ADMIN_NAME", "Administrator"),
		Email:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
		Password: getEnv("SEED_ADMIN_PASSWORD", "password"),
		IsMaster: true,
		IsActive: &active,
	})
	if err != nil {
		return err
	}
	slog.Info("master admin ready", "user_id", u.ID, "email", u.Email)
	return nil
}

func seedMail(ctx context.Context, st *settings.Service) error {
	host := os.Getenv("SEED_MAIL_HOST")
	if host == "" {
		slog.Info("SEED_MAIL_HOST not set, skipping mail settings")
		return nil
	}
	port, err := strconv.Atoi(getEnv("SEED_MAIL_PORT", strconv.Itoa(settings.DefaultSMTPPort)))
	if err != nil {
		return err
	}

	smtp := settings.SMTPSettings{
		Host:        host,
		Port:        port,
		Username:    os.Getenv("SEED_MAIL_USERNAME"),
		Password:    os.Getenv("SEED_MAIL_PASSWORD"),
		Encryption:  getEnv("SEED_MAIL_ENCRYPTION", settings.DefaultSMTPEncryption),
		FromAddress: os.Getenv("SEED_MAIL_FROM_ADDRESS"),
		FromName:    os.Getenv("SEED_MAIL_FROM_NAME"),
	}
	if err := st.SetMany(ctx, settings.SMTPValues(smtp)); err != nil {
		return err
	}
	slog.Info("mail settings stored", "host", host, "port", port)
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/reportportal/internal/api/handlers"
	"github.com/nikhilbhutani/reportportal/internal/api/middleware"
	"github.com/nikhilbhutani/reportportal/internal/audit"
	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/cache"
	"github.com/nikhilbhutani/reportportal/internal/config"
	"github.com/nikhilbhutani/reportportal/internal/notify"
	"github.com/nikhilbhutani/reportportal/internal/powerbi"
	"github.com/nikhilbhutani/reportportal/internal/queue"
	"github.com/nikhilbhutani/reportportal/internal/settings"
	"github.com/nikhilbhutani/reportportal/internal/user"
)

const (
	// Embed config requests per client per minute.
	dashboardRateLimit = 10
	loginRateLimit     = 5
)

type Router struct {
	mux       *chi.Mux
	db        *pgxpool.Pool
	cache     *cache.Cache
	cfg       *config.Config
	registry  *prometheus.Registry
	jwt       *auth.JWTMiddleware
	users     *user.Service
	settings  *settings.Service
	powerbi   *powerbi.Service
	queue     *queue.Client
	inspector *asynq.Inspector
	monitor   *queue.Monitor
	notifier  *notify.Dispatcher
	audit     *audit.Service
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, reg *prometheus.Registry) *Router {
	c := cache.NewCache(rdb)
	users := user.NewService(user.NewPostgresRepository(db))
	st := settings.NewService(settings.NewPostgresRepository(db))
	queueClient := queue.NewClient(cfg.Redis)
	inspector := asynq.NewInspector(queue.RedisOpt(cfg.Redis))
	sender := notify.NewSender(st, settings.FromMailConfig(cfg.Mail))

	return &Router{
		mux:       chi.NewRouter(),
		db:        db,
		cache:     c,
		cfg:       cfg,
		registry:  reg,
		jwt:       auth.NewJWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, users, c),
		users:     users,
		settings:  st,
		powerbi:   powerbi.NewService(cfg.PowerBI, c, powerbi.NewMetrics(reg)),
		queue:     queueClient,
		inspector: inspector,
		monitor:   queue.NewMonitor(inspector, c),
		notifier:  notify.NewDispatcher(users, st, queueClient, sender, cfg.Mail.AppName, cfg.Mail.AppURL),
		audit:     audit.NewService(db),
	}
}

// Close releases the queue connections opened by NewRouter.
func (rt *Router) Close() error {
	return errors.Join(rt.queue.Close(), rt.inspector.Close())
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	httpMetrics := middleware.NewHTTPMetrics(rt.registry)

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.PeerAddr)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics.Instrument)
	r.Use(middleware.CORS(rt.cfg.Server.AllowOrigins))

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.cache)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	tracking := handlers.NewTrackingHandler(rt.users, rt.cfg.Mail.DashboardURL)
	r.Get("/tracking/email-click/{user}", tracking.EmailClick)

	authH := handlers.NewAuthHandler(rt.users, rt.jwt)
	loginLimit := middleware.NewRateLimiter("login", middleware.PerMinute(loginRateLimit), loginRateLimit, httpMetrics)
	dashboardLimit := middleware.NewRateLimiter("dashboard", middleware.PerMinute(dashboardRateLimit), dashboardRateLimit, httpMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(loginLimit.Limit).Post("/auth/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)

			pbi := handlers.NewPowerBIHandler(rt.powerbi)
			r.With(dashboardLimit.Limit).Get("/dashboard", pbi.Dashboard)
			r.Route("/powerbi", func(r chi.Router) {
				r.Get("/config", pbi.Config)
				r.Get("/pages", pbi.Pages)
			})

			adminH := handlers.NewAdminHandler(rt.users, rt.settings, rt.notifier, rt.monitor, rt.audit, rt.jwt)
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireMaster)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", adminH.ListUsers)
					r.Post("/", adminH.CreateUser)
					r.Get("/defaults", adminH.UserDefaults)
					r.Post("/bulk-status", adminH.BulkUserStatus)
					r.Get("/{id}", adminH.GetUser)
					r.Put("/{id}", adminH.UpdateUser)
					r.Delete("/{id}", adminH.DeleteUser)
					r.Patch("/{id}/toggle-status", adminH.ToggleUserStatus)
				})

				r.Get("/activity", adminH.Activity)
				r.Post("/activity/clear", adminH.ClearActivity)

				r.Route("/settings", func(r chi.Router) {
					r.Get("/", adminH.Settings)
					r.Put("/", adminH.UpdateSettings)
					r.Post("/notify", adminH.NotifyUpdate)
					r.Post("/test-mail", adminH.TestMail)
					r.Get("/queue-status", adminH.QueueStatus)
				})

				r.Get("/powerbi/status", pbi.Status)
				r.Get("/audit", adminH.AuditLogs)
			})
		})
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-admin/internal/analytics"
	"github.com/wolfman30/clinic-admin/internal/appointments"
	"github.com/wolfman30/clinic-admin/internal/costs"
	"github.com/wolfman30/clinic-admin/internal/doctors"
	"github.com/wolfman30/clinic-admin/internal/files"
	httpmiddleware "github.com/wolfman30/clinic-admin/internal/http/middleware"
	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/internal/knowledge"
	"github.com/wolfman30/clinic-admin/internal/patients"
	"github.com/wolfman30/clinic-admin/internal/reminders"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	MetricsHandler http.Handler
	CORS           httpmiddleware.CORSConfig

	// Admin API auth is optional; empty secret leaves /api/admin open.
	AdminAuthSecret string

	// Scheduler callback
	ReminderWebhook *reminders.WebhookHandler
	WebhookLimiter  *httpmiddleware.RateLimiter
	WebhookToken    string

	// Admin panel handlers (each optional)
	Doctors   *doctors.Handler
	Patients  *patients.Handler
	Agenda    *appointments.Handler
	Knowledge *knowledge.Handler
	Files     *files.Handler
	Costs     *costs.Handler
	Analytics *analytics.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.ReminderWebhook != nil {
			public.Route("/api/scheduler", func(r chi.Router) {
				if cfg.WebhookLimiter != nil {
					r.Use(httpmiddleware.RateLimit(cfg.WebhookLimiter))
				}
				r.Use(requireWebhookToken(cfg.WebhookToken))
				r.Post("/webhook", cfg.ReminderWebhook.Handle)
			})
		}
	})

	// Admin panel API
	r.Route("/api/admin", func(admin chi.Router) {
		if cfg.AdminAuthSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		if cfg.Doctors != nil {
			cfg.Doctors.Routes(admin)
		}
		if cfg.Patients != nil {
			cfg.Patients.Routes(admin)
		}
		if cfg.Agenda != nil {
			cfg.Agenda.Routes(admin)
		}
		if cfg.Knowledge != nil {
			cfg.Knowledge.Routes(admin)
		}
		if cfg.Files != nil {
			cfg.Files.Routes(admin)
		}
		if cfg.Costs != nil {
			cfg.Costs.Routes(admin)
		}
		if cfg.Analytics != nil {
			cfg.Analytics.Routes(admin)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-admin/cmd/mainconfig"
	"github.com/wolfman30/clinic-admin/internal/analytics"
	"github.com/wolfman30/clinic-admin/internal/api/router"
	"github.com/wolfman30/clinic-admin/internal/app/bootstrap"
	"github.com/wolfman30/clinic-admin/internal/appointments"
	"github.com/wolfman30/clinic-admin/internal/calendar"
	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/costs"
	"github.com/wolfman30/clinic-admin/internal/doctors"
	"github.com/wolfman30/clinic-admin/internal/files"
	httpmiddleware "github.com/wolfman30/clinic-admin/internal/http/middleware"
	"github.com/wolfman30/clinic-admin/internal/knowledge"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/internal/patients"
	"github.com/wolfman30/clinic-admin/internal/reminders"
	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const (
	limiterEvictInterval = 5 * time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-admin API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, adminMetrics := setupMetrics()

	pool, sqlDB, err := bootstrap.BuildPostgres(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Warn("redis disabled; booking locks and exchange-rate cache are process-local")
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Repositories and outbound clients
	doctorsRepo := doctors.NewPostgresRepository(pool)
	patientsRepo := patients.NewPostgresRepository(pool)
	sender := bootstrap.BuildWhatsApp(cfg, adminMetrics, logger)
	reminderClient := bootstrap.BuildReminders(cfg, adminMetrics, logger)

	var cal calendar.Service
	if gcal, err := bootstrap.BuildCalendar(ctx, cfg, adminMetrics, logger); err != nil {
		logger.Warn("calendar unavailable; agenda routes disabled", "error", err)
	} else {
		cal = gcal
	}

	embedder, err := bootstrap.BuildEmbedder(cfg, awsCfg, adminMetrics, logger)
	if err != nil {
		logger.Error("failed to configure embeddings", "error", err)
		os.Exit(1)
	}

	storage, err := bootstrap.BuildFileStorage(cfg, awsCfg, adminMetrics)
	if err != nil {
		logger.Error("failed to configure file storage", "error", err)
		os.Exit(1)
	}

	rates := costs.NewExchangeRateClient(costs.ExchangeRateConfig{
		URL:   cfg.ExchangeRateURL,
		TTL:   cfg.ExchangeRateTTL,
		Redis: redisClient,
	}, logger).WithMetrics(adminMetrics)

	// Handlers
	scheduler := buildScheduler(cfg, appointments.NewPostgresRepository(pool), cal, doctorsRepo, patientsRepo, sender, reminderClient, redisClient, adminMetrics, logger)
	var agendaHandler *appointments.Handler
	if scheduler != nil {
		agendaHandler = appointments.NewHandler(scheduler, logger)
	}

	webhookLimiter := httpmiddleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
	go evictLimiter(ctx, webhookLimiter, limiterEvictInterval, limiterIdleTimeout)

	routerCfg := &router.Config{
		Logger:         logger,
		MetricsHandler: metricsHandler,
		CORS: httpmiddleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedHeaders: cfg.CORSAllowedHeaders,
			MaxAge:         cfg.CORSMaxAge,
		},
		AdminAuthSecret: cfg.AdminJWTSecret,
		ReminderWebhook: reminders.NewWebhookHandler(sender, patientsRepo, logger),
		WebhookLimiter:  webhookLimiter,
		WebhookToken:    cfg.SchedulerWebhookToken,
		Doctors:         doctors.NewHandler(doctorsRepo, logger),
		Patients:        patients.NewHandler(patientsRepo, patients.NewService(patientsRepo, sender, logger), logger),
		Agenda:          agendaHandler,
		Knowledge:       buildKnowledge(sqlDB, embedder, logger),
		Files:           files.NewHandler(files.NewPostgresRepository(pool), storage, logger),
		Costs:           costs.NewHandler(costs.NewService(costs.NewSQLReports(sqlDB), rates), logger),
		Analytics:       analytics.NewHandler(analytics.NewService(analytics.NewSQLStore(sqlDB)), logger),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if scheduler != nil {
		scheduler.Wait()
	}
	closeResources(pool, sqlDB, redisClient, logger)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry so tests can create it repeatedly.
func setupMetrics() (http.Handler, *metrics.AdminMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// buildScheduler returns nil when no calendar is configured.
func buildScheduler(
	cfg *appconfig.Config,
	store appointments.Store,
	cal calendar.Service,
	doctorsRepo appointments.DoctorLookup,
	patientsRepo appointments.PatientLookup,
	sender whatsapp.Sender,
	reminderClient reminders.Scheduler,
	redisClient *redis.Client,
	m *metrics.AdminMetrics,
	logger *logging.Logger,
) *appointments.Scheduler {
	if cal == nil {
		return nil
	}
	scheduler := appointments.NewScheduler(
		store,
		doctorsRepo,
		patientsRepo,
		cal,
		sender,
		reminderClient,
		logger,
	).WithMetrics(m)
	if redisClient != nil {
		scheduler.WithLocker(appointments.NewRedisLocker(redisClient, cfg.BookingLockTTL))
	}
	if loc, err := time.LoadLocation(cfg.CalendarTimezone); err == nil {
		scheduler.WithLocation(loc)
	} else {
		logger.Warn("invalid calendar timezone, using default", "timezone", cfg.CalendarTimezone, "error", err)
	}
	return scheduler
}

// buildKnowledge leaves the knowledge routes unmounted without an embedder.
func buildKnowledge(db *sql.DB, embedder knowledge.Embedder, logger *logging.Logger) *knowledge.Handler {
	if embedder == nil {
		logger.Warn("no embedding provider configured; knowledge routes disabled")
		return nil
	}
	store := knowledge.NewSQLStore(db)
	return knowledge.NewHandler(store, knowledge.NewIngester(store, embedder, logger), logger)
}

// evictLimiter drops idle per-IP buckets until ctx is cancelled.
func evictLimiter(ctx context.Context, limiter *httpmiddleware.RateLimiter, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Evict(idle)
		}
	}
}

func closeResources(pool *pgxpool.Pool, db *sql.DB, redisClient *redis.Client, logger *logging.Logger) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close sql db", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed to close redis", "error", err)
		}
	}
}

package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-admin/internal/calendar"
	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/internal/reminders"
	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// BuildCalendar returns the Google Calendar client, or an error when no OAuth
// token is configured.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, m *metrics.AdminMetrics, logger *logging.Logger) (*calendar.GoogleCalendar, error) {
	if cfg == nil || strings.TrimSpace(cfg.GoogleCalendarTokenJSON) == "" {
		return nil, fmt.Errorf("bootstrap: GOOGLE_CALENDAR_TOKEN_JSON is required")
	}
	cal, err := calendar.NewGoogleCalendar(ctx, cfg.GoogleCalendarTokenJSON, cfg.CalendarTimezone, logger)
	if err != nil {
		return nil, err
	}
	return cal.WithMetrics(m), nil
}

// BuildWhatsApp returns the Evolution API sender. Unconfigured senders fail
// each send instead of failing startup.
func BuildWhatsApp(cfg *appconfig.Config, m *metrics.AdminMetrics, logger *logging.Logger) *whatsapp.EvolutionClient {
	return whatsapp.NewEvolutionClient(whatsapp.EvolutionConfig{
		BaseURL:  cfg.EvolutionBaseURL,
		APIKey:   cfg.EvolutionAPIKey,
		Instance: cfg.EvolutionInstance,
	}, logger).WithMetrics(m)
}

// BuildReminders returns the external scheduler client.
func BuildReminders(cfg *appconfig.Config, m *metrics.AdminMetrics, logger *logging.Logger) *reminders.Client {
	return reminders.NewClient(reminders.Config{
		BaseURL:    cfg.SchedulerBaseURL,
		APIToken:   cfg.SchedulerAPIToken,
		WebhookURL: cfg.SchedulerWebhookURL,
		LeadTime:   cfg.ReminderLeadTime,
	}, logger).WithMetrics(m)
}

// Package reminders registers patient reminders with the external message
// scheduler and relays them to WhatsApp when the scheduler calls back.
package reminders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

var remindersTracer = otel.Tracer("clinic.internal.reminders")

const (
	defaultTimeout  = 10 * time.Second
	defaultLeadTime = time.Hour

	// DefaultMessage is the text patients receive before their appointment.
	DefaultMessage = "Olá! Passando para lembrar da sua consulta.\nSe houver qualquer imprevisto, entre em contato com o consultório.\nTenha um ótimo dia! 😊"
)

// Scheduler registers and removes time-delayed reminder callbacks.
type Scheduler interface {
	Schedule(ctx context.Context, id, number string, appointmentStart time.Time) error
	Unschedule(ctx context.Context, id string) error
}

// Config configures the scheduler API client.
type Config struct {
	BaseURL    string
	APIToken   string
	WebhookURL string
	LeadTime   time.Duration
	Message    string
}

// Client implements Scheduler against the scheduler REST API.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *logging.Logger
	metrics    *metrics.AdminMetrics
}

// Payload is what the scheduler posts back to the webhook.
type Payload struct {
	Numero   string `json:"numero"`
	Mensagem string `json:"mensagem"`
}

type scheduleRequest struct {
	ID         string  `json:"id"`
	ScheduleTo string  `json:"scheduleTo"`
	Payload    Payload `json:"payload"`
	WebhookURL string  `json:"webhookUrl"`
}

// NewClient constructs a scheduler client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = defaultLeadTime
	}
	if strings.TrimSpace(cfg.Message) == "" {
		cfg.Message = DefaultMessage
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// WithMetrics records outbound call metrics.
func (c *Client) WithMetrics(m *metrics.AdminMetrics) *Client {
	c.metrics = m
	return c
}

// FireAt returns when the reminder for an appointment starting at start fires.
func (c *Client) FireAt(start time.Time) time.Time {
	return start.Add(-c.cfg.LeadTime)
}

// Schedule registers a reminder keyed by id. An existing reminder (409) is
// not an error. A missing configuration skips the call with a warning.
func (c *Client) Schedule(ctx context.Context, id, number string, appointmentStart time.Time) error {
	if c.cfg.BaseURL == "" || c.cfg.APIToken == "" || c.cfg.WebhookURL == "" {
		c.logger.Warn("reminder scheduler not configured, reminder skipped", "id", id)
		return nil
	}
	ctx, span := remindersTracer.Start(ctx, "reminders.schedule", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("clinic.reminder_id", id))

	sendAt := c.FireAt(appointmentStart).UTC()
	body, err := json.Marshal(scheduleRequest{
		ID:         id,
		ScheduleTo: sendAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:    Payload{Numero: number, Mensagem: c.cfg.Message},
		WebhookURL: c.cfg.WebhookURL,
	})
	if err != nil {
		return fmt.Errorf("reminders: marshal request: %w", err)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/messages", body, "schedule")
	if err != nil {
		span.RecordError(err)
		return err
	}
	switch {
	case status == http.StatusConflict:
		c.logger.Warn("reminder already scheduled", "id", id)
		return nil
	case status < 200 || status > 299:
		err := fmt.Errorf("reminders: scheduler returned %d: %s", status, respBody)
		span.RecordError(err)
		return err
	}
	c.logger.Info("reminder scheduled", "id", id, "send_at", sendAt)
	return nil
}

// Unschedule removes the reminder keyed by id. A missing reminder (404) is
// not an error.
func (c *Client) Unschedule(ctx context.Context, id string) error {
	if c.cfg.BaseURL == "" || c.cfg.APIToken == "" || strings.TrimSpace(id) == "" {
		c.logger.Warn("reminder scheduler not configured or empty id, unschedule skipped", "id", id)
		return nil
	}
	ctx, span := remindersTracer.Start(ctx, "reminders.unschedule", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("clinic.reminder_id", id))

	// Calendar event ids may contain '@' and '_'; escape like a URI component.
	escaped := strings.ReplaceAll(url.QueryEscape(id), "+", "%20")
	status, respBody, err := c.do(ctx, http.MethodDelete, c.cfg.BaseURL+"/messages/"+escaped, nil, "unschedule")
	if err != nil {
		span.RecordError(err)
		return err
	}
	switch {
	case status == http.StatusNotFound:
		c.logger.Warn("reminder not found, already removed?", "id", id)
		return nil
	case status < 200 || status > 299:
		err := fmt.Errorf("reminders: scheduler delete returned %d: %s", status, respBody)
		span.RecordError(err)
		return err
	}
	c.logger.Info("reminder removed", "id", id)
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, operation string) (int, string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, "", fmt.Errorf("reminders: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveOutbound("scheduler", operation, time.Since(began).Seconds(), err)
	if err != nil {
		return 0, "", fmt.Errorf("reminders: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, strings.TrimSpace(string(respBody)), nil
}

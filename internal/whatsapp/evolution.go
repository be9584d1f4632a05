// Package whatsapp sends WhatsApp text messages through the Evolution API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

var evolutionTracer = otel.Tracer("clinic.internal.whatsapp")

const defaultTimeout = 15 * time.Second

// ErrNotConfigured is returned when base URL, API key or instance is missing.
var ErrNotConfigured = errors.New("whatsapp: evolution api not configured (BASE_URL_EVO, API_KEY_EVO, INSTANCE_NAME)")

// Sender delivers a plain text message to a contact.
type Sender interface {
	SendText(ctx context.Context, number, text string) error
}

// EvolutionConfig configures the Evolution API client.
type EvolutionConfig struct {
	BaseURL  string
	APIKey   string
	Instance string
}

// EvolutionClient implements Sender.
type EvolutionClient struct {
	httpClient *http.Client
	cfg        EvolutionConfig
	logger     *logging.Logger
	metrics    *metrics.AdminMetrics
}

// NewEvolutionClient constructs a client. Configuration is validated per send
// so the API still boots when WhatsApp is not set up.
func NewEvolutionClient(cfg EvolutionConfig, logger *logging.Logger) *EvolutionClient {
	if logger == nil {
		logger = logging.Default()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &EvolutionClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// WithMetrics records outbound call metrics.
func (c *EvolutionClient) WithMetrics(m *metrics.AdminMetrics) *EvolutionClient {
	c.metrics = m
	return c
}

func (c *EvolutionClient) configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.APIKey != "" && c.cfg.Instance != ""
}

// SendText posts {number, text} to /message/sendText/{instance}. The number
// is reduced to digits before sending.
func (c *EvolutionClient) SendText(ctx context.Context, number, text string) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	ctx, span := evolutionTracer.Start(ctx, "whatsapp.evolution.send_text", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	digits := respond.Digits(number)
	span.SetAttributes(attribute.String("clinic.to", digits))

	payload, err := json.Marshal(map[string]string{
		"number": digits,
		"text":   text,
	})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", c.cfg.BaseURL, c.cfg.Instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)

	began := time.Now()
	err = c.do(req)
	c.metrics.ObserveOutbound("whatsapp", "send_text", time.Since(began).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *EvolutionClient) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("evolution API non-2xx response", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("whatsapp: evolution api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

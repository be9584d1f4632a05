package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

var calendarTracer = otel.Tracer("clinic.internal.calendar")

const (
	defaultTimezone = "America/Sao_Paulo"
	untitledSummary = "Sem título"
)

// TokenJSON is the stored OAuth token for the clinic's Google account.
type TokenJSON struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Expiry       string `json:"expiry"`
}

// ParseToken decodes the token JSON into an oauth2 config and token pair.
func ParseToken(raw string) (*oauth2.Config, *oauth2.Token, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, ErrNotConfigured
	}
	var data TokenJSON
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, nil, fmt.Errorf("calendar: invalid token json: %w", err)
	}
	cfg := &oauth2.Config{
		ClientID:     data.ClientID,
		ClientSecret: data.ClientSecret,
		Endpoint:     endpoints.Google,
		RedirectURL:  "http://localhost",
		Scopes:       []string{gcal.CalendarScope},
	}
	tok := &oauth2.Token{
		AccessToken:  data.Token,
		RefreshToken: data.RefreshToken,
		TokenType:    "Bearer",
	}
	if data.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339Nano, data.Expiry); err == nil {
			tok.Expiry = expiry
		}
	}
	return cfg, tok, nil
}

// GoogleCalendar implements Service on the Google Calendar v3 API.
type GoogleCalendar struct {
	events   *gcal.EventsService
	timezone string
	logger   *logging.Logger
	metrics  *metrics.AdminMetrics
}

// NewGoogleCalendar builds a client from the stored OAuth token JSON. The
// token source refreshes the access token as needed.
func NewGoogleCalendar(ctx context.Context, tokenJSON, timezone string, logger *logging.Logger) (*GoogleCalendar, error) {
	cfg, tok, err := ParseToken(tokenJSON)
	if err != nil {
		return nil, err
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("calendar: build service: %w", err)
	}
	return NewGoogleCalendarWithService(svc, timezone, logger), nil
}

// NewGoogleCalendarWithService wraps an already configured API service.
func NewGoogleCalendarWithService(svc *gcal.Service, timezone string, logger *logging.Logger) *GoogleCalendar {
	if svc == nil {
		panic("calendar: google calendar service required")
	}
	if strings.TrimSpace(timezone) == "" {
		timezone = defaultTimezone
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleCalendar{
		events:   svc.Events,
		timezone: timezone,
		logger:   logger,
	}
}

// WithMetrics records outbound call metrics.
func (c *GoogleCalendar) WithMetrics(m *metrics.AdminMetrics) *GoogleCalendar {
	c.metrics = m
	return c
}

// CheckAvailability lists events overlapping [start, end] and reports the
// earliest one as the conflict.
func (c *GoogleCalendar) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (Availability, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.events.list", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("clinic.calendar_id", calendarID))

	began := time.Now()
	res, err := c.events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	c.metrics.ObserveOutbound("calendar", "list", time.Since(began).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return Availability{}, fmt.Errorf("calendar: list events: %w", err)
	}
	if len(res.Items) == 0 {
		return Availability{Available: true}, nil
	}

	first := toEvent(res.Items[0])
	if first.Summary == "" {
		first.Summary = untitledSummary
	}
	return Availability{Available: false, Conflict: &first}, nil
}

// CreateEvent inserts an event in the clinic timezone.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time, description string) (Event, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.events.insert", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("clinic.calendar_id", calendarID))

	ev := &gcal.Event{
		Summary:     summary,
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: c.timezone},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: c.timezone},
	}

	began := time.Now()
	created, err := c.events.Insert(calendarID, ev).Context(ctx).Do()
	c.metrics.ObserveOutbound("calendar", "insert", time.Since(began).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		return Event{}, fmt.Errorf("calendar: insert event: %w", err)
	}
	span.SetAttributes(attribute.String("clinic.event_id", created.Id))
	return toEvent(created), nil
}

// DeleteEvent removes an event. A missing event yields ErrEventNotFound.
func (c *GoogleCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, span := calendarTracer.Start(ctx, "calendar.events.delete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.calendar_id", calendarID),
		attribute.String("clinic.event_id", eventID),
	)

	began := time.Now()
	err := c.events.Delete(calendarID, eventID).Context(ctx).Do()
	c.metrics.ObserveOutbound("calendar", "delete", time.Since(began).Seconds(), err)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		c.logger.Debug("calendar event already gone", "calendar_id", calendarID, "event_id", eventID, "status", apiErr.Code)
		return ErrEventNotFound
	}
	span.RecordError(err)
	return fmt.Errorf("calendar: delete event: %w", err)
}

func toEvent(ev *gcal.Event) Event {
	out := Event{ID: ev.Id, Summary: ev.Summary}
	if ev.Start != nil {
		out.Start = firstNonEmpty(ev.Start.DateTime, ev.Start.Date)
	}
	if ev.End != nil {
		out.End = firstNonEmpty(ev.End.DateTime, ev.End.Date)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

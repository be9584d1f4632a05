package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/wolfman30/clinic-admin/pkg/logging"
)

func newTestCalendar(t *testing.T, handler http.HandlerFunc) *GoogleCalendar {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return NewGoogleCalendarWithService(svc, "", logging.Default())
}

var (
	windowStart = time.Date(2025, 6, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	windowEnd   = windowStart.Add(30 * time.Minute)
)

func TestCheckAvailability_Free(t *testing.T) {
	cal := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/calendars/dra-ana@clinic/events", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		assert.Equal(t, "2025-06-10T09:00:00-03:00", r.URL.Query().Get("timeMin"))
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	got, err := cal.CheckAvailability(context.Background(), "dra-ana@clinic", windowStart, windowEnd)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Nil(t, got.Conflict)
}

func TestCheckAvailability_ReportsFirstConflict(t *testing.T) {
	cal := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"id":"evt-1","start":{"dateTime":"2025-06-10T09:00:00-03:00"},"end":{"dateTime":"2025-06-10T09:30:00-03:00"}},
			{"id":"evt-2","summary":"Consulta Bia","start":{"date":"2025-06-10"},"end":{"date":"2025-06-11"}}
		]}`))
	})

	got, err := cal.CheckAvailability(context.Background(), "cal", windowStart.Add(15*time.Minute), windowEnd.Add(15*time.Minute))
	require.NoError(t, err)
	assert.False(t, got.Available)
	require.NotNil(t, got.Conflict)
	assert.Equal(t, "evt-1", got.Conflict.ID)
	assert.Equal(t, "Sem título", got.Conflict.Summary)
	assert.Equal(t, "2025-06-10T09:00:00-03:00", got.Conflict.Start)
}

func TestCreateEvent_SendsTimezone(t *testing.T) {
	cal := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var ev gcal.Event
		require.NoError(t, json.Unmarshal(body, &ev))
		assert.Equal(t, "Consulta Maria", ev.Summary)
		assert.Equal(t, "America/Sao_Paulo", ev.Start.TimeZone)
		assert.Equal(t, "2025-06-10T09:30:00-03:00", ev.End.DateTime)
		_, _ = w.Write([]byte(`{"id":"evt-99","summary":"Consulta Maria","start":{"dateTime":"2025-06-10T09:00:00-03:00"},"end":{"dateTime":"2025-06-10T09:30:00-03:00"}}`))
	})

	got, err := cal.CreateEvent(context.Background(), "cal", "Consulta Maria", windowStart, windowEnd, "Agendado pelo painel admin")
	require.NoError(t, err)
	assert.Equal(t, Event{ID: "evt-99", Summary: "Consulta Maria", Start: "2025-06-10T09:00:00-03:00", End: "2025-06-10T09:30:00-03:00"}, got)
}

func TestCreateEvent_UpstreamError(t *testing.T) {
	cal := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	})

	_, err := cal.CreateEvent(context.Background(), "cal", "Consulta", windowStart, windowEnd, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEventNotFound))
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"deleted", http.StatusNoContent, nil},
		{"not found", http.StatusNotFound, ErrEventNotFound},
		{"gone", http.StatusGone, ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/calendars/cal/events/evt-1", r.URL.Path)
				w.WriteHeader(tt.status)
				if tt.status >= 400 {
					_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
				}
			})
			err := cal.DeleteEvent(context.Background(), "cal", "evt-1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseToken(t *testing.T) {
	cfg, tok, err := ParseToken(`{"client_id":"id","client_secret":"secret","token":"access","refresh_token":"refresh","expiry":"2025-06-10T12:00:00.5Z"}`)
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.Equal(t, 2025, tok.Expiry.Year())

	_, _, err = ParseToken("")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, _, err = ParseToken("{not json")
	assert.Error(t, err)
}

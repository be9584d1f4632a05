package reminders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-admin/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{
		BaseURL:    ts.URL + "/",
		APIToken:   "sched-token",
		WebhookURL: "https://admin.clinic/api/scheduler/webhook",
	}, logging.Default())
}

func TestSchedule_PostsReminderOneHourBefore(t *testing.T) {
	var got scheduleRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer sched-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	require.NoError(t, client.Schedule(context.Background(), "evt-1", "5511988887777", start))

	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "2025-06-10T11:00:00.000Z", got.ScheduleTo)
	assert.Equal(t, "5511988887777", got.Payload.Numero)
	assert.Equal(t, DefaultMessage, got.Payload.Mensagem)
	assert.Equal(t, "https://admin.clinic/api/scheduler/webhook", got.WebhookURL)
}

func TestSchedule_ConflictIsTolerated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	assert.NoError(t, client.Schedule(context.Background(), "evt-1", "5511988887777", time.Now().Add(48*time.Hour)))
}

func TestSchedule_ServerErrorIsReturned(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	assert.Error(t, client.Schedule(context.Background(), "evt-1", "5511988887777", time.Now().Add(48*time.Hour)))
}

func TestSchedule_SkipsWhenNotConfigured(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://scheduler"}, nil)
	assert.NoError(t, client.Schedule(context.Background(), "evt-1", "5511988887777", time.Now()))
}

func TestUnschedule_EscapesEventID(t *testing.T) {
	var requestURI string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		requestURI = r.RequestURI
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Unschedule(context.Background(), "abc_123@google.com"))
	assert.Equal(t, "/messages/abc_123%40google.com", requestURI)
}

func TestUnschedule_NotFoundIsTolerated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, client.Unschedule(context.Background(), "evt-1"))
}

func TestFireAtUsesLeadTime(t *testing.T) {
	client := NewClient(Config{LeadTime: 30 * time.Minute}, nil)
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(-30*time.Minute), client.FireAt(start))
}

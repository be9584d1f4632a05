package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-admin/internal/appointments"
	"github.com/wolfman30/clinic-admin/internal/calendar"
	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	httpmiddleware "github.com/wolfman30/clinic-admin/internal/http/middleware"
	"github.com/wolfman30/clinic-admin/internal/reminders"
	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// Embedded interfaces satisfy the contracts; wiring never calls them.
type stubStore struct{ appointments.Store }
type stubDoctors struct{ appointments.DoctorLookup }
type stubPatients struct{ appointments.PatientLookup }
type stubCalendar struct{ calendar.Service }
type stubSender struct{ whatsapp.Sender }
type stubReminders struct{ reminders.Scheduler }

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveBooking("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "clinic_agenda_bookings_total") {
		t.Fatalf("expected bookings counter to be exported")
	}
}

func TestSetupMetricsIsRepeatable(t *testing.T) {
	setupMetrics()
	setupMetrics()
}

func TestBuildSchedulerWithoutCalendar(t *testing.T) {
	cfg := &appconfig.Config{CalendarTimezone: "America/Sao_Paulo"}
	got := buildScheduler(cfg, stubStore{}, nil, stubDoctors{}, stubPatients{}, stubSender{}, stubReminders{}, nil, nil, logging.New("error"))
	if got != nil {
		t.Fatalf("expected nil scheduler without calendar")
	}
}

func TestBuildSchedulerWithRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &appconfig.Config{CalendarTimezone: "Not/AZone", BookingLockTTL: time.Second}
	got := buildScheduler(cfg, stubStore{}, stubCalendar{}, stubDoctors{}, stubPatients{}, stubSender{}, stubReminders{}, client, nil, logging.New("error"))
	if got == nil {
		t.Fatalf("expected scheduler")
	}
	got.Wait()
}

func TestBuildKnowledgeWithoutEmbedder(t *testing.T) {
	if h := buildKnowledge(nil, nil, logging.New("error")); h != nil {
		t.Fatalf("expected knowledge routes to be disabled")
	}
}

func TestEvictLimiterStopsOnCancel(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(1, 1)
	limiter.Allow("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		evictLimiter(ctx, limiter, time.Millisecond, 0)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("evictLimiter did not return after cancel")
	}
	if removed := limiter.Evict(0); removed != 0 {
		t.Fatalf("expected idle bucket to be evicted by the loop, %d left", removed)
	}
}

func TestCloseResourcesToleratesNil(t *testing.T) {
	closeResources(nil, nil, nil, logging.New("error"))
}

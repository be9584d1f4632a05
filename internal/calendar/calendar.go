// Package calendar talks to the doctors' Google calendars, which are the
// system of record for appointment slots.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEventNotFound is returned when the calendar no longer has the event.
	ErrEventNotFound = errors.New("calendar: event not found")
	// ErrNotConfigured is returned when no OAuth token was provided.
	ErrNotConfigured = errors.New("calendar: google calendar token not configured")
)

// Event is the subset of a calendar event the admin backend exposes.
type Event struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Availability is the advisory answer to "is this window free?".
type Availability struct {
	Available bool   `json:"available"`
	Conflict  *Event `json:"conflict,omitempty"`
}

// Service is the calendar surface used by the appointment scheduler.
type Service interface {
	CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (Availability, error)
	CreateEvent(ctx context.Context, calendarID, summary string, start, end time.Time, description string) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

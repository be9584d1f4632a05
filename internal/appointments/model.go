// Package appointments books, lists and cancels clinic appointments. The
// doctor's Google calendar holds the slot, calendar_events mirrors it, and
// WhatsApp notifications and reminders are sent on the side.
package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingFields       = errors.New("appointments: user_number, doctor_id, procedure and start_time are required")
	ErrInvalidStartTime    = errors.New("appointments: invalid start_time")
	ErrStartInPast         = errors.New("appointments: start time is in the past")
	ErrDoctorUnavailable   = errors.New("appointments: doctor not found or inactive")
	ErrProcedureNotFound   = errors.New("appointments: procedure not offered by doctor")
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")
	ErrDoctorBusy          = errors.New("appointments: another booking for this doctor is in progress")
	ErrCalendarUnavailable = errors.New("appointments: calendar event could not be created")
)

const (
	StatusPending = "pending"

	defaultDescription = "Agendado pelo painel admin"
	defaultTimezone    = "America/Sao_Paulo"
)

// Appointment is a calendar_events row joined to the patient.
type Appointment struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"event_id"`
	UserNumber    string    `json:"user_number"`
	PatientName   string    `json:"patient_name"`
	Convenio      *string   `json:"convenio"`
	DrResponsible string    `json:"dr_responsible"`
	Procedure     *string   `json:"procedure"`
	Description   *string   `json:"description"`
	Status        string    `json:"status"`
	Summary       *string   `json:"summary"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFilter selects appointments starting in [From, Until].
type ListFilter struct {
	From   time.Time
	Until  time.Time
	Doctor string
}

// BookingRequest is the staff booking form.
type BookingRequest struct {
	UserNumber  string  `json:"user_number"`
	DoctorID    string  `json:"doctor_id"`
	Procedure   string  `json:"procedure"`
	Convenio    *string `json:"convenio"`
	StartTime   string  `json:"start_time"`
	Description *string `json:"description"`
}

func (r BookingRequest) missingFields() bool {
	return strings.TrimSpace(r.UserNumber) == "" ||
		strings.TrimSpace(r.DoctorID) == "" ||
		strings.TrimSpace(r.Procedure) == "" ||
		strings.TrimSpace(r.StartTime) == ""
}

// note returns the trimmed description, or "" when none was given.
func (r BookingRequest) note() string {
	if r.Description == nil {
		return ""
	}
	return strings.TrimSpace(*r.Description)
}

// Booking is the result of a successful Book.
type Booking struct {
	EventID   string    `json:"event_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

// NewAppointment is what Book persists after the calendar event exists.
type NewAppointment struct {
	UserNumber  string
	EventID     string
	Summary     string
	DoctorName  string
	DoctorID    string
	Procedure   string
	Description string
	Start       time.Time
	End         time.Time
}

// CancelTarget is the stored appointment plus the calendar it lives on.
type CancelTarget struct {
	EventID       string
	UserNumber    string
	DrResponsible string
	CalendarID    string
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime parses an RFC 3339 timestamp, or a zone-less local datetime
// interpreted in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, value)
}

// ParseDay parses a "2006-01-02" date (or any ParseTime value) and returns
// local midnight of that day.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	t, err := ParseTime(value, loc)
	if err != nil {
		return time.Time{}, err
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

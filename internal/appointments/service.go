package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-admin/internal/calendar"
	"github.com/wolfman30/clinic-admin/internal/doctors"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
	"github.com/wolfman30/clinic-admin/internal/patients"
	"github.com/wolfman30/clinic-admin/internal/reminders"
	"github.com/wolfman30/clinic-admin/internal/whatsapp"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

var schedulerTracer = otel.Tracer("clinic.internal.appointments")

// sideEffectTimeout bounds the notification and reminder calls made after
// the booking response is sent.
const sideEffectTimeout = 30 * time.Second

// DoctorLookup loads a doctor by id.
type DoctorLookup interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
}

// PatientLookup loads a patient by contact number.
type PatientLookup interface {
	Get(ctx context.Context, phone string) (*patients.Patient, error)
}

// Scheduler books and cancels appointments.
type Scheduler struct {
	store     Store
	doctors   DoctorLookup
	patients  PatientLookup
	calendar  calendar.Service
	notifier  whatsapp.Sender
	reminders reminders.Scheduler
	locker    Locker
	metrics   *metrics.AdminMetrics
	logger    *logging.Logger
	loc       *time.Location
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewScheduler wires the booking dependencies. The notifier and reminder
// scheduler are required; use the real clients even when unconfigured, they
// skip or fail softly.
func NewScheduler(
	store Store,
	doctorLookup DoctorLookup,
	patientLookup PatientLookup,
	cal calendar.Service,
	notifier whatsapp.Sender,
	reminderScheduler reminders.Scheduler,
	logger *logging.Logger,
) *Scheduler {
	if store == nil || doctorLookup == nil || patientLookup == nil {
		panic("appointments: store, doctor and patient lookups required")
	}
	if cal == nil {
		panic("appointments: calendar service required")
	}
	if notifier == nil || reminderScheduler == nil {
		panic("appointments: notifier and reminder scheduler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}
	return &Scheduler{
		store:     store,
		doctors:   doctorLookup,
		patients:  patientLookup,
		calendar:  cal,
		notifier:  notifier,
		reminders: reminderScheduler,
		locker:    NopLocker{},
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// WithLocker sets the per-doctor booking lock.
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	if l != nil {
		s.locker = l
	}
	return s
}

// WithMetrics records booking and cancellation outcomes.
func (s *Scheduler) WithMetrics(m *metrics.AdminMetrics) *Scheduler {
	s.metrics = m
	return s
}

// WithLocation sets the clinic timezone used for zone-less times and
// notification text.
func (s *Scheduler) WithLocation(loc *time.Location) *Scheduler {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithClock overrides the clock used to reject past bookings.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Location returns the clinic timezone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Wait blocks until background notifications and reminders finish.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// List returns appointments in the filter window.
func (s *Scheduler) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.store.List(ctx, filter)
}

// CheckAvailability is advisory: Book does not re-check the calendar.
func (s *Scheduler) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (calendar.Availability, error) {
	return s.calendar.CheckAvailability(ctx, calendarID, start, end)
}

// Book validates the request, creates the calendar event, stores the
// appointment and then notifies the doctor and schedules the patient
// reminder in the background. Validation failures have no side effects.
func (s *Scheduler) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	ctx, span := schedulerTracer.Start(ctx, "appointments.book")
	defer span.End()

	booking, err := s.book(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking(bookingOutcome(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.event_id", booking.EventID))
	s.metrics.ObserveBooking("booked")
	return booking, nil
}

func (s *Scheduler) book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if req.missingFields() {
		return nil, ErrMissingFields
	}
	userNumber := strings.TrimSpace(req.UserNumber)
	procedureName := strings.TrimSpace(req.Procedure)

	start, err := ParseTime(req.StartTime, s.loc)
	if err != nil {
		return nil, err
	}
	if start.Before(s.now()) {
		return nil, ErrStartInPast
	}

	doctorID := strings.TrimSpace(req.DoctorID)
	if _, err := uuid.Parse(doctorID); err != nil {
		return nil, ErrDoctorUnavailable
	}
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctors.ErrDoctorNotFound) {
			return nil, ErrDoctorUnavailable
		}
		return nil, fmt.Errorf("appointments: load doctor: %w", err)
	}
	if !doctor.Active {
		return nil, ErrDoctorUnavailable
	}
	procedure, ok := doctor.Procedure(procedureName)
	if !ok {
		return nil, ErrProcedureNotFound
	}
	end := start.Add(procedure.Duration())

	var booking *Booking
	var patient *patients.Patient
	err = s.locker.WithDoctorLock(ctx, doctor.ID, func(ctx context.Context) error {
		p, err := s.patients.Get(ctx, userNumber)
		if err != nil {
			if !errors.Is(err, patients.ErrPatientNotFound) {
				return fmt.Errorf("appointments: load patient: %w", err)
			}
			p = &patients.Patient{PhoneNumber: userNumber}
		}
		patient = p

		summary := "Consulta " + patient.DisplayName()
		description := req.note()
		if description == "" {
			description = defaultDescription
		}

		event, err := s.calendar.CreateEvent(ctx, doctor.CalendarID, summary, start, end, description)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
		}

		booking, err = s.store.Insert(ctx, NewAppointment{
			UserNumber:  userNumber,
			EventID:     event.ID,
			Summary:     summary,
			DoctorName:  doctor.Name,
			DoctorID:    doctor.ID,
			Procedure:   procedureName,
			Description: description,
			Start:       start,
			End:         end,
		})
		if err != nil {
			s.compensate(ctx, doctor.CalendarID, event.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		"event_id", booking.EventID,
		"doctor_id", doctor.ID,
		"procedure", procedureName,
		"start", start,
	)

	if contact := doctor.Contact(); contact != "" {
		msg := doctorNotification(patient, userNumber, start.In(s.loc), end.In(s.loc), insuranceLabel(req.Convenio, patient), procedureName, req.note())
		s.background(ctx, func(ctx context.Context) {
			if err := s.notifier.SendText(ctx, contact, msg); err != nil {
				s.logger.Error("failed to notify doctor", "event_id", booking.EventID, "error", err)
			}
		})
	}
	eventID := booking.EventID
	s.background(ctx, func(ctx context.Context) {
		if err := s.reminders.Schedule(ctx, eventID, userNumber, start); err != nil {
			s.logger.Error("failed to schedule reminder", "event_id", eventID, "error", err)
		}
	})
	return booking, nil
}

// compensate removes a calendar event whose appointment row could not be stored.
func (s *Scheduler) compensate(ctx context.Context, calendarID, eventID string) {
	if err := s.calendar.DeleteEvent(context.WithoutCancel(ctx), calendarID, eventID); err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
		s.logger.Error("failed to remove orphaned calendar event", "event_id", eventID, "calendar_id", calendarID, "error", err)
		return
	}
	s.logger.Warn("calendar event removed after failed insert", "event_id", eventID)
}

// Cancel deletes the calendar event (best effort), the stored row and the
// pending reminder. Retrying after a partial failure is safe.
func (s *Scheduler) Cancel(ctx context.Context, eventID string) error {
	ctx, span := schedulerTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.event_id", eventID))

	target, err := s.store.FindForCancel(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveCancellation("not_found")
		} else {
			s.metrics.ObserveCancellation("error")
			span.RecordError(err)
		}
		return err
	}

	if target.CalendarID != "" {
		if err := s.calendar.DeleteEvent(ctx, target.CalendarID, eventID); err != nil {
			if errors.Is(err, calendar.ErrEventNotFound) {
				s.logger.Warn("calendar event already gone", "event_id", eventID)
			} else {
				s.logger.Warn("calendar event delete failed, removing appointment anyway", "event_id", eventID, "error", err)
			}
		}
	}

	if err := s.store.Delete(ctx, eventID); err != nil {
		s.metrics.ObserveCancellation("error")
		span.RecordError(err)
		return err
	}

	s.background(ctx, func(ctx context.Context) {
		if err := s.reminders.Unschedule(ctx, eventID); err != nil {
			s.logger.Error("failed to remove reminder", "event_id", eventID, "error", err)
		}
	})
	s.metrics.ObserveCancellation("cancelled")
	s.logger.Info("appointment cancelled", "event_id", eventID, "doctor", target.DrResponsible)
	return nil
}

// background runs fn after the request returns, detached from its cancellation.
func (s *Scheduler) background(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(detached, sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, ErrDoctorBusy):
		return "busy"
	case errors.Is(err, ErrCalendarUnavailable):
		return "calendar_error"
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidStartTime), errors.Is(err, ErrStartInPast),
		errors.Is(err, ErrDoctorUnavailable), errors.Is(err, ErrProcedureNotFound):
		return "rejected"
	default:
		return "error"
	}
}

// insuranceLabel prefers the insurance picked by staff, then the one the
// agent stored on the patient.
func insuranceLabel(explicit *string, patient *patients.Patient) string {
	if explicit != nil {
		if v := strings.TrimSpace(*explicit); v != "" {
			r, size := utf8.DecodeRuneInString(v)
			return string(unicode.ToUpper(r)) + v[size:]
		}
	}
	if patient != nil && patient.InsuranceType != "" {
		return patient.InsuranceType
	}
	return "Não informado"
}

func doctorNotification(patient *patients.Patient, phone string, start, end time.Time, insurance, procedure, note string) string {
	if note == "" {
		note = "—"
	}
	return fmt.Sprintf("🔔 *Novo Agendamento Realizado*\n\n"+
		"👤 Paciente: %s\n"+
		"📞 Telefone: %s\n"+
		"📅 Data: %s\n"+
		"🕐 Horário: %s às %s\n"+
		"Convênio: %s\n"+
		"Procedimento: %s\n"+
		"Observações: %s\n\n"+
		"Verifique a agenda ou entre em contato.",
		patient.DisplayName(), phone, start.Format("02/01/2006"), start.Format("15:04"), end.Format("15:04"),
		insurance, procedure, note)
}

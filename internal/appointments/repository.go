package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments.
type Store interface {
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	Insert(ctx context.Context, appt NewAppointment) (*Booking, error)
	FindForCancel(ctx context.Context, eventID string) (*CancelTarget, error)
	Delete(ctx context.Context, eventID string) error
}

// PostgresRepository stores appointments in calendar_events.
type PostgresRepository struct {
	db DB
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

// List returns appointments ordered by start time, with the patient's name
// (falling back to the contact) and insurance type.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	query := `
		SELECT ce.id, ce.event_id, ce.user_number,
			COALESCE(u.complete_name, ce.user_number),
			u.metadata->>'convenio_tipo',
			ce.dr_responsible, ce.procedure, ce.description, ce.status, ce.summary,
			ce.start_time, ce.end_time, ce.created_at
		FROM calendar_events ce
		LEFT JOIN users u ON u.phone_number = ce.user_number
		WHERE ce.start_time >= $1 AND ce.start_time <= $2`
	args := []any{filter.From, filter.Until}
	if filter.Doctor != "" {
		args = append(args, filter.Doctor)
		query += fmt.Sprintf(" AND ce.dr_responsible = $%d", len(args))
	}
	query += " ORDER BY ce.start_time ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID,
			&a.EventID,
			&a.UserNumber,
			&a.PatientName,
			&a.Convenio,
			&a.DrResponsible,
			&a.Procedure,
			&a.Description,
			&a.Status,
			&a.Summary,
			&a.StartTime,
			&a.EndTime,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list rows: %w", err)
	}
	return out, nil
}

// Insert stores a pending appointment.
func (r *PostgresRepository) Insert(ctx context.Context, appt NewAppointment) (*Booking, error) {
	query := `
		INSERT INTO calendar_events
			(user_number, event_id, summary, dr_responsible, doctor_id, procedure, description, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING event_id, status, start_time, end_time
	`
	var b Booking
	if err := r.db.QueryRow(ctx, query,
		appt.UserNumber,
		appt.EventID,
		appt.Summary,
		appt.DoctorName,
		appt.DoctorID,
		appt.Procedure,
		appt.Description,
		StatusPending,
		appt.Start,
		appt.End,
	).Scan(&b.EventID, &b.Status, &b.StartTime, &b.EndTime); err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return &b, nil
}

// FindForCancel loads an appointment and its doctor's calendar. Rows written
// before doctor_id existed are matched to the doctor by name.
func (r *PostgresRepository) FindForCancel(ctx context.Context, eventID string) (*CancelTarget, error) {
	query := `
		SELECT ce.event_id, ce.user_number, ce.dr_responsible, COALESCE(dr.calendar_id, '')
		FROM calendar_events ce
		LEFT JOIN doctor_rules dr
			ON dr.id = ce.doctor_id OR (ce.doctor_id IS NULL AND dr.name = ce.dr_responsible)
		WHERE ce.event_id = $1
		LIMIT 1
	`
	var t CancelTarget
	if err := r.db.QueryRow(ctx, query, eventID).Scan(&t.EventID, &t.UserNumber, &t.DrResponsible, &t.CalendarID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: find: %w", err)
	}
	return &t, nil
}

// Delete removes the appointment row.
func (r *PostgresRepository) Delete(ctx context.Context, eventID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM calendar_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	return nil
}

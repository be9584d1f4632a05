// Package analytics serves the operational dashboard: message volume, new
// patients, bookings and how they split across doctors and procedures.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Counts are the headline numbers of a period.
type Counts struct {
	Messages           int64
	Users              int64
	Appointments       int64
	AvgMessagesPerChat float64
}

// SenderCount is the number of messages one sender kind wrote on one day.
type SenderCount struct {
	Day    string
	Sender string
	Total  int64
}

// MonthCount is the number of appointments starting in one month (YYYY-MM).
type MonthCount struct {
	Month string
	Total int64
}

// DoctorCount is one doctor's booking count.
type DoctorCount struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Total  int64  `json:"total_agendamentos"`
}

// ProcedureCount is the number of appointments of one procedure.
type ProcedureCount struct {
	Procedure string `json:"procedure"`
	Total     int64  `json:"total"`
}

// Store runs the dashboard aggregates.
type Store interface {
	Counts(ctx context.Context, from, until time.Time) (Counts, error)
	MessagesBySender(ctx context.Context, from, until time.Time) ([]SenderCount, error)
	AppointmentsByMonth(ctx context.Context, since time.Time) ([]MonthCount, error)
	DoctorsRanking(ctx context.Context, from, until time.Time) ([]DoctorCount, error)
	Procedures(ctx context.Context, from, until time.Time) ([]ProcedureCount, error)
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps a database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("analytics: sql db required")
	}
	return &SQLStore{db: db}
}

func (s *SQLStore) Counts(ctx context.Context, from, until time.Time) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chat WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM calendar_events WHERE start_time >= $1 AND start_time < $2),
			(SELECT CASE WHEN COUNT(DISTINCT session_id) = 0 THEN 0
			             ELSE ROUND(COUNT(*)::numeric / COUNT(DISTINCT session_id), 1)
			        END::float8
			 FROM chat WHERE created_at >= $1 AND created_at < $2)`, from, until).
		Scan(&c.Messages, &c.Users, &c.Appointments, &c.AvgMessagesPerChat)
	if err != nil {
		return Counts{}, fmt.Errorf("analytics: counts: %w", err)
	}
	return c, nil
}

func (s *SQLStore) MessagesBySender(ctx context.Context, from, until time.Time) ([]SenderCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'America/Sao_Paulo', 'YYYY-MM-DD') AS dia,
		       sender,
		       COUNT(*)
		FROM chat
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY dia, sender
		ORDER BY dia ASC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("analytics: messages by sender: %w", err)
	}
	defer rows.Close()

	var out []SenderCount
	for rows.Next() {
		var c SenderCount
		if err := rows.Scan(&c.Day, &c.Sender, &c.Total); err != nil {
			return nil, fmt.Errorf("analytics: scan sender count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppointmentsByMonth(ctx context.Context, since time.Time) ([]MonthCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('month', start_time AT TIME ZONE 'America/Sao_Paulo'), 'YYYY-MM') AS mes,
		       COUNT(*)
		FROM calendar_events
		WHERE start_time >= $1
		GROUP BY mes
		ORDER BY mes ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: appointments by month: %w", err)
	}
	defer rows.Close()

	var out []MonthCount
	for rows.Next() {
		var c MonthCount
		if err := rows.Scan(&c.Month, &c.Total); err != nil {
			return nil, fmt.Errorf("analytics: scan month count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DoctorsRanking counts bookings per doctor. Rows written before doctor_id
// existed are matched by name.
func (s *SQLStore) DoctorsRanking(ctx context.Context, from, until time.Time) ([]DoctorCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dr.name, dr.active, COUNT(ce.id) AS total_agendamentos
		FROM doctor_rules dr
		LEFT JOIN calendar_events ce
		  ON (ce.doctor_id = dr.id OR (ce.doctor_id IS NULL AND ce.dr_responsible = dr.name))
		 AND ce.start_time >= $1
		 AND ce.start_time < $2
		GROUP BY dr.id, dr.name, dr.active
		ORDER BY total_agendamentos DESC, dr.name ASC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("analytics: doctors ranking: %w", err)
	}
	defer rows.Close()

	out := []DoctorCount{}
	for rows.Next() {
		var c DoctorCount
		if err := rows.Scan(&c.Name, &c.Active, &c.Total); err != nil {
			return nil, fmt.Errorf("analytics: scan doctor count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) Procedures(ctx context.Context, from, until time.Time) ([]ProcedureCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT INITCAP(LOWER(COALESCE(NULLIF(procedure, ''), 'Não informado'))) AS proc,
		       COUNT(*) AS total
		FROM calendar_events
		WHERE start_time >= $1 AND start_time < $2
		GROUP BY proc
		ORDER BY total DESC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("analytics: procedures: %w", err)
	}
	defer rows.Close()

	out := []ProcedureCount{}
	for rows.Next() {
		var c ProcedureCount
		if err := rows.Scan(&c.Procedure, &c.Total); err != nil {
			return nil, fmt.Errorf("analytics: scan procedure count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

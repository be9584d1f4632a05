package appointments

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPostgresRepository_ListWithDoctorFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM calendar_events ce LEFT JOIN users u (.+) AND ce.dr_responsible = \$3 ORDER BY ce.start_time ASC`).
		WithArgs(from, until, "Dra. Ana").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "event_id", "user_number", "patient_name", "convenio", "dr_responsible", "procedure",
			"description", "status", "summary", "start_time", "end_time", "created_at",
		}).AddRow(int64(7), "evt-7", testPatient, "Maria Silva", strPtr("unimed"), "Dra. Ana", strPtr("Botox"),
			(*string)(nil), "pending", strPtr("Consulta Maria Silva"), start, start.Add(45*time.Minute), from))

	repo := newRepositoryWithDB(mock)
	appts, err := repo.List(context.Background(), ListFilter{From: from, Until: until, Doctor: "Dra. Ana"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Maria Silva", appts[0].PatientName)
	assert.Equal(t, "unimed", *appts[0].Convenio)
	assert.Nil(t, appts[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_InsertPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	mock.ExpectQuery("INSERT INTO calendar_events").
		WithArgs(testPatient, "evt-1", "Consulta Maria", "Dra. Ana", testDoctorID, "Consulta", "Agendado pelo painel admin", StatusPending, start, end).
		WillReturnRows(pgxmock.NewRows([]string{"event_id", "status", "start_time", "end_time"}).AddRow("evt-1", "pending", start, end))

	repo := newRepositoryWithDB(mock)
	booking, err := repo.Insert(context.Background(), NewAppointment{
		UserNumber:  testPatient,
		EventID:     "evt-1",
		Summary:     "Consulta Maria",
		DoctorName:  "Dra. Ana",
		DoctorID:    testDoctorID,
		Procedure:   "Consulta",
		Description: "Agendado pelo painel admin",
		Start:       start,
		End:         end,
	})
	require.NoError(t, err)
	assert.Equal(t, &Booking{EventID: "evt-1", Status: "pending", StartTime: start, EndTime: end}, booking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindForCancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`LEFT JOIN doctor_rules dr ON dr.id = ce.doctor_id OR \(ce.doctor_id IS NULL AND dr.name = ce.dr_responsible\)`).
		WithArgs("evt-1").
		WillReturnRows(pgxmock.NewRows([]string{"event_id", "user_number", "dr_responsible", "calendar_id"}).
			AddRow("evt-1", testPatient, "Dra. Ana", "cal-ana"))
	mock.ExpectQuery("FROM calendar_events ce").
		WithArgs("evt-missing").
		WillReturnError(pgx.ErrNoRows)

	repo := newRepositoryWithDB(mock)
	target, err := repo.FindForCancel(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "cal-ana", target.CalendarID)

	_, err = repo.FindForCancel(context.Background(), "evt-missing")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

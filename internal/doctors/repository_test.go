package doctors

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doctorRowColumns = []string{
	"id", "name", "doctor_number", "calendar_id", "active", "procedures",
	"available_weekdays", "working_hours", "insurances", "restrictions", "created_at", "updated_at",
}

func doctorRow(rows *pgxmock.Rows, id, name string, number *string) *pgxmock.Rows {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, name, number, name+"@calendar", true,
		[]byte(`[{"nome":"Consulta","duracao_minutos":30,"preco":"definir_com_doutor"}]`),
		[]byte(`[1,2,3]`),
		[]byte(`{"manha":{"inicio":"08:00","fim":"12:00"}}`),
		[]byte(`["unimed"]`),
		[]byte(nil),
		ts, ts,
	)
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(doctorRowColumns)
	doctorRow(rows, "d1", "Ana", strPtr("5511999990000"))
	doctorRow(rows, "d2", "Bruno", (*string)(nil))
	mock.ExpectQuery("SELECT (.+) FROM doctor_rules ORDER BY name").WillReturnRows(rows)

	repo := newRepositoryWithDB(mock)
	doctors, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)

	assert.Equal(t, "Ana", doctors[0].Name)
	assert.Equal(t, "5511999990000", doctors[0].Contact())
	assert.Equal(t, "", doctors[1].Contact())
	require.Len(t, doctors[0].Procedures, 1)
	assert.True(t, doctors[0].Procedures[0].Price.ToDefine)
	assert.Equal(t, 30*time.Minute, doctors[0].Procedures[0].Duration())
	assert.Equal(t, []int{1, 2, 3}, doctors[0].AvailableWeekdays)
	assert.Equal(t, "08:00", doctors[0].WorkingHours.Morning.Start)
	assert.Nil(t, doctors[0].Restrictions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM doctor_rules WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := newRepositoryWithDB(mock)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	in := validInput()
	in.Insurances = []string{"unimed"}
	rows := pgxmock.NewRows(doctorRowColumns)
	doctorRow(rows, "d1", in.Name, (*string)(nil))
	mock.ExpectQuery("INSERT INTO doctor_rules").
		WithArgs(in.Name, in.DoctorNumber, in.CalendarID, true,
			`[{"nome":"Consulta","duracao_minutos":30,"preco":250}]`,
			`[1,3,5]`,
			`{"manha":{"inicio":"08:00","fim":"12:00"},"tarde":{"inicio":"14:00","fim":"18:00"}}`,
			`["unimed"]`,
			(*string)(nil)).
		WillReturnRows(rows)

	repo := newRepositoryWithDB(mock)
	doctor, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "d1", doctor.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ToggleActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("UPDATE doctor_rules SET active = NOT active").
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "active"}).AddRow("d1", false))
	mock.ExpectQuery("UPDATE doctor_rules SET active = NOT active").
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	repo := newRepositoryWithDB(mock)
	res, err := repo.ToggleActive(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, &ToggleResult{ID: "d1", Active: false}, res)

	_, err = repo.ToggleActive(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

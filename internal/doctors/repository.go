package doctors

import (
	"context"
	"encoding/json"
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

// Repository persists doctor rules.
type Repository interface {
	List(ctx context.Context) ([]Doctor, error)
	Get(ctx context.Context, id string) (*Doctor, error)
	Create(ctx context.Context, in DoctorInput) (*Doctor, error)
	Update(ctx context.Context, id string, in DoctorInput) (*Doctor, error)
	ToggleActive(ctx context.Context, id string) (*ToggleResult, error)
}

// PostgresRepository stores doctors in doctor_rules.
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("doctors: db required")
	}
	return &PostgresRepository{db: db}
}

const doctorColumns = `id::text, name, doctor_number, calendar_id, active, procedures,
		available_weekdays, working_hours, insurances, restrictions, created_at, updated_at`

// List returns every doctor ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `SELECT `+doctorColumns+` FROM doctor_rules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	doctors := make([]Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: list rows: %w", err)
	}
	return doctors, nil
}

// Get fetches one doctor by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctor_rules WHERE id = $1`, id)
	d, err := scanDoctor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return d, nil
}

// Create inserts a validated doctor.
func (r *PostgresRepository) Create(ctx context.Context, in DoctorInput) (*Doctor, error) {
	args, err := inputArgs(in)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO doctor_rules
			(name, doctor_number, calendar_id, active, procedures, available_weekdays,
			 working_hours, insurances, restrictions)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8::jsonb, $9::jsonb)
		RETURNING ` + doctorColumns
	d, err := scanDoctor(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("doctors: insert: %w", err)
	}
	return d, nil
}

// Update replaces every editable field of a doctor.
func (r *PostgresRepository) Update(ctx context.Context, id string, in DoctorInput) (*Doctor, error) {
	args, err := inputArgs(in)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE doctor_rules SET
			name = $1, doctor_number = $2, calendar_id = $3, active = $4,
			procedures = $5::jsonb, available_weekdays = $6::jsonb, working_hours = $7::jsonb,
			insurances = $8::jsonb, restrictions = $9::jsonb, updated_at = NOW()
		WHERE id = $10
		RETURNING ` + doctorColumns
	d, err := scanDoctor(r.db.QueryRow(ctx, query, append(args, id)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: update: %w", err)
	}
	return d, nil
}

// ToggleActive flips the active flag.
func (r *PostgresRepository) ToggleActive(ctx context.Context, id string) (*ToggleResult, error) {
	query := `UPDATE doctor_rules SET active = NOT active, updated_at = NOW() WHERE id = $1 RETURNING id::text, active`
	var res ToggleResult
	if err := r.db.QueryRow(ctx, query, id).Scan(&res.ID, &res.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: toggle: %w", err)
	}
	return &res, nil
}

func inputArgs(in DoctorInput) ([]any, error) {
	procedures, err := json.Marshal(in.Procedures)
	if err != nil {
		return nil, fmt.Errorf("doctors: encode procedures: %w", err)
	}
	weekdays, err := json.Marshal(in.AvailableWeekdays)
	if err != nil {
		return nil, fmt.Errorf("doctors: encode weekdays: %w", err)
	}
	var hours WorkingHours
	if in.WorkingHours != nil {
		hours = *in.WorkingHours
	}
	workingHours, err := json.Marshal(hours)
	if err != nil {
		return nil, fmt.Errorf("doctors: encode working hours: %w", err)
	}
	insurances := in.Insurances
	if insurances == nil {
		insurances = []string{}
	}
	insurancesJSON, err := json.Marshal(insurances)
	if err != nil {
		return nil, fmt.Errorf("doctors: encode insurances: %w", err)
	}
	var restrictions *string
	if len(in.Restrictions) > 0 {
		raw, err := json.Marshal(in.Restrictions)
		if err != nil {
			return nil, fmt.Errorf("doctors: encode restrictions: %w", err)
		}
		s := string(raw)
		restrictions = &s
	}
	return []any{
		in.Name,
		in.DoctorNumber,
		in.CalendarID,
		in.Active,
		string(procedures),
		string(weekdays),
		string(workingHours),
		string(insurancesJSON),
		restrictions,
	}, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var procedures, weekdays, hours, insurances, restrictions []byte
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.DoctorNumber,
		&d.CalendarID,
		&d.Active,
		&procedures,
		&weekdays,
		&hours,
		&insurances,
		&restrictions,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := decodeJSONB(procedures, &d.Procedures); err != nil {
		return nil, fmt.Errorf("doctors: decode procedures: %w", err)
	}
	if err := decodeJSONB(weekdays, &d.AvailableWeekdays); err != nil {
		return nil, fmt.Errorf("doctors: decode weekdays: %w", err)
	}
	if err := decodeJSONB(hours, &d.WorkingHours); err != nil {
		return nil, fmt.Errorf("doctors: decode working hours: %w", err)
	}
	if err := decodeJSONB(insurances, &d.Insurances); err != nil {
		return nil, fmt.Errorf("doctors: decode insurances: %w", err)
	}
	if err := decodeJSONB(restrictions, &d.Restrictions); err != nil {
		return nil, fmt.Errorf("doctors: decode restrictions: %w", err)
	}
	if d.Procedures == nil {
		d.Procedures = []Procedure{}
	}
	if d.AvailableWeekdays == nil {
		d.AvailableWeekdays = []int{}
	}
	if d.Insurances == nil {
		d.Insurances = []string{}
	}
	return &d, nil
}

func decodeJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

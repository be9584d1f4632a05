package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrFileNotFound is returned when no row has the id.
var ErrFileNotFound = errors.New("files: not found")

// File is one row of the files table.
type File struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Filename  string    `json:"filename"`
	MediaType string    `json:"mediatype"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists file metadata.
type Repository interface {
	List(ctx context.Context, category string) ([]File, error)
	Get(ctx context.Context, id int64) (*File, error)
	Insert(ctx context.Context, f File) (*File, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository stores files in Postgres.
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("files: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("files: db required")
	}
	return &PostgresRepository{db: db}
}

const fileColumns = `id, category, filename, mediatype, path, created_at`

func (r *PostgresRepository) List(ctx context.Context, category string) ([]File, error) {
	query := `SELECT ` + fileColumns + ` FROM files`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	defer rows.Close()

	out := make([]File, 0)
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Category, &f.Filename, &f.MediaType, &f.Path, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: list rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*File, error) {
	var f File
	err := r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id).
		Scan(&f.ID, &f.Category, &f.Filename, &f.MediaType, &f.Path, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("files: get: %w", err)
	}
	return &f, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, in File) (*File, error) {
	var f File
	err := r.db.QueryRow(ctx, `
		INSERT INTO files (category, filename, mediatype, path)
		VALUES ($1, $2, $3, $4)
		RETURNING `+fileColumns, in.Category, in.Filename, in.MediaType, in.Path).
		Scan(&f.ID, &f.Category, &f.Filename, &f.MediaType, &f.Path, &f.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrFileExists
	}
	if err != nil {
		return nil, fmt.Errorf("files: insert: %w", err)
	}
	return &f, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("files: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

package files

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileRowColumns = []string{"id", "category", "filename", "mediatype", "path", "created_at"}

func TestPostgresRepository_ListByCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM files WHERE category = \$1 ORDER BY created_at DESC`).
		WithArgs("precos").
		WillReturnRows(pgxmock.NewRows(fileRowColumns).
			AddRow(int64(3), "precos", "tabela.pdf", "document", "https://cdn/precos/tabela.pdf", ts))

	files, err := newRepositoryWithDB(mock).List(context.Background(), "precos")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, File{ID: 3, Category: "precos", Filename: "tabela.pdf", MediaType: "document", Path: "https://cdn/precos/tabela.pdf", CreatedAt: ts}, files[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT (.+) FROM files ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows(fileRowColumns))

	files, err := newRepositoryWithDB(mock).List(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM files WHERE id = \$1`).WithArgs(int64(9)).WillReturnError(pgx.ErrNoRows)

	_, err = newRepositoryWithDB(mock).Get(context.Background(), 9)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO files \(category, filename, mediatype, path\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING`).
		WithArgs("videos", "tour.mp4", "video", "https://cdn/videos/tour.mp4").
		WillReturnRows(pgxmock.NewRows(fileRowColumns).
			AddRow(int64(11), "videos", "tour.mp4", "video", "https://cdn/videos/tour.mp4", ts))

	f, err := newRepositoryWithDB(mock).Insert(context.Background(), File{Category: "videos", Filename: "tour.mp4", MediaType: "video", Path: "https://cdn/videos/tour.mp4"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), f.ID)
	assert.Equal(t, ts, f.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM files WHERE id = \$1`).WithArgs(int64(4)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM files WHERE id = \$1`).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := newRepositoryWithDB(mock)
	assert.NoError(t, repo.Delete(context.Background(), 4))
	assert.ErrorIs(t, repo.Delete(context.Background(), 5), ErrFileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_InsertDuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO files`).
		WithArgs("precos", "tabela.pdf", "document", "https://cdn/precos/tabela.pdf").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = newRepositoryWithDB(mock).Insert(context.Background(), File{Category: "precos", Filename: "tabela.pdf", MediaType: "document", Path: "https://cdn/precos/tabela.pdf"})
	assert.ErrorIs(t, err, ErrFileExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

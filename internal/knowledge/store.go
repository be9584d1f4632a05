package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Chunk is a stored knowledge block without its vector.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryCount is the number of chunks in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// Page is one page of the chunk listing.
type Page struct {
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
	Items []Chunk `json:"items"`
}

// Store reads and writes rag_embeddings.
type Store interface {
	List(ctx context.Context, category string, page, limit int) (*Page, error)
	Exists(ctx context.Context, category, content string) (bool, error)
	Insert(ctx context.Context, content, category string, embedding []float32) error
	DeleteIDs(ctx context.Context, ids []string) (int64, error)
	DeleteItem(ctx context.Context, id string) (int64, error)
	DeleteCategory(ctx context.Context, category string) (int64, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
}

// SQLStore implements Store on database/sql with the pgvector column.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps a database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("knowledge: sql db required")
	}
	return &SQLStore{db: db}
}

// List pages through chunks, newest first, optionally within one category.
func (s *SQLStore) List(ctx context.Context, category string, page, limit int) (*Page, error) {
	where := ""
	args := []any{}
	if category != "" {
		args = append(args, category)
		where = " WHERE category = $1"
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rag_embeddings"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("knowledge: count: %w", err)
	}

	offset := (page - 1) * limit
	n := len(args)
	query := "SELECT id, content, category, created_at FROM rag_embeddings" + where +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list: %w", err)
	}
	defer rows.Close()

	items := make([]Chunk, 0)
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Category, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("knowledge: scan: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: list rows: %w", err)
	}
	return &Page{Total: total, Page: page, Limit: limit, Items: items}, nil
}

// Exists reports whether the exact content is already stored in category.
func (s *SQLStore) Exists(ctx context.Context, category, content string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM rag_embeddings WHERE category = $1 AND content = $2 LIMIT 1",
		category, content,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("knowledge: exists: %w", err)
	}
	return true, nil
}

// Insert stores a chunk with its vector.
func (s *SQLStore) Insert(ctx context.Context, content, category string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rag_embeddings (content, category, embedding) VALUES ($1, $2, $3::vector)",
		content, category, vectorLiteral(embedding),
	)
	if err != nil {
		return fmt.Errorf("knowledge: insert: %w", err)
	}
	return nil
}

// DeleteIDs removes the listed chunks.
func (s *SQLStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	return s.exec(ctx, "delete ids", "DELETE FROM rag_embeddings WHERE id = ANY($1::uuid[])", pq.Array(ids))
}

// DeleteItem removes one chunk.
func (s *SQLStore) DeleteItem(ctx context.Context, id string) (int64, error) {
	return s.exec(ctx, "delete item", "DELETE FROM rag_embeddings WHERE id = $1", id)
}

// DeleteCategory removes every chunk of a category.
func (s *SQLStore) DeleteCategory(ctx context.Context, category string) (int64, error) {
	return s.exec(ctx, "delete category", "DELETE FROM rag_embeddings WHERE category = $1", category)
}

// Categories lists categories with their chunk counts.
func (s *SQLStore) Categories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category, COUNT(*) FROM rag_embeddings GROUP BY category ORDER BY category ASC")
	if err != nil {
		return nil, fmt.Errorf("knowledge: categories: %w", err)
	}
	defer rows.Close()

	out := make([]CategoryCount, 0)
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Total); err != nil {
			return nil, fmt.Errorf("knowledge: scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("knowledge: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("knowledge: %s rows affected: %w", op, err)
	}
	return n, nil
}

// vectorLiteral renders a pgvector text literal, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

package costs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Totals is the token volume of a period.
type Totals struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ModelUsage is the token volume of one model.
type ModelUsage struct {
	Model        string `json:"model_name"`
	TotalTokens  int64  `json:"total_tokens"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// DayTokens is input and output volume for one day.
type DayTokens struct {
	Day    string `json:"dia"`
	Input  int64  `json:"entrada"`
	Output int64  `json:"saida"`
}

// DayModelUsage is one (day, model) bucket used to price a day.
type DayModelUsage struct {
	Day          string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// UserUsage is the token volume of one patient.
type UserUsage struct {
	PhoneNumber  string
	CompleteName *string
	Interactions int64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Models       []string
}

// Reports queries token_usage.
type Reports interface {
	Totals(ctx context.Context, from, until time.Time) (Totals, error)
	ByModel(ctx context.Context, from, until time.Time) ([]ModelUsage, error)
	TokensByDay(ctx context.Context, from, until time.Time) ([]DayTokens, error)
	ByDayAndModel(ctx context.Context, from, until time.Time) ([]DayModelUsage, error)
	ByUser(ctx context.Context, from, until time.Time, limit int) ([]UserUsage, error)
}

// SQLReports implements Reports on database/sql.
type SQLReports struct {
	db *sql.DB
}

var _ Reports = (*SQLReports)(nil)

// NewSQLReports wraps a database handle.
func NewSQLReports(db *sql.DB) *SQLReports {
	if db == nil {
		panic("costs: sql db required")
	}
	return &SQLReports{db: db}
}

// Daily buckets are cut in the clinic timezone.
const dayExpr = `to_char(created_at AT TIME ZONE 'America/Sao_Paulo', 'YYYY-MM-DD')`

func (s *SQLReports) Totals(ctx context.Context, from, until time.Time) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0)::bigint,
		       COALESCE(SUM(output_tokens), 0)::bigint,
		       COALESCE(SUM(total_tokens), 0)::bigint
		FROM token_usage
		WHERE created_at >= $1 AND created_at <= $2`, from, until).
		Scan(&t.InputTokens, &t.OutputTokens, &t.TotalTokens)
	if err != nil {
		return Totals{}, fmt.Errorf("costs: totals: %w", err)
	}
	return t, nil
}

func (s *SQLReports) ByModel(ctx context.Context, from, until time.Time) ([]ModelUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model_name,
		       COALESCE(SUM(total_tokens), 0)::bigint AS total_tokens,
		       COALESCE(SUM(input_tokens), 0)::bigint AS input_tokens,
		       COALESCE(SUM(output_tokens), 0)::bigint AS output_tokens
		FROM token_usage
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY model_name
		ORDER BY total_tokens DESC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("costs: by model: %w", err)
	}
	defer rows.Close()

	out := []ModelUsage{}
	for rows.Next() {
		var m ModelUsage
		if err := rows.Scan(&m.Model, &m.TotalTokens, &m.InputTokens, &m.OutputTokens); err != nil {
			return nil, fmt.Errorf("costs: scan model usage: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLReports) TokensByDay(ctx context.Context, from, until time.Time) ([]DayTokens, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dayExpr+` AS dia,
		       COALESCE(SUM(input_tokens), 0)::bigint AS entrada,
		       COALESCE(SUM(output_tokens), 0)::bigint AS saida
		FROM token_usage
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY dia
		ORDER BY dia ASC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("costs: tokens by day: %w", err)
	}
	defer rows.Close()

	out := []DayTokens{}
	for rows.Next() {
		var d DayTokens
		if err := rows.Scan(&d.Day, &d.Input, &d.Output); err != nil {
			return nil, fmt.Errorf("costs: scan day tokens: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLReports) ByDayAndModel(ctx context.Context, from, until time.Time) ([]DayModelUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dayExpr+` AS dia,
		       model_name,
		       COALESCE(SUM(input_tokens), 0)::bigint,
		       COALESCE(SUM(output_tokens), 0)::bigint
		FROM token_usage
		WHERE created_at >= $1 AND created_at <= $2
		GROUP BY dia, model_name
		ORDER BY dia ASC`, from, until)
	if err != nil {
		return nil, fmt.Errorf("costs: by day and model: %w", err)
	}
	defer rows.Close()

	out := []DayModelUsage{}
	for rows.Next() {
		var d DayModelUsage
		if err := rows.Scan(&d.Day, &d.Model, &d.InputTokens, &d.OutputTokens); err != nil {
			return nil, fmt.Errorf("costs: scan day model usage: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLReports) ByUser(ctx context.Context, from, until time.Time, limit int) ([]UserUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tu.phone_number,
		       u.complete_name,
		       COUNT(*) AS interacoes,
		       COALESCE(SUM(tu.input_tokens), 0)::bigint AS input_tokens,
		       COALESCE(SUM(tu.output_tokens), 0)::bigint AS output_tokens,
		       COALESCE(SUM(tu.total_tokens), 0)::bigint AS total_tokens,
		       array_agg(DISTINCT tu.model_name) AS models
		FROM token_usage tu
		LEFT JOIN users u ON u.phone_number = tu.phone_number
		WHERE tu.created_at >= $1 AND tu.created_at <= $2
		GROUP BY tu.phone_number, u.complete_name
		ORDER BY total_tokens DESC
		LIMIT $3`, from, until, limit)
	if err != nil {
		return nil, fmt.Errorf("costs: by user: %w", err)
	}
	defer rows.Close()

	out := []UserUsage{}
	for rows.Next() {
		var (
			u    UserUsage
			name sql.NullString
		)
		if err := rows.Scan(&u.PhoneNumber, &name, &u.Interactions, &u.InputTokens, &u.OutputTokens, &u.TotalTokens, pq.Array(&u.Models)); err != nil {
			return nil, fmt.Errorf("costs: scan user usage: %w", err)
		}
		if name.Valid {
			u.CompleteName = &name.String
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
)

const searchLimit = 10

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads patients and their chat history.
type Repository interface {
	List(ctx context.Context) ([]ListItem, error)
	Search(ctx context.Context, q string) ([]SearchResult, error)
	Get(ctx context.Context, phone string) (*Patient, error)
	ToggleRequireHuman(ctx context.Context, phone string) (*ToggleResult, error)
	ChatHistory(ctx context.Context, phone string) ([]ChatMessage, error)
	RecordMessage(ctx context.Context, sessionID, sender string, agentName *string, content string) error
}

// PostgresRepository reads users and chat.
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("patients: db required")
	}
	return &PostgresRepository{db: db}
}

// List returns every patient with their latest message, most recent first.
// Chat sessions are matched to users by the digits of the contact reference.
func (r *PostgresRepository) List(ctx context.Context) ([]ListItem, error) {
	query := `
		WITH last_msg AS (
			SELECT DISTINCT ON (regexp_replace(session_id, '[^0-9]', '', 'g'))
				session_id, message, created_at
			FROM chat
			ORDER BY regexp_replace(session_id, '[^0-9]', '', 'g'), created_at DESC
		)
		SELECT u.phone_number, u.complete_name, u.require_human, lm.message, lm.created_at
		FROM users u
		LEFT JOIN last_msg lm
			ON regexp_replace(lm.session_id, '[^0-9]', '', 'g') = regexp_replace(u.phone_number, '[^0-9]', '', 'g')
		ORDER BY lm.created_at DESC NULLS LAST, u.phone_number
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	defer rows.Close()

	items := make([]ListItem, 0)
	for rows.Next() {
		var (
			item ListItem
			raw  []byte
			last *time.Time
		)
		if err := rows.Scan(&item.PhoneNumber, &item.CompleteName, &item.RequireHuman, &raw, &last); err != nil {
			return nil, fmt.Errorf("patients: scan list: %w", err)
		}
		item.LastMessage = messageText(raw)
		item.LastActivity = last
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: list rows: %w", err)
	}
	return items, nil
}

// Search matches phone or name case-insensitively.
func (r *PostgresRepository) Search(ctx context.Context, q string) ([]SearchResult, error) {
	query := `
		SELECT phone_number, complete_name
		FROM users
		WHERE phone_number ILIKE $1 OR complete_name ILIKE $1
		ORDER BY complete_name ASC NULLS LAST
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, "%"+q+"%", searchLimit)
	if err != nil {
		return nil, fmt.Errorf("patients: search: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.PhoneNumber, &res.CompleteName); err != nil {
			return nil, fmt.Errorf("patients: scan search: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Get fetches one patient by exact phone number.
func (r *PostgresRepository) Get(ctx context.Context, phone string) (*Patient, error) {
	query := `
		SELECT phone_number, complete_name, require_human, COALESCE(metadata->>'convenio_tipo', '')
		FROM users
		WHERE phone_number = $1
	`
	var p Patient
	if err := r.db.QueryRow(ctx, query, phone).Scan(&p.PhoneNumber, &p.CompleteName, &p.RequireHuman, &p.InsuranceType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: get: %w", err)
	}
	return &p, nil
}

// ToggleRequireHuman flips the human-takeover flag.
func (r *PostgresRepository) ToggleRequireHuman(ctx context.Context, phone string) (*ToggleResult, error) {
	query := `
		UPDATE users SET require_human = NOT require_human, updated_at = NOW()
		WHERE phone_number = $1
		RETURNING phone_number, require_human
	`
	var res ToggleResult
	if err := r.db.QueryRow(ctx, query, phone).Scan(&res.PhoneNumber, &res.RequireHuman); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: toggle: %w", err)
	}
	return &res, nil
}

// ChatHistory returns the conversation in chronological order. Sessions may
// be stored as the raw number, digits only, or a WhatsApp JID.
func (r *PostgresRepository) ChatHistory(ctx context.Context, phone string) ([]ChatMessage, error) {
	query := `
		SELECT id, session_id, sender, agent_name, message, created_at
		FROM chat
		WHERE session_id = $1
			OR session_id = $1 || '@s.whatsapp.net'
			OR session_id = $2
			OR session_id = $2 || '@s.whatsapp.net'
			OR regexp_replace(session_id, '[^0-9]', '', 'g') = $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, phone, respond.Digits(phone))
	if err != nil {
		return nil, fmt.Errorf("patients: chat history: %w", err)
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0)
	for rows.Next() {
		var (
			m   ChatMessage
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.AgentName, &raw, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan chat: %w", err)
		}
		if len(raw) == 0 {
			raw = []byte("{}")
		}
		m.Message = json.RawMessage(raw)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: chat rows: %w", err)
	}
	return messages, nil
}

// RecordMessage appends a chat row. Content is stored as {"type":"ai","content":...},
// the shape the agent's memory reads.
func (r *PostgresRepository) RecordMessage(ctx context.Context, sessionID, sender string, agentName *string, content string) error {
	payload, err := json.Marshal(map[string]string{"type": "ai", "content": content})
	if err != nil {
		return fmt.Errorf("patients: encode message: %w", err)
	}
	query := `INSERT INTO chat (session_id, sender, agent_name, message) VALUES ($1, $2, $3, $4::jsonb)`
	if _, err := r.db.Exec(ctx, query, sessionID, sender, agentName, string(payload)); err != nil {
		return fmt.Errorf("patients: record message: %w", err)
	}
	return nil
}

// Package patients exposes the WhatsApp contacts the agent talks to, their
// chat history and the human-takeover switch.
package patients

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrAIInControl     = errors.New("patient conversation is handled by the ai agent")
	ErrEmptyMessage    = errors.New("message is required")
)

// Patient is a row of users.
type Patient struct {
	PhoneNumber  string  `json:"phone_number"`
	CompleteName *string `json:"complete_name"`
	RequireHuman bool    `json:"require_human"`
	// InsuranceType is metadata.convenio_tipo, used in booking notifications.
	InsuranceType string `json:"-"`
}

// DisplayName returns the name, or the phone number when the name is unknown.
func (p *Patient) DisplayName() string {
	if p.CompleteName != nil && *p.CompleteName != "" {
		return *p.CompleteName
	}
	return p.PhoneNumber
}

// ListItem is a patient with their most recent chat message.
type ListItem struct {
	PhoneNumber  string     `json:"phone_number"`
	CompleteName *string    `json:"complete_name"`
	RequireHuman bool       `json:"require_human"`
	LastMessage  *string    `json:"last_message"`
	LastActivity *time.Time `json:"last_activity"`
}

// SearchResult is an autocomplete hit.
type SearchResult struct {
	PhoneNumber  string  `json:"phone_number"`
	CompleteName *string `json:"complete_name"`
}

// ToggleResult is returned after flipping require_human.
type ToggleResult struct {
	PhoneNumber  string `json:"phone_number"`
	RequireHuman bool   `json:"require_human"`
}

// ChatMessage is a row of chat.
type ChatMessage struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Sender    string          `json:"sender"`
	AgentName *string         `json:"agent_name"`
	Message   json.RawMessage `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
}

// messageText extracts the content or text field of a stored chat message.
func messageText(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	switch v := payload.(type) {
	case string:
		return &v
	case map[string]any:
		if s, ok := v["content"].(string); ok {
			return &s
		}
		if s, ok := v["text"].(string); ok {
			return &s
		}
	}
	return nil
}

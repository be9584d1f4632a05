// Package doctors manages the doctor rules the WhatsApp agent and the
// scheduler book against: calendars, procedures, weekdays and hours.
package doctors

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDoctorNotFound is returned when no doctor matches the id.
	ErrDoctorNotFound = errors.New("doctor not found")
)

// PriceToBeDefined is stored instead of a number when the doctor quotes the
// price during the consultation.
const PriceToBeDefined = "definir_com_doutor"

// Price is either a non-negative amount or PriceToBeDefined.
type Price struct {
	Amount   float64
	ToDefine bool
	set      bool
}

// FixedPrice returns a numeric price.
func FixedPrice(amount float64) Price {
	return Price{Amount: amount, set: true}
}

// PriceOnConsultation returns the "definir_com_doutor" price.
func PriceOnConsultation() Price {
	return Price{ToDefine: true, set: true}
}

// Valid reports whether the price is the sentinel or a number >= 0.
func (p Price) Valid() bool {
	if p.ToDefine {
		return true
	}
	return p.set && p.Amount >= 0
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.ToDefine {
		return json.Marshal(PriceToBeDefined)
	}
	return []byte(strconv.FormatFloat(p.Amount, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number or the sentinel string. Anything else leaves
// the price unset so validation can report it.
func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == PriceToBeDefined {
			*p = PriceOnConsultation()
		}
		return nil
	}
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return nil
	}
	*p = FixedPrice(amount)
	return nil
}

// Procedure is one bookable service. JSON keys are shared with the chat agent.
type Procedure struct {
	Name            string  `json:"nome"`
	DurationMinutes float64 `json:"duracao_minutos"`
	Price           Price   `json:"preco"`
	Description     *string `json:"descricao,omitempty"`
	Triage          *string `json:"triagem,omitempty"`
}

// UnmarshalJSON also takes the duration as a numeric string ("30"), which the
// chat agent writes. Unparseable durations decode as zero and fail validation.
func (p *Procedure) UnmarshalJSON(data []byte) error {
	type plain Procedure
	aux := struct {
		*plain
		DurationMinutes json.RawMessage `json:"duracao_minutos"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.DurationMinutes = parseMinutes(aux.DurationMinutes)
	return nil
}

func parseMinutes(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		raw = []byte(strings.TrimSpace(s))
	}
	minutes, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0
	}
	return minutes
}

// Duration returns the appointment length.
func (p Procedure) Duration() time.Duration {
	return time.Duration(p.DurationMinutes * float64(time.Minute))
}

// Window is an "HH:MM" opening window.
type Window struct {
	Start string `json:"inicio"`
	End   string `json:"fim"`
}

// WorkingHours holds the morning and optional afternoon windows.
type WorkingHours struct {
	Morning   *Window `json:"manha,omitempty"`
	Afternoon *Window `json:"tarde,omitempty"`
}

// Doctor is a row of doctor_rules.
type Doctor struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	DoctorNumber      *string        `json:"doctor_number"`
	CalendarID        string         `json:"calendar_id"`
	Active            bool           `json:"active"`
	Procedures        []Procedure    `json:"procedures"`
	AvailableWeekdays []int          `json:"available_weekdays"`
	WorkingHours      WorkingHours   `json:"working_hours"`
	Insurances        []string       `json:"insurances"`
	Restrictions      map[string]any `json:"restrictions"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Procedure returns the procedure whose name matches exactly.
func (d *Doctor) Procedure(name string) (Procedure, bool) {
	for _, p := range d.Procedures {
		if p.Name == name {
			return p, true
		}
	}
	return Procedure{}, false
}

// Contact returns the WhatsApp number, or "" when none is set.
func (d *Doctor) Contact() string {
	if d.DoctorNumber == nil {
		return ""
	}
	return *d.DoctorNumber
}

// DoctorInput is the create/update payload.
type DoctorInput struct {
	Name              string         `json:"name"`
	DoctorNumber      *string        `json:"doctor_number"`
	CalendarID        string         `json:"calendar_id"`
	Active            bool           `json:"active"`
	Procedures        []Procedure    `json:"procedures"`
	AvailableWeekdays []int          `json:"available_weekdays"`
	WorkingHours      *WorkingHours  `json:"working_hours"`
	Insurances        []string       `json:"insurances"`
	Restrictions      map[string]any `json:"restrictions"`
}

// ToggleResult is returned after flipping the active flag.
type ToggleResult struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

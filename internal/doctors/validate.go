package doctors

import (
	"fmt"
	"math"
	"strings"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
)

const minProcedureMinutes = 15

// ValidationError carries the message shown to staff for an invalid payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Normalize lowercases and trims insurances, drops empties and turns a blank
// doctor number into nil.
func (in *DoctorInput) Normalize() {
	insurances := make([]string, 0, len(in.Insurances))
	for _, s := range in.Insurances {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			insurances = append(insurances, s)
		}
	}
	in.Insurances = insurances

	if in.DoctorNumber != nil {
		trimmed := strings.TrimSpace(*in.DoctorNumber)
		if trimmed == "" {
			in.DoctorNumber = nil
		} else {
			in.DoctorNumber = &trimmed
		}
	}
	in.Name = strings.TrimSpace(in.Name)
	in.CalendarID = strings.TrimSpace(in.CalendarID)
}

// Validate returns the first failing rule as a *ValidationError.
func (in *DoctorInput) Validate() error {
	if len([]rune(strings.TrimSpace(in.Name))) < 3 {
		return invalid("Nome é obrigatório (mínimo 3 caracteres)")
	}
	if strings.TrimSpace(in.CalendarID) == "" {
		return invalid("calendar_id é obrigatório")
	}
	if len(in.Procedures) < 1 {
		return invalid("É necessário pelo menos 1 procedimento")
	}
	for i, p := range in.Procedures {
		n := i + 1
		if strings.TrimSpace(p.Name) == "" {
			return invalid("Procedimento %d: nome obrigatório", n)
		}
		if p.DurationMinutes != math.Trunc(p.DurationMinutes) || p.DurationMinutes < minProcedureMinutes {
			return invalid("Procedimento %d: duração mínima %d minutos", n, minProcedureMinutes)
		}
		if !p.Price.Valid() {
			return invalid("Procedimento %d: preço inválido", n)
		}
	}
	if len(in.AvailableWeekdays) < 1 {
		return invalid("Selecione pelo menos 1 dia da semana")
	}
	wh := in.WorkingHours
	if wh == nil || wh.Morning == nil || wh.Morning.Start == "" || wh.Morning.End == "" {
		return invalid("Horário da manhã é obrigatório")
	}
	// "HH:MM" strings order lexically.
	if wh.Morning.Start >= wh.Morning.End {
		return invalid("Horário manhã: início deve ser antes do fim")
	}
	if wh.Afternoon != nil && wh.Afternoon.Start != "" && wh.Afternoon.End != "" {
		if wh.Afternoon.Start >= wh.Afternoon.End {
			return invalid("Horário tarde: início deve ser antes do fim")
		}
	}
	if in.DoctorNumber != nil {
		if digits := respond.Digits(*in.DoctorNumber); digits != "" && (len(digits) < 10 || len(digits) > 13) {
			return invalid("WhatsApp: entre 10 e 13 dígitos")
		}
	}
	return nil
}

package appointments

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// Handler serves /api/admin/agenda.
type Handler struct {
	scheduler *Scheduler
	logger    *logging.Logger
}

// NewHandler creates an agenda handler.
func NewHandler(scheduler *Scheduler, logger *logging.Logger) *Handler {
	if scheduler == nil {
		panic("appointments: scheduler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{scheduler: scheduler, logger: logger}
}

// Routes mounts the agenda endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/agenda", h.List)
	r.Post("/agenda", h.Book)
	r.Get("/agenda/availability", h.Availability)
	r.Delete("/agenda/{eventID}", h.Cancel)
}

// List handles GET /agenda?start&end&doctor. end is inclusive of its whole day.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		respond.Error(w, "Parâmetros 'start' e 'end' obrigatórios", http.StatusBadRequest)
		return
	}
	loc := h.scheduler.Location()
	from, err := ParseDay(start, loc)
	if err != nil {
		respond.Error(w, "Parâmetro 'start' inválido", http.StatusBadRequest)
		return
	}
	if t, err := ParseTime(start, loc); err == nil {
		from = t
	}
	endDay, err := ParseDay(end, loc)
	if err != nil {
		respond.Error(w, "Parâmetro 'end' inválido", http.StatusBadRequest)
		return
	}

	appts, err := h.scheduler.List(r.Context(), ListFilter{
		From:   from,
		Until:  endDay.AddDate(0, 0, 1),
		Doctor: strings.TrimSpace(q.Get("doctor")),
	})
	if err != nil {
		h.logger.Error("failed to list agenda", "error", err)
		respond.Error(w, "Erro ao listar agenda", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, appts)
}

// Book handles POST /agenda.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, "Campos obrigatórios faltando", http.StatusBadRequest)
		return
	}
	booking, err := h.scheduler.Book(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields):
			respond.Error(w, "Campos obrigatórios faltando", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidStartTime):
			respond.Error(w, "start_time inválido", http.StatusBadRequest)
		case errors.Is(err, ErrStartInPast):
			respond.Error(w, "Não é possível agendar para uma data/hora no passado", http.StatusBadRequest)
		case errors.Is(err, ErrDoctorUnavailable):
			respond.Error(w, "Doutor não encontrado ou inativo", http.StatusNotFound)
		case errors.Is(err, ErrProcedureNotFound):
			respond.Error(w, "Procedimento não encontrado para este doutor", http.StatusNotFound)
		case errors.Is(err, ErrDoctorBusy):
			respond.Error(w, "Outro agendamento para este doutor está em andamento, tente novamente", http.StatusConflict)
		default:
			h.logger.Error("failed to book appointment", "error", err)
			respond.Error(w, "Erro ao criar agendamento", http.StatusInternalServerError)
		}
		return
	}
	respond.JSON(w, http.StatusCreated, booking)
}

// Cancel handles DELETE /agenda/{eventID}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if err := h.scheduler.Cancel(r.Context(), eventID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			respond.Error(w, "Evento não encontrado", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to cancel appointment", "event_id", eventID, "error", err)
		respond.Error(w, "Erro ao cancelar agendamento", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "cancelado", "event_id": eventID})
}

// Availability handles GET /agenda/availability?calendar_id&start&end.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	calendarID, startRaw, endRaw := q.Get("calendar_id"), q.Get("start"), q.Get("end")
	if calendarID == "" || startRaw == "" || endRaw == "" {
		respond.Error(w, "Parâmetros 'calendar_id', 'start' e 'end' obrigatórios", http.StatusBadRequest)
		return
	}
	loc := h.scheduler.Location()
	start, err := ParseTime(startRaw, loc)
	if err != nil {
		respond.Error(w, "Parâmetro 'start' inválido", http.StatusBadRequest)
		return
	}
	end, err := ParseTime(endRaw, loc)
	if err != nil || !end.After(start) {
		respond.Error(w, "Parâmetro 'end' inválido", http.StatusBadRequest)
		return
	}

	result, err := h.scheduler.CheckAvailability(r.Context(), calendarID, start, end)
	if err != nil {
		h.logger.Error("failed to check availability", "calendar_id", calendarID, "error", err)
		respond.Error(w, "Erro ao verificar disponibilidade", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

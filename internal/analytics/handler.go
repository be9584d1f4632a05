package analytics

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/internal/reporting"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// Handler serves /api/admin/metrics.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("analytics: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the dashboard endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/metrics/summary", h.Summary)
	r.Get("/metrics/messages-by-day", h.MessagesByDay)
	r.Get("/metrics/appointments-by-month", h.AppointmentsByMonth)
	r.Get("/metrics/doctors-ranking", h.DoctorsRanking)
	r.Get("/metrics/procedures-distribution", h.ProceduresDistribution)
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (reporting.Period, bool) {
	p, err := reporting.ParsePeriod(r.URL.Query(), h.service.Location())
	switch {
	case errors.Is(err, reporting.ErrMissingPeriod):
		respond.Error(w, reporting.MissingPeriodMessage, http.StatusBadRequest)
		return p, false
	case err != nil:
		respond.Error(w, "Parâmetros 'start' e 'end' inválidos", http.StatusBadRequest)
		return p, false
	}
	return p, true
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load metrics summary", "error", err)
		respond.Error(w, "Erro ao buscar métricas", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}

func (h *Handler) MessagesByDay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	days, err := h.service.MessagesByDay(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load messages by day", "error", err)
		respond.Error(w, "Erro ao buscar mensagens por dia", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, days)
}

func (h *Handler) AppointmentsByMonth(w http.ResponseWriter, r *http.Request) {
	months, err := h.service.AppointmentsByMonth(r.Context())
	if err != nil {
		h.logger.Error("failed to load appointments by month", "error", err)
		respond.Error(w, "Erro ao buscar agendamentos por mês", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, months)
}

func (h *Handler) DoctorsRanking(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	ranking, err := h.service.DoctorsRanking(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load doctors ranking", "error", err)
		respond.Error(w, "Erro ao buscar ranking de doutores", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, ranking)
}

func (h *Handler) ProceduresDistribution(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	dist, err := h.service.ProceduresDistribution(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load procedures distribution", "error", err)
		respond.Error(w, "Erro ao buscar distribuição de procedimentos", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, dist)
}

package costs

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/internal/reporting"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

// Handler serves /api/admin/costs.
type Handler struct {
	service *Service
	loc     *time.Location
	logger  *logging.Logger
}

// NewHandler creates a costs handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("costs: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, loc: reporting.Location(), logger: logger}
}

// Routes mounts the cost endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/costs/summary", h.Summary)
	r.Get("/costs/tokens-by-day", h.TokensByDay)
	r.Get("/costs/cost-by-day", h.CostByDay)
	r.Get("/costs/by-model", h.ByModel)
	r.Get("/costs/by-user", h.ByUser)
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (reporting.Period, bool) {
	p, err := reporting.ParsePeriod(r.URL.Query(), h.loc)
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

// Summary handles GET /costs/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to build cost summary", "error", err)
		respond.Error(w, "Erro ao buscar resumo de custos", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}

// TokensByDay handles GET /costs/tokens-by-day.
func (h *Handler) TokensByDay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	days, err := h.service.TokensByDay(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load tokens by day", "error", err)
		respond.Error(w, "Erro ao buscar tokens por dia", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, days)
}

// CostByDay handles GET /costs/cost-by-day.
func (h *Handler) CostByDay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	days, err := h.service.CostByDay(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load cost by day", "error", err)
		respond.Error(w, "Erro ao buscar custo por dia", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, days)
}

// ByModel handles GET /costs/by-model.
func (h *Handler) ByModel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	models, err := h.service.ByModel(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load usage by model", "error", err)
		respond.Error(w, "Erro ao buscar distribuição por modelo", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, models)
}

// ByUser handles GET /costs/by-user.
func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	users, err := h.service.ByUser(r.Context(), p)
	if err != nil {
		h.logger.Error("failed to load usage by user", "error", err)
		respond.Error(w, "Erro ao buscar consumo por usuário", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

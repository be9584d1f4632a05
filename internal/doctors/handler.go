package doctors

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const msgNotFound = "Doutor não encontrado"

// Handler serves /api/admin/doctors.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a doctors handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the doctor endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/doctors", h.List)
	r.Post("/doctors", h.Create)
	r.Get("/doctors/{id}", h.Get)
	r.Put("/doctors/{id}", h.Update)
	r.Patch("/doctors/{id}/toggle", h.Toggle)
}

// List handles GET /doctors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		respond.Error(w, "Erro ao listar doutores", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, doctors)
}

// Get handles GET /doctors/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	doctor, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, "Erro ao buscar doutor", err)
		return
	}
	respond.JSON(w, http.StatusOK, doctor)
}

// Create handles POST /doctors.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	doctor, err := h.repo.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("failed to create doctor", "error", err)
		respond.Error(w, "Erro ao cadastrar doutor", http.StatusInternalServerError)
		return
	}
	h.logger.Info("doctor created", "id", doctor.ID, "name", doctor.Name)
	respond.JSON(w, http.StatusCreated, doctor)
}

// Update handles PUT /doctors/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	doctor, err := h.repo.Update(r.Context(), id, in)
	if err != nil {
		h.writeRepoError(w, "Erro ao atualizar doutor", err)
		return
	}
	respond.JSON(w, http.StatusOK, doctor)
}

// Toggle handles PATCH /doctors/{id}/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := doctorID(w, r)
	if !ok {
		return
	}
	res, err := h.repo.ToggleActive(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, "Erro ao alternar status", err)
		return
	}
	h.logger.Info("doctor active flag toggled", "id", res.ID, "active", res.Active)
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (DoctorInput, bool) {
	var in DoctorInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, "invalid request body", http.StatusBadRequest)
		return in, false
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Error(w, verr.Message, http.StatusUnprocessableEntity)
			return in, false
		}
		respond.Error(w, err.Error(), http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func (h *Handler) writeRepoError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrDoctorNotFound) {
		respond.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	h.logger.Error(msg, "error", err)
	respond.Error(w, msg, http.StatusInternalServerError)
}

// doctorID reads {id}; ids that are not UUIDs cannot exist.
func doctorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respond.Error(w, msgNotFound, http.StatusNotFound)
		return "", false
	}
	return id, true
}

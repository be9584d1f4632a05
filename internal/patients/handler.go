package patients

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const msgNotFound = "Usuário não encontrado"

// Handler serves /api/admin/users.
type Handler struct {
	repo    Repository
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo Repository, service *Service, logger *logging.Logger) *Handler {
	if repo == nil || service == nil {
		panic("patients: repository and service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, service: service, logger: logger}
}

// Routes mounts the user endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/users", h.List)
	r.Get("/users/{number}", h.Get)
	r.Put("/users/{number}/toggle", h.Toggle)
	r.Post("/users/{number}/reply", h.Reply)
	r.Get("/users/{number}/chat", h.Chat)
}

// List handles GET /users, or the autocomplete search when q is set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		results, err := h.repo.Search(r.Context(), q)
		if err != nil {
			h.logger.Error("failed to search users", "error", err)
			respond.Error(w, "Erro ao listar usuários", http.StatusInternalServerError)
			return
		}
		respond.JSON(w, http.StatusOK, results)
		return
	}
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		respond.Error(w, "Erro ao listar usuários", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

// Get handles GET /users/{number}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	patient, err := h.repo.Get(r.Context(), phoneParam(r))
	if err != nil {
		h.writeError(w, "Erro ao buscar usuário", err)
		return
	}
	respond.JSON(w, http.StatusOK, patient)
}

// Toggle handles PUT /users/{number}/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	res, err := h.repo.ToggleRequireHuman(r.Context(), phoneParam(r))
	if err != nil {
		h.writeError(w, "Erro ao alternar status", err)
		return
	}
	h.logger.Info("require_human toggled", "phone", res.PhoneNumber, "require_human", res.RequireHuman)
	respond.JSON(w, http.StatusOK, res)
}

type replyRequest struct {
	Message string `json:"message"`
}

// Reply handles POST /users/{number}/reply.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, "Campo 'message' obrigatório", http.StatusUnprocessableEntity)
		return
	}
	if err := h.service.Reply(r.Context(), phoneParam(r), req.Message); err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.Error(w, "Campo 'message' obrigatório", http.StatusUnprocessableEntity)
		case errors.Is(err, ErrAIInControl):
			respond.Error(w, "IA está no controle. Ative Atendimento Humano para responder.", http.StatusConflict)
		default:
			h.writeError(w, "Erro ao enviar mensagem", err)
		}
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Chat handles GET /users/{number}/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	messages, err := h.repo.ChatHistory(r.Context(), phoneParam(r))
	if err != nil {
		h.logger.Error("failed to load chat history", "error", err)
		respond.Error(w, "Erro ao buscar histórico", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, messages)
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrPatientNotFound) {
		respond.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	h.logger.Error(msg, "error", err)
	respond.Error(w, msg, http.StatusInternalServerError)
}

func phoneParam(r *http.Request) string {
	raw := chi.URLParam(r, "number")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

package knowledge

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Handler serves /api/admin/embeddings.
type Handler struct {
	store    Store
	ingester *Ingester
	logger   *logging.Logger
}

// NewHandler creates an embeddings handler.
func NewHandler(store Store, ingester *Ingester, logger *logging.Logger) *Handler {
	if store == nil || ingester == nil {
		panic("knowledge: store and ingester required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, ingester: ingester, logger: logger}
}

// Routes mounts the embeddings endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/embeddings", h.List)
	r.Delete("/embeddings", h.DeleteBulk)
	r.Post("/embeddings/text", h.IngestText)
	r.Get("/embeddings/categories", h.Categories)
	r.Delete("/embeddings/item/{id}", h.DeleteItem)
	r.Delete("/embeddings/category/{categoria}", h.DeleteCategory)
}

// List handles GET /embeddings?categoria&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := max(1, atoiDefault(q.Get("page"), 1))
	limit := min(maxPageLimit, max(1, atoiDefault(q.Get("limit"), defaultPageLimit)))
	category := normalizeCategory(q.Get("categoria"))

	result, err := h.store.List(r.Context(), category, page, limit)
	if err != nil {
		h.logger.Error("failed to list embeddings", "error", err)
		respond.Error(w, "Erro ao listar embeddings", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteBulk handles DELETE /embeddings {ids}.
func (h *Handler) DeleteBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := respond.Decode(r, &req); err != nil || len(req.IDs) == 0 {
		respond.Error(w, "Lista de IDs vazia", http.StatusBadRequest)
		return
	}
	// Malformed ids cannot match a uuid row.
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	var deleted int64
	if len(ids) > 0 {
		var err error
		deleted, err = h.store.DeleteIDs(r.Context(), ids)
		if err != nil {
			h.logger.Error("failed to delete embeddings", "error", err)
			respond.Error(w, "Erro ao deletar embeddings", http.StatusInternalServerError)
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type ingestRequest struct {
	Text      string   `json:"texto"`
	Category  string   `json:"categoria"`
	ChunkSize *float64 `json:"tamanho_bloco"`
}

// IngestText handles POST /embeddings/text.
func (h *Handler) IngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respond.Error(w, "Campo 'texto' obrigatório", http.StatusBadRequest)
		return
	}
	category := normalizeCategory(req.Category)
	if category == "" {
		respond.Error(w, "Campo 'categoria' obrigatório", http.StatusBadRequest)
		return
	}
	chunks := ChunkText(text, ClampChunkSize(req.ChunkSize))
	if len(chunks) == 0 {
		respond.Error(w, "Nenhum bloco gerado a partir do texto", http.StatusBadRequest)
		return
	}
	respond.JSON(w, http.StatusCreated, h.ingester.Ingest(r.Context(), chunks, category))
}

// Categories handles GET /embeddings/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		respond.Error(w, "Erro ao listar categorias", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, cats)
}

// DeleteItem handles DELETE /embeddings/item/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respond.Error(w, "Embedding não encontrado", http.StatusNotFound)
		return
	}
	n, err := h.store.DeleteItem(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete embedding", "id", id, "error", err)
		respond.Error(w, "Erro ao deletar embedding", http.StatusInternalServerError)
		return
	}
	if n == 0 {
		respond.Error(w, "Embedding não encontrado", http.StatusNotFound)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"deleted": 1})
}

// DeleteCategory handles DELETE /embeddings/category/{categoria}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "categoria")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	category := normalizeCategory(raw)
	if category == "" {
		respond.Error(w, "Categoria inválida", http.StatusBadRequest)
		return
	}
	n, err := h.store.DeleteCategory(r.Context(), category)
	if err != nil {
		h.logger.Error("failed to delete category", "category", category, "error", err)
		respond.Error(w, "Erro ao deletar categoria", http.StatusInternalServerError)
		return
	}
	h.logger.Info("knowledge category deleted", "category", category, "deleted", n)
	respond.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func normalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

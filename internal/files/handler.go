package files

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

const (
	// multipart framing on top of the file itself
	formOverhead = 1 << 20
	formMemory   = 8 << 20
)

// Handler serves /api/admin/files.
type Handler struct {
	repo    Repository
	storage Storage
	logger  *logging.Logger
}

// NewHandler creates a files handler.
func NewHandler(repo Repository, storage Storage, logger *logging.Logger) *Handler {
	if repo == nil || storage == nil {
		panic("files: repository and storage required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, storage: storage, logger: logger}
}

// Routes mounts the files endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/files", h.List)
	r.Post("/files", h.Upload)
	r.Delete("/files/item/{id}", h.Delete)
}

// List handles GET /files?categoria.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.repo.List(r.Context(), NormalizeCategory(r.URL.Query().Get("categoria")))
	if err != nil {
		h.logger.Error("failed to list files", "error", err)
		respond.Error(w, "Erro ao listar arquivos", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, files)
}

// Upload handles POST /files with multipart fields file and categoria.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, "Arquivo muito grande. Limite: 16MB.", http.StatusUnprocessableEntity)
			return
		}
		respond.Error(w, "Arquivo obrigatório", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, "Arquivo obrigatório", http.StatusBadRequest)
		return
	}
	defer file.Close()

	category := NormalizeCategory(r.FormValue("categoria"))
	if category == "" {
		respond.Error(w, "Categoria obrigatória", http.StatusBadRequest)
		return
	}
	if err := ValidateCategory(category); err != nil {
		respond.Error(w, "Categoria inválida. Use apenas letras, números, '_' e '-'", http.StatusBadRequest)
		return
	}
	if err := ValidateSize(header.Size); err != nil {
		respond.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	name, ok := cleanName(header.Filename)
	if !ok {
		respond.Error(w, "Arquivo obrigatório", http.StatusBadRequest)
		return
	}
	if err := ValidateExtension(name); err != nil {
		respond.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	url, err := h.storage.Save(r.Context(), category, name, file, header.Size)
	if errors.Is(err, ErrFileExists) {
		respond.Error(w, conflictMessage(category, name), http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("failed to store file", "error", err, "category", category, "filename", name)
		respond.Error(w, "Erro ao fazer upload", http.StatusInternalServerError)
		return
	}

	saved, err := h.repo.Insert(r.Context(), File{Category: category, Filename: name, MediaType: MediaType(name), Path: url})
	if err != nil {
		// Keep storage and table in step.
		if delErr := h.storage.Delete(r.Context(), category, name); delErr != nil {
			h.logger.Warn("failed to remove orphaned file", "error", delErr, "category", category, "filename", name)
		}
		if errors.Is(err, ErrFileExists) {
			respond.Error(w, conflictMessage(category, name), http.StatusConflict)
			return
		}
		h.logger.Error("failed to record file", "error", err, "category", category, "filename", name)
		respond.Error(w, "Erro ao fazer upload", http.StatusInternalServerError)
		return
	}
	h.logger.Info("file uploaded", "id", saved.ID, "category", category, "filename", name, "size", header.Size)
	respond.JSON(w, http.StatusCreated, saved)
}

func conflictMessage(category, name string) string {
	return fmt.Sprintf("Arquivo '%s' já existe na categoria '%s'. Delete o existente antes de substituir.", name, category)
}

// Delete handles DELETE /files/item/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, "Arquivo não encontrado", http.StatusNotFound)
		return
	}
	f, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrFileNotFound) {
		respond.Error(w, "Arquivo não encontrado", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load file", "error", err, "id", id)
		respond.Error(w, "Erro ao deletar arquivo", http.StatusInternalServerError)
		return
	}

	if err := h.storage.Delete(r.Context(), f.Category, f.Filename); err != nil {
		h.logger.Warn("failed to remove stored file", "error", err, "id", id)
	}
	if err := h.repo.Delete(r.Context(), id); err != nil && !errors.Is(err, ErrFileNotFound) {
		h.logger.Error("failed to delete file", "error", err, "id", id)
		respond.Error(w, "Erro ao deletar arquivo", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"deleted": 1})
}

package preview

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/service"
)

type Handler struct {
	service     *Service
	fileService *service.FileService
}

func NewHandler(service *Service, fileService *service.FileService) *Handler {
	return &Handler{
		service:     service,
		fileService: fileService,
	}
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	file, object, err := h.fileService.Download(r.Context(), claims.TenantID, fileID, "")
	if err != nil {
		log.Printf("[Preview] Failed to get file data: %v", err)
		http.Error(w, "Failed to get file data", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	previewData, err := h.service.GetOrGeneratePreview(r.Context(), file, object)
	if err != nil {
		log.Printf("[Preview] Failed to generate preview: %v", err)
		http.Error(w, fmt.Sprintf("Failed to generate preview: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400") // кешируем на 24 часа

	w.WriteHeader(http.StatusOK)
	w.Write(previewData)
}

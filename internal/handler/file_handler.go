package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

// writeError переводит доменные ошибки в HTTP статусы
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("[Handler] Внутренняя ошибка: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// UploadFile обрабатывает загрузку файла через multipart-форму.
// Повторная загрузка идентичного содержимого возвращает
// существующую запись без записи в хранилище.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[Upload] Ошибка чтения тела файла: %v", err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	upload := &domain.FileUpload{
		TenantID: claims.TenantID,
		OwnerID:  claims.UserID,
		FileName: header.Filename,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}

	result, err := h.fileService.Upload(r.Context(), upload)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[Upload] Файл %s: %s (тенант %d)", header.Filename, result.Message, claims.TenantID)
	writeJSON(w, http.StatusOK, result)
}

// GetFile возвращает метаданные файла
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.fileService.GetInfo(r.Context(), claims.TenantID, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// DownloadFile отдает содержимое файла потоком. Параметр versionId
// закрепляет выдачу за конкретной версией в хранилище.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
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
	versionID := r.URL.Query().Get("versionId")

	file, object, err := h.fileService.Download(r.Context(), claims.TenantID, fileID, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer object.Close()

	// Подготавливаем имя файла для Content-Disposition
	encodedFileName := url.QueryEscape(file.Name)
	asciiName := strings.ReplaceAll(file.Name, `"`, `\"`)
	contentDisposition := fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName)

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", contentDisposition)
	if length := object.ContentLength(); length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	}

	if _, err := io.Copy(w, object); err != nil {
		log.Printf("[Download] Ошибка при отдаче файла %d: %v", fileID, err)
	}
}

// ListFiles возвращает все не удаленные файлы тенанта
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	files, err := h.fileService.List(r.Context(), claims.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
	})
}

// DeleteFile помечает файл удаленным
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.fileService.Delete(r.Context(), claims.TenantID, fileID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "File deleted",
	})
}

// GetFileVersions возвращает историю версий файла, новые первыми
func (h *FileHandler) GetFileVersions(w http.ResponseWriter, r *http.Request) {
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

	versions, err := h.fileService.Versions(r.Context(), claims.TenantID, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"versions": versions,
	})
}

// DeleteFileVersion помечает неактуальную версию удаленной
func (h *FileHandler) DeleteFileVersion(w http.ResponseWriter, r *http.Request) {
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
	versionID := chi.URLParam(r, "versionId")
	if versionID == "" {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	if err := h.fileService.DeleteVersion(r.Context(), claims.TenantID, fileID, versionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Version deleted",
	})
}

package handler

import (
	"encoding/json"
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

type EditHandler struct {
	editService *service.EditService
	fileService *service.FileService
}

func NewEditHandler(editService *service.EditService, fileService *service.FileService) *EditHandler {
	return &EditHandler{
		editService: editService,
		fileService: fileService,
	}
}

// GetEditorConfig выдает подписанный дескриптор доступа для
// внешнего редактора
func (h *EditHandler) GetEditorConfig(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Department string `json:"department"`
	}
	if r.Body != nil {
		// Тело опционально, ошибки декодирования не фатальны
		json.NewDecoder(r.Body).Decode(&body)
	}

	user := domain.EditorUser{
		ID:         claims.UserID,
		Name:       claims.Name,
		Department: body.Department,
	}

	config, err := h.editService.BuildConfig(r.Context(), claims.TenantID, fileID, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, config)
}

// GetEditURL отдает содержимое файла редактору. Авторизация идет
// по подписанному токену из query, без bearer-заголовка.
func (h *EditHandler) GetEditURL(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	tenantID, err := strconv.ParseInt(r.URL.Query().Get("tenantId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid tenant ID", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if err := h.editService.VerifyEditToken(token, tenantID, fileID); err != nil {
		log.Printf("[Edit] Отказ в выдаче содержимого %d_%d: %v", tenantID, fileID, err)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	versionID := r.URL.Query().Get("versionId")
	file, object, err := h.fileService.Download(r.Context(), tenantID, fileID, versionID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer object.Close()

	encodedFileName := url.QueryEscape(file.Name)
	asciiName := strings.ReplaceAll(file.Name, `"`, `\"`)
	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, encodedFileName))
	if length := object.ContentLength(); length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	}

	if _, err := io.Copy(w, object); err != nil {
		log.Printf("[Edit] Ошибка при отдаче содержимого %d_%d: %v", tenantID, fileID, err)
	}
}

// ChangesCallback принимает коллбэк редактора. Ответ всегда
// HTTP 200 с телом {"error":0} либо {"error":1}.
func (h *EditHandler) ChangesCallback(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 1})
		return
	}

	tenantID, err := strconv.ParseInt(r.URL.Query().Get("tenantId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 1})
		return
	}

	token := r.URL.Query().Get("token")
	if err := h.editService.VerifyEditToken(token, tenantID, fileID); err != nil {
		log.Printf("[Edit] Коллбэк с невалидным токеном для %d_%d: %v", tenantID, fileID, err)
		writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 1})
		return
	}

	var callback domain.EditorCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		log.Printf("[Edit] Некорректное тело коллбэка для %d_%d: %v", tenantID, fileID, err)
		writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 1})
		return
	}

	if err := h.editService.HandleCallback(r.Context(), tenantID, fileID, &callback); err != nil {
		log.Printf("[Edit] Коллбэк для %d_%d отвергнут: %v", tenantID, fileID, err)
		writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 1})
		return
	}

	writeJSON(w, http.StatusOK, domain.CallbackResponse{Error: 0})
}

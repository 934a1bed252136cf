package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

func newUploadTestRouter() *chi.Mux {
	registry := &stubRegistry{files: map[int64]*domain.File{}}
	fileService := service.NewFileService(registry, stubChain{}, stubStorage{})
	fileHandler := NewFileHandler(fileService)

	r := chi.NewRouter()
	r.Post("/v1/files", fileHandler.UploadFile)
	return r
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(content)
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestUploadFileHandler(t *testing.T) {
	auth.Init(&auth.Config{Secret: "handler-test-secret"})
	router := newUploadTestRouter()

	token, err := auth.NewToken(7, "user-1", "Alice", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	body, contentType := multipartUpload(t, "quarterly_report.docx", []byte("file body"))
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var result domain.UploadResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Message != domain.UploadMessageUploaded {
		t.Errorf("message = %s, want %s", result.Message, domain.UploadMessageUploaded)
	}
	if result.File == nil {
		t.Fatal("response carries no file")
	}
	if result.File.TenantID != 7 {
		t.Errorf("tenant = %d, want tenant from bearer token", result.File.TenantID)
	}
	if result.File.OwnerID != "user-1" {
		t.Errorf("owner = %s, want user from bearer token", result.File.OwnerID)
	}
}

func TestUploadFileHandlerUnauthorized(t *testing.T) {
	auth.Init(&auth.Config{Secret: "handler-test-secret"})
	router := newUploadTestRouter()

	body, contentType := multipartUpload(t, "report.docx", []byte("file body"))
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

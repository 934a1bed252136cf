package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"docvault/internal/domain"
)

func newTestEditService(t *testing.T) (*EditService, *fakeRegistry, *fakeChain, *fakeStorage) {
	t.Helper()
	registry := newFakeRegistry()
	chain := &fakeChain{registry: registry}
	storage := newFakeStorage()
	svc := NewEditService(registry, chain, storage, EditorSettings{
		Secret:  "test-secret",
		BaseURL: "http://localhost:2525",
	})
	return svc, registry, chain, storage
}

func seedFile(t *testing.T, registry *fakeRegistry, storage *fakeStorage, tenantID int64, content []byte) *domain.File {
	t.Helper()
	sum := sha256.Sum256(content)
	file := &domain.File{
		Name:      "contract.docx",
		Extension: "docx",
		MIMEType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Hash:      hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(content)),
		Path:      fmt.Sprintf("tenant_%d/contract.docx", tenantID),
		Category:  domain.CategoryDocument,
		TenantID:  tenantID,
		OwnerID:   "user-1",
	}
	if err := registry.Create(context.Background(), file); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	storage.objects[file.Path] = content
	return file
}

func TestBuildConfig(t *testing.T) {
	svc, registry, _, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("original"))

	config, err := svc.BuildConfig(context.Background(), 7, file.ID, domain.EditorUser{ID: "user-1", Name: "Alice"})
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}

	wantKey := fmt.Sprintf("7_%d", file.ID)
	if config.Document.Key != wantKey {
		t.Errorf("document key = %s, want %s", config.Document.Key, wantKey)
	}
	if config.DocumentType != "word" {
		t.Errorf("document type = %s, want word", config.DocumentType)
	}
	if config.Token == "" {
		t.Error("config is not signed")
	}
	if config.EditorConfig.Mode != "edit" {
		t.Errorf("mode = %s, want edit", config.EditorConfig.Mode)
	}

	// Токен из URL выдачи содержимого должен проходить проверку
	parsed, err := url.Parse(config.Document.URL)
	if err != nil {
		t.Fatalf("bad document url: %v", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatal("document url carries no token")
	}
	if err := svc.VerifyEditToken(token, 7, file.ID); err != nil {
		t.Errorf("VerifyEditToken: %v", err)
	}

	// Тот же токен не должен открывать другой документ
	if err := svc.VerifyEditToken(token, 7, file.ID+1); !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("token accepted for foreign file: %v", err)
	}
	if err := svc.VerifyEditToken(token, 8, file.ID); !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("token accepted for foreign tenant: %v", err)
	}
}

func TestBuildConfigDocumentTypes(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"docx", "word"},
		{"txt", "word"},
		{"xlsx", "cell"},
		{"csv", "cell"},
		{"pptx", "slide"},
	}
	for _, tt := range tests {
		if got := documentTypeFor(tt.ext); got != tt.want {
			t.Errorf("documentTypeFor(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestHandleCallbackSavesEditedContent(t *testing.T) {
	svc, registry, chain, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("before edit"))

	edited := []byte("after edit, more bytes than before")
	editorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(edited)
	}))
	defer editorSrv.Close()

	callback := &domain.EditorCallback{
		Status: StatusSavedByTimeout,
		Key:    fmt.Sprintf("7_%d", file.ID),
		URL:    editorSrv.URL,
	}

	if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	// Хеш файла обновлен на хеш отредактированного содержимого
	updated, err := registry.GetByID(context.Background(), 7, file.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	wantSum := sha256.Sum256(edited)
	if updated.Hash != hex.EncodeToString(wantSum[:]) {
		t.Errorf("hash = %s, want sha256 of edited content", updated.Hash)
	}
	if updated.SizeBytes != int64(len(edited)) {
		t.Errorf("size = %d, want %d", updated.SizeBytes, len(edited))
	}

	// Новая версия стала текущей
	current, _ := chain.GetCurrent(context.Background(), file.ID)
	if current == nil {
		t.Fatal("no current version after save")
	}
	if current.Hash != hex.EncodeToString(wantSum[:]) {
		t.Errorf("version hash = %s, want sha256 of edited content", current.Hash)
	}

	// Объект в хранилище перезаписан по прежнему пути
	if string(storage.objects[file.Path]) != string(edited) {
		t.Error("storage object was not overwritten with edited content")
	}
}

func TestConsecutiveSavesDemotePreviousVersion(t *testing.T) {
	svc, registry, chain, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("v0"))
	key := fmt.Sprintf("7_%d", file.ID)

	contents := [][]byte{[]byte("first edit"), []byte("second edit, longer")}
	var serve []byte
	editorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(serve)
	}))
	defer editorSrv.Close()

	for i, content := range contents {
		serve = content
		// Каждая версия получает свой id
		storage.versionID = fmt.Sprintf("s3-v%d", i+1)

		callback := &domain.EditorCallback{
			Status: StatusSavedByTimeout,
			Key:    key,
			URL:    editorSrv.URL,
		}
		if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); err != nil {
			t.Fatalf("save %d: %v", i+1, err)
		}
	}

	versions, err := chain.ListByFile(context.Background(), file.ID)
	if err != nil {
		t.Fatalf("ListByFile: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}

	var lastCount int
	var current domain.FileVersion
	for _, v := range versions {
		if v.IsLast {
			lastCount++
			current = v
		}
	}
	if lastCount != 1 {
		t.Fatalf("%d versions marked current, want exactly 1", lastCount)
	}

	// Текущей осталась версия второго сохранения
	if current.ID != "s3-v2" {
		t.Errorf("current version = %s, want s3-v2", current.ID)
	}
	wantSum := sha256.Sum256(contents[1])
	if current.Hash != hex.EncodeToString(wantSum[:]) {
		t.Errorf("current hash = %s, want sha256 of the second edit", current.Hash)
	}
}

func TestHandleCallbackKeyMismatch(t *testing.T) {
	svc, registry, chain, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("untouched"))

	callback := &domain.EditorCallback{
		Status: StatusSavedByTimeout,
		Key:    "8_999",
		URL:    "http://editor.invalid/content",
	}

	err := svc.HandleCallback(context.Background(), 7, file.ID, callback)
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if chain.promotes != 0 {
		t.Error("mismatched callback mutated the version chain")
	}
}

func TestHandleCallbackNoOpStatuses(t *testing.T) {
	svc, registry, chain, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("stable"))
	key := fmt.Sprintf("7_%d", file.ID)

	for _, status := range []int{StatusBeingEdited, StatusReadyForSaving, StatusClosedNoChanges, StatusSavedWhileEditing, 42} {
		callback := &domain.EditorCallback{Status: status, Key: key}
		if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); err != nil {
			t.Errorf("status %d: unexpected error %v", status, err)
		}
	}

	if chain.promotes != 0 {
		t.Error("no-op statuses mutated the version chain")
	}
}

func TestHandleCallbackEditingError(t *testing.T) {
	svc, registry, _, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("stable"))

	callback := &domain.EditorCallback{
		Status: StatusEditingError,
		Key:    fmt.Sprintf("7_%d", file.ID),
	}

	if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); !errors.Is(err, domain.ErrIO) {
		t.Errorf("err = %v, want ErrIO", err)
	}
}

func TestHandleCallbackSaveWithoutURL(t *testing.T) {
	svc, registry, _, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("stable"))

	callback := &domain.EditorCallback{
		Status: StatusSaveError,
		Key:    fmt.Sprintf("7_%d", file.ID),
	}

	if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestSaveEditedFileTimeout(t *testing.T) {
	registry := newFakeRegistry()
	chain := &fakeChain{registry: registry}
	storage := newFakeStorage()
	svc := NewEditService(registry, chain, storage, EditorSettings{
		Secret:      "test-secret",
		BaseURL:     "http://localhost:2525",
		SaveTimeout: 50 * time.Millisecond,
	})

	original := []byte("must stay intact")
	file := seedFile(t, registry, storage, 7, original)
	originalHash := file.Hash

	// Редактор, который не отвечает в срок
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	callback := &domain.EditorCallback{
		Status: StatusSavedByTimeout,
		Key:    fmt.Sprintf("7_%d", file.ID),
		URL:    slow.URL,
	}

	if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}

	// Файл и цепочка версий остались нетронутыми
	updated, _ := registry.GetByID(context.Background(), 7, file.ID)
	if updated.Hash != originalHash {
		t.Error("timed out save changed the file hash")
	}
	if chain.promotes != 0 {
		t.Error("timed out save mutated the version chain")
	}
}

func TestSaveEditedFileBadStatus(t *testing.T) {
	svc, registry, chain, storage := newTestEditService(t)
	file := seedFile(t, registry, storage, 7, []byte("stable"))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer failing.Close()

	callback := &domain.EditorCallback{
		Status: StatusSaveError,
		Key:    fmt.Sprintf("7_%d", file.ID),
		URL:    failing.URL,
	}

	if err := svc.HandleCallback(context.Background(), 7, file.ID, callback); !errors.Is(err, domain.ErrIO) {
		t.Errorf("err = %v, want ErrIO", err)
	}
	if chain.promotes != 0 {
		t.Error("failed download mutated the version chain")
	}
}

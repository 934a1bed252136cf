package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"docvault/internal/domain"
	"docvault/internal/hashing"
	"docvault/internal/service/s3"
)

// Статусы коллбэка внешнего редактора
const (
	StatusBeingEdited       = 1 // документ редактируется
	StatusReadyForSaving    = 2 // редактор готов к сохранению, но оно не финальное
	StatusSaveError         = 3 // нужно забрать и сохранить содержимое
	StatusClosedNoChanges   = 4 // закрыт без изменений
	StatusEditingError      = 5 // фатальная ошибка редактирования
	StatusSavedWhileEditing = 6 // сохранено в процессе редактирования
	StatusSavedByTimeout    = 7 // нужно забрать и сохранить содержимое
)

// EditorSettings содержит конфигурацию цикла редактирования
type EditorSettings struct {
	Secret      string
	BaseURL     string
	SaveTimeout time.Duration
	TokenTTL    time.Duration
}

// EditService выдает подписанный дескриптор доступа для внешнего
// редактора и принимает его коллбэки
type EditService struct {
	files    FileRegistry
	versions VersionChain
	storage  s3.Storage
	settings EditorSettings
	client   *http.Client
}

func NewEditService(files FileRegistry, versions VersionChain, storage s3.Storage, settings EditorSettings) *EditService {
	if settings.SaveTimeout <= 0 {
		settings.SaveTimeout = 5 * time.Minute
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = time.Hour
	}
	return &EditService{
		files:    files,
		versions: versions,
		storage:  storage,
		settings: settings,
		client:   &http.Client{},
	}
}

// documentKey формирует ключ сессии редактирования, коллбэк обязан
// вернуть ровно этот ключ
func documentKey(tenantID, fileID int64) string {
	return fmt.Sprintf("%d_%d", tenantID, fileID)
}

// documentTypeFor подбирает тип редактора по расширению файла
func documentTypeFor(extension string) string {
	switch extension {
	case "xls", "xlsx", "ods", "csv":
		return "cell"
	case "ppt", "pptx", "odp":
		return "slide"
	default:
		return "word"
	}
}

// BuildConfig готовит подписанный дескриптор доступа для внешнего редактора
func (s *EditService) BuildConfig(ctx context.Context, tenantID, fileID int64, user domain.EditorUser) (*domain.EditorConfig, error) {
	file, err := s.files.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return nil, err
	}

	current, err := s.versions.GetCurrent(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}
	versionID := ""
	if current != nil {
		versionID = current.ID
	}

	token, err := s.signEditToken(tenantID, fileID, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign edit token: %w", err)
	}

	documentURL := fmt.Sprintf("%s/v1/files/get-edit-url/%d?token=%s&tenantId=%d&versionId=%s",
		s.settings.BaseURL, fileID, url.QueryEscape(token), tenantID, url.QueryEscape(versionID))
	callbackURL := fmt.Sprintf("%s/v1/files/changes-callback/%d?tenantId=%d&token=%s",
		s.settings.BaseURL, fileID, tenantID, url.QueryEscape(token))

	config := &domain.EditorConfig{
		DocumentType: documentTypeFor(file.Extension),
		Document: domain.EditorDocument{
			Key:      documentKey(tenantID, fileID),
			Title:    file.Name,
			FileType: file.Extension,
			URL:      documentURL,
		},
		EditorConfig: domain.EditorOptions{
			CallbackURL: callbackURL,
			Mode:        "edit",
			User:        user,
		},
	}

	// Подписываем весь дескриптор для проверки на стороне редактора
	configToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"document":     config.Document,
		"editorConfig": config.EditorConfig,
		"exp":          time.Now().Add(s.settings.TokenTTL).Unix(),
	})
	signed, err := configToken.SignedString([]byte(s.settings.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign editor config: %w", err)
	}
	config.Token = signed

	return config, nil
}

// signEditToken подписывает токен доступа к файлу для редактора
func (s *EditService) signEditToken(tenantID, fileID int64, versionID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"key":        documentKey(tenantID, fileID),
		"tenant_id":  tenantID,
		"file_id":    fileID,
		"version_id": versionID,
		"exp":        time.Now().Add(s.settings.TokenTTL).Unix(),
	})
	return token.SignedString([]byte(s.settings.Secret))
}

// VerifyEditToken проверяет подпись токена и его привязку к
// (тенант, файл) без обращения к базе
func (s *EditService) VerifyEditToken(tokenString string, tenantID, fileID int64) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.settings.Secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: token verification failed: %v", domain.ErrIntegrity, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("%w: invalid token claims", domain.ErrIntegrity)
	}
	if key, _ := claims["key"].(string); key != documentKey(tenantID, fileID) {
		return fmt.Errorf("%w: token is bound to another document", domain.ErrIntegrity)
	}

	return nil
}

// HandleCallback обрабатывает коллбэк редактора
func (s *EditService) HandleCallback(ctx context.Context, tenantID, fileID int64, callback *domain.EditorCallback) error {
	if callback == nil {
		return fmt.Errorf("%w: empty callback body", domain.ErrValidation)
	}

	// Ключ обязан совпадать с ключом сессии
	expected := documentKey(tenantID, fileID)
	if callback.Key != expected {
		return fmt.Errorf("%w: callback key %q does not match %q", domain.ErrIntegrity, callback.Key, expected)
	}

	switch callback.Status {
	case StatusBeingEdited:
		log.Printf("[Edit] File %s is being edited", expected)
		return nil

	case StatusReadyForSaving:
		log.Printf("[Edit] File %s is ready for saving, waiting for the final callback", expected)
		return nil

	case StatusSaveError, StatusSavedByTimeout:
		if callback.URL == "" {
			return fmt.Errorf("%w: callback status %d requires a download url", domain.ErrValidation, callback.Status)
		}
		return s.saveEditedFile(ctx, tenantID, fileID, callback.URL)

	case StatusClosedNoChanges:
		log.Printf("[Edit] File %s closed without changes", expected)
		return nil

	case StatusEditingError:
		return fmt.Errorf("%w: editor reported an unrecoverable editing error for %s", domain.ErrIO, expected)

	case StatusSavedWhileEditing:
		log.Printf("[Edit] File %s saved while editing, nothing to persist", expected)
		return nil

	default:
		log.Printf("[Edit] Unknown callback status %d for %s, ignoring", callback.Status, expected)
		return nil
	}
}

// saveEditedFile забирает отредактированное содержимое по URL
// редактора и сохраняет его новой текущей версией. До финальной
// транзакции файл остается нетронутым.
func (s *EditService) saveEditedFile(ctx context.Context, tenantID, fileID int64, downloadURL string) error {
	file, err := s.files.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return err
	}

	// Жесткий таймаут на весь перенос
	ctx, cancel := context.WithTimeout(ctx, s.settings.SaveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("%w: bad download url: %v", domain.ErrIO, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch edited content: %v", domain.ErrIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: editor returned status %d for edited content", domain.ErrIO, resp.StatusCode)
	}

	hasher := hashing.NewReader(resp.Body)
	versionID, written, err := s.storage.SaveEditedStream(ctx, file.Path, hasher, file.SizeBytes, file.MIMEType)
	if err != nil {
		return fmt.Errorf("%w: failed to save edited content: %v", domain.ErrIO, err)
	}

	digest, err := hasher.Sum()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	if versionID == "" {
		versionID = uuid.NewString()
	}

	version := &domain.FileVersion{
		ID:        versionID,
		FileID:    file.ID,
		Name:      file.Name,
		Hash:      digest,
		SizeBytes: written,
	}

	if err := s.versions.Promote(ctx, file.ID, version, digest, written); err != nil {
		return fmt.Errorf("failed to promote version: %w", err)
	}

	log.Printf("[Edit] Saved edited file %d_%d: version %s, %d bytes, hash %s",
		tenantID, fileID, versionID, written, digest)
	return nil
}

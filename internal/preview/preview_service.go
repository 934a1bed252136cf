package preview

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/bimg"
	"github.com/jmoiron/sqlx"
	"github.com/xfrr/goffmpeg/transcoder"

	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

func init() {
	dirs := []string{
		"/tmp/previews",
		"/tmp/.config",
		"/tmp/.cache",
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0777); err != nil {
			log.Printf("Warning: failed to create directory %s: %v", dir, err)
		}
	}
}

const (
	maxImageSize  = 1024            // максимальный размер превью в пикселях
	jpegQuality   = 85              // качество JPEG
	previewPrefix = "previews/"     // префикс для превью в S3
	tmpDir        = "/tmp/previews" // директория для временных файлов
)

type Service struct {
	storage s3.Storage
	db      *sqlx.DB
}

// NewService создает новый сервис для работы с превью
func NewService(storage s3.Storage, db *sqlx.DB) *Service {
	return &Service{
		storage: storage,
		db:      db,
	}
}

// StartCleanupTask запускает периодическую очистку старых превью
func (s *Service) StartCleanupTask() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		for range ticker.C {
			s.cleanupOldPreviews(context.Background())
		}
	}()
}

// cleanupOldPreviews удаляет превью старше 30 дней из S3 и базы
func (s *Service) cleanupOldPreviews(ctx context.Context) {
	log.Printf("[Preview] Starting preview cleanup task")

	var previewsToDelete []struct {
		FileID    int64  `db:"file_id"`
		VersionID string `db:"version_id"`
		TenantID  int64  `db:"tenant_id"`
	}

	query := `
        DELETE FROM file_previews fp
        USING files f
        WHERE fp.file_id = f.id
        AND fp.created_at < NOW() - INTERVAL '30 days'
        RETURNING fp.file_id, fp.version_id, f.tenant_id
    `

	err := s.db.SelectContext(ctx, &previewsToDelete, query)
	if err != nil {
		log.Printf("[Preview] Error cleaning up old previews from database: %v", err)
		return
	}

	for _, preview := range previewsToDelete {
		key := previewKey(preview.TenantID, preview.FileID, preview.VersionID)
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Printf("[Preview] Error deleting preview from S3: %v", err)
		}
	}

	log.Printf("[Preview] Completed preview cleanup task. Removed %d old previews", len(previewsToDelete))
}

// previewKey формирует ключ превью в хранилище. Ключ включает
// версию, поэтому после редактирования превью генерируется заново.
func previewKey(tenantID, fileID int64, versionID string) string {
	return fmt.Sprintf("%stenant_%d/%d_%s.jpg", previewPrefix, tenantID, fileID, versionID)
}

// GetOrGeneratePreview возвращает превью файла: из кеша в S3, либо
// генерирует новое из переданного содержимого
func (s *Service) GetOrGeneratePreview(ctx context.Context, file *domain.File, data io.Reader) ([]byte, error) {
	log.Printf("[Preview] Запрос превью для файла %d (тип: %s)", file.ID, file.MIMEType)

	// Текущая версия входит в ключ кеша
	var versionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM file_versions WHERE file_id = $1 AND is_last = TRUE AND deleted_at IS NULL`,
		file.ID).Scan(&versionID)
	if err != nil {
		versionID = "base"
	}

	key := previewKey(file.TenantID, file.ID, versionID)

	cached, err := s.storage.GetStream(ctx, key, "")
	if err == nil {
		log.Printf("[Preview] Найдено существующее превью: %s", key)
		defer cached.Close()
		return io.ReadAll(cached)
	}

	log.Printf("[Preview] Превью не найдено, генерируем новое")

	fileData, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	var previewData []byte
	switch file.Category {
	case domain.CategoryImage:
		previewData, err = s.generateImagePreview(fileData)
	case domain.CategoryVideo:
		previewData, err = s.generateVideoPreview(fileData)
	default:
		return nil, fmt.Errorf("%w: previews are not supported for category %s", domain.ErrValidation, file.Category)
	}
	if err != nil {
		log.Printf("[Preview] Ошибка генерации превью: %v", err)
		return nil, fmt.Errorf("failed to generate preview: %w", err)
	}

	if err := s.savePreview(ctx, file.ID, versionID, key, previewData); err != nil {
		log.Printf("[Preview] Предупреждение: не удалось сохранить превью: %v", err)
	} else {
		log.Printf("[Preview] Превью успешно сохранено: %s", key)
	}

	return previewData, nil
}

// generateImagePreview генерирует превью для изображений
func (s *Service) generateImagePreview(data []byte) ([]byte, error) {
	return s.optimizeImage(data)
}

// optimizeImage оптимизирует изображение до нужного размера
func (s *Service) optimizeImage(data []byte) ([]byte, error) {
	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}

	width, height := calculateNewDimensions(size.Width, size.Height, maxImageSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	return processed, nil
}

// calculateNewDimensions вычисляет новые размеры с сохранением пропорций
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width > height {
		newWidth = maxSize
		newHeight = (height * maxSize) / width
	} else {
		newHeight = maxSize
		newWidth = (width * maxSize) / height
	}
	return
}

// generateVideoPreview извлекает кадр из начала видео и
// оптимизирует его как изображение
func (s *Service) generateVideoPreview(data []byte) ([]byte, error) {
	tmpPath := filepath.Join(tmpDir, fmt.Sprintf("preview_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(tmpPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpPath)

	videoPath := filepath.Join(tmpPath, "input.mp4")
	if err := os.WriteFile(videoPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save video data: %w", err)
	}
	framePath := filepath.Join(tmpPath, "frame.jpg")

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(videoPath, framePath); err != nil {
		return nil, fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetSeekTime("00:00:01")
	trans.MediaFile().SetVframes(1)
	trans.MediaFile().SetOutputFormat("image2")

	done := trans.Run(false)
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to extract frame: %w", err)
	}

	imgData, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame image: %w", err)
	}

	return s.optimizeImage(imgData)
}

// savePreview сохраняет превью в S3 и отмечает его в базе
func (s *Service) savePreview(ctx context.Context, fileID int64, versionID, key string, data []byte) error {
	if _, err := s.storage.Put(ctx, key, data, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload preview: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO file_previews (file_id, version_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (file_id, version_id) DO UPDATE SET created_at = NOW()`,
		fileID, versionID)
	if err != nil {
		return fmt.Errorf("failed to register preview: %w", err)
	}

	return nil
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"docvault/internal/domain"
	"docvault/internal/hashing"
	"docvault/internal/service/s3"
)

// Максимальный размер загружаемого файла
const maxFileSize = 100 * 1024 * 1024 // 100MB

// FileRegistry описывает операции над таблицей логических файлов
type FileRegistry interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, tenantID, id int64) (*domain.File, error)
	GetByHash(ctx context.Context, tenantID int64, hash string) (*domain.File, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]domain.File, error)
	SoftDelete(ctx context.Context, tenantID, id int64) error
}

// VersionChain описывает операции над цепочкой версий файла
type VersionChain interface {
	Append(ctx context.Context, version *domain.FileVersion) error
	Promote(ctx context.Context, fileID int64, version *domain.FileVersion, newHash string, newSize int64) error
	GetCurrent(ctx context.Context, fileID int64) (*domain.FileVersion, error)
	ListByFile(ctx context.Context, fileID int64) ([]domain.FileVersion, error)
	SoftDelete(ctx context.Context, versionID string) error
}

// FileService реализует конвейер загрузки с дедупликацией и
// выдачу файлов из хранилища
type FileService struct {
	files    FileRegistry
	versions VersionChain
	storage  s3.Storage
}

func NewFileService(files FileRegistry, versions VersionChain, storage s3.Storage) *FileService {
	return &FileService{
		files:    files,
		versions: versions,
		storage:  storage,
	}
}

// Upload загружает файл, идентичные байты в пределах тенанта
// сохраняются один раз
func (s *FileService) Upload(ctx context.Context, upload *domain.FileUpload) (*domain.UploadResult, error) {
	// Валидация до любого I/O
	if upload == nil || upload.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	if upload.MIMEType == "" {
		return nil, fmt.Errorf("%w: MIME type is required", domain.ErrValidation)
	}
	if upload.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}
	if upload.Size <= 0 {
		return nil, fmt.Errorf("%w: file size must be positive", domain.ErrValidation)
	}
	if upload.Size > maxFileSize {
		return nil, fmt.Errorf("%w: max size is %d bytes", domain.ErrValidation, maxFileSize)
	}
	if int64(len(upload.Data)) != upload.Size {
		return nil, fmt.Errorf("%w: declared size %d does not match payload size %d",
			domain.ErrValidation, upload.Size, len(upload.Data))
	}

	name := domain.DisplayName(upload.FileName)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is empty after normalization", domain.ErrValidation)
	}
	extension := domain.FileExtension(upload.FileName)

	// Считаем хеш через сквозной хешер
	hasher := hashing.NewReader(bytes.NewReader(upload.Data))
	if _, err := io.Copy(io.Discard, hasher); err != nil {
		return nil, fmt.Errorf("%w: failed to hash payload: %v", domain.ErrIO, err)
	}
	digest, err := hasher.Sum()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	// Проверка дубликата по хешу содержимого
	existing, err := s.files.GetByHash(ctx, upload.TenantID, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if existing != nil {
		log.Printf("[FileService] Duplicate content for tenant %d: hash %s matches file %d",
			upload.TenantID, digest, existing.ID)
		return &domain.UploadResult{
			Message: domain.UploadMessageExisting,
			File:    existing,
		}, nil
	}

	// Путь детерминированный и неизменный после создания файла
	path := fmt.Sprintf("tenant_%d/%s", upload.TenantID, name)

	versionID, err := s.storage.Put(ctx, path, upload.Data, upload.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	file := &domain.File{
		Name:      name,
		Extension: extension,
		MIMEType:  upload.MIMEType,
		Hash:      digest,
		SizeBytes: upload.Size,
		Path:      path,
		Category:  domain.CategoryForExtension(extension),
		TenantID:  upload.TenantID,
		OwnerID:   upload.OwnerID,
	}

	if err := s.files.Create(ctx, file); err != nil {
		// Объект не удаляем: путь детерминированный, и по нему уже
		// может лежать блоб другого файла с тем же именем. Осиротевший
		// объект безвреден и будет перезаписан повторной загрузкой.
		log.Printf("[FileService] Keeping object %s after registry error: %v", path, err)
		return nil, fmt.Errorf("failed to register file: %w", err)
	}

	// Версия создается, только если бэкенд вернул нативный version id
	if versionID != "" {
		version := &domain.FileVersion{
			ID:        versionID,
			FileID:    file.ID,
			Name:      file.Name,
			Hash:      digest,
			SizeBytes: upload.Size,
		}
		if err := s.versions.Append(ctx, version); err != nil {
			return nil, fmt.Errorf("failed to create initial version: %w", err)
		}
	}

	return &domain.UploadResult{
		Message: domain.UploadMessageUploaded,
		File:    file,
	}, nil
}

// GetInfo возвращает метаданные файла в пределах тенанта
func (s *FileService) GetInfo(ctx context.Context, tenantID, fileID int64) (*domain.File, error) {
	return s.files.GetByID(ctx, tenantID, fileID)
}

// Download открывает поток содержимого файла, опционально
// закрепленный за конкретной версией
func (s *FileService) Download(ctx context.Context, tenantID, fileID int64, versionID string) (*domain.File, s3.Object, error) {
	file, err := s.files.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return nil, nil, err
	}

	object, err := s.storage.GetStream(ctx, file.Path, versionID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	return file, object, nil
}

// List возвращает все не удаленные файлы тенанта
func (s *FileService) List(ctx context.Context, tenantID int64) ([]domain.File, error) {
	return s.files.ListByTenant(ctx, tenantID)
}

// Delete помечает файл удаленным, байты в хранилище остаются
func (s *FileService) Delete(ctx context.Context, tenantID, fileID int64) error {
	return s.files.SoftDelete(ctx, tenantID, fileID)
}

// Versions возвращает историю версий файла, новые первыми
func (s *FileService) Versions(ctx context.Context, tenantID, fileID int64) ([]domain.FileVersion, error) {
	// Сначала проверяем принадлежность файла тенанту
	file, err := s.files.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return nil, err
	}
	return s.versions.ListByFile(ctx, file.ID)
}

// DeleteVersion помечает версию удаленной
func (s *FileService) DeleteVersion(ctx context.Context, tenantID, fileID int64, versionID string) error {
	if _, err := s.files.GetByID(ctx, tenantID, fileID); err != nil {
		return err
	}
	return s.versions.SoftDelete(ctx, versionID)
}

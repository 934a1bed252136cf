package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// File представляет логический документ внутри тенанта.
// Путь в хранилище неизменен после создания, при редактировании
// меняются только hash, size_bytes и updated_at.
type File struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Extension string     `json:"extension" db:"extension"`
	MIMEType  string     `json:"mime_type" db:"mime_type"`
	Hash      string     `json:"hash" db:"hash"`
	SizeBytes int64      `json:"size_bytes" db:"size_bytes"`
	Path      string     `json:"path" db:"path"`
	Category  string     `json:"category" db:"category"`
	TenantID  int64      `json:"tenant_id" db:"tenant_id"`
	OwnerID   string     `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FileUpload содержит входные данные загрузки файла
type FileUpload struct {
	TenantID int64
	OwnerID  string
	FileName string
	MIMEType string
	Size     int64
	Data     []byte
}

// Результаты загрузки: UPLOADED для нового содержимого,
// EXISTING когда контент с таким хешем уже есть у тенанта.
const (
	UploadMessageUploaded = "UPLOADED"
	UploadMessageExisting = "EXISTING"
)

// UploadResult представляет ответ на загрузку файла
type UploadResult struct {
	Message string `json:"message"`
	File    *File  `json:"file"`
}

// Категории документов, выводятся из расширения файла
const (
	CategoryDocument = "document"
	CategoryImage    = "image"
	CategoryVideo    = "video"
	CategoryAudio    = "audio"
	CategoryArchive  = "archive"
	CategoryOther    = "other"
)

// NoExtension используется, когда у имени файла нет расширения
const NoExtension = "NA"

// FileExtension возвращает последний сегмент имени после точки
func FileExtension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return NoExtension
	}
	return strings.ToLower(ext)
}

// DisplayName нормализует имя файла: подчеркивания и дефисы
// заменяются пробелами, края обрезаются
func DisplayName(name string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

var extensionCategories = map[string]string{
	"doc": CategoryDocument, "docx": CategoryDocument, "odt": CategoryDocument,
	"pdf": CategoryDocument, "txt": CategoryDocument, "rtf": CategoryDocument,
	"xls": CategoryDocument, "xlsx": CategoryDocument, "ods": CategoryDocument,
	"ppt": CategoryDocument, "pptx": CategoryDocument, "odp": CategoryDocument,
	"csv": CategoryDocument, "md": CategoryDocument,
	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage,
	"gif": CategoryImage, "webp": CategoryImage, "bmp": CategoryImage,
	"svg": CategoryImage, "tiff": CategoryImage,
	"mp4": CategoryVideo, "webm": CategoryVideo, "mkv": CategoryVideo,
	"avi": CategoryVideo, "mov": CategoryVideo,
	"mp3": CategoryAudio, "wav": CategoryAudio, "ogg": CategoryAudio,
	"flac": CategoryAudio,
	"zip": CategoryArchive, "rar": CategoryArchive, "7z": CategoryArchive,
	"tar": CategoryArchive, "gz": CategoryArchive,
}

// CategoryForExtension определяет категорию документа по расширению
func CategoryForExtension(ext string) string {
	if category, ok := extensionCategories[strings.ToLower(ext)]; ok {
		return category
	}
	return CategoryOther
}

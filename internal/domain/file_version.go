// domain/file_version.go
package domain

import (
	"time"
)

// FileVersion представляет одну ревизию содержимого файла.
// Идентификатор строковый: им становится нативный version id
// хранилища, либо UUID, если версионирование бакета выключено.
// Версии неизменяемы, мутируют только is_last и deleted_at.
type FileVersion struct {
	ID        string     `json:"id" db:"id"`
	FileID    int64      `json:"file_id" db:"file_id"`
	Name      string     `json:"name" db:"name"`
	Hash      string     `json:"hash" db:"hash"`
	SizeBytes int64      `json:"size_bytes" db:"size_bytes"`
	IsLast    bool       `json:"is_last" db:"is_last"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

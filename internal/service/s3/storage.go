// storage.go
package s3

import (
	"context"
	"io"
)

// Object определяет интерфейс для объектов S3
type Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

// s3Object реализует интерфейс Object
type s3Object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *s3Object) ContentLength() int64 {
	return o.contentLength
}

func (o *s3Object) ContentType() string {
	return o.contentType
}

// Storage определяет интерфейс для работы с S3-совместимым хранилищем.
// Put и SaveEditedStream возвращают нативный version id бакета;
// пустая строка означает, что версионирование на бэкенде выключено.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	GetStream(ctx context.Context, key string, versionID string) (Object, error)
	SaveEditedStream(ctx context.Context, key string, body io.Reader, sizeHint int64, contentType string) (string, int64, error)
	Delete(ctx context.Context, key string) error
}

// Package hashing реализует сквозной подсчет SHA-256 поверх потока.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Reader оборачивает io.Reader и считает SHA-256 по мере чтения.
// Прочитанные чанки отдаются дальше без изменений, дайджест
// доступен только после полного прохода потока.
type Reader struct {
	src  io.Reader
	hash hash.Hash
	read int64
	done bool
	err  error
}

// NewReader создает сквозной хешер поверх источника
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:  src,
		hash: sha256.New(),
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		// hash.Hash.Write не возвращает ошибок
		r.hash.Write(p[:n])
		r.read += int64(n)
	}
	switch {
	case err == io.EOF:
		r.done = true
	case err != nil:
		r.err = err
	}
	return n, err
}

// BytesRead возвращает количество байт, прошедших через хешер
func (r *Reader) BytesRead() int64 {
	return r.read
}

// Sum возвращает hex-дайджест в нижнем регистре. Ошибка, если
// источник завершился ошибкой или еще не дочитан до конца.
func (r *Reader) Sum() (string, error) {
	if r.err != nil {
		return "", fmt.Errorf("source stream failed: %w", r.err)
	}
	if !r.done {
		return "", fmt.Errorf("stream not fully consumed, digest would cover truncated data")
	}
	return hex.EncodeToString(r.hash.Sum(nil)), nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"docvault/internal/domain"
)

// FileRepository работает с таблицей files, все выборки ограничены
// тенантом и исключают мягко удаленные записи
type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (name, extension, mime_type, hash, size_bytes, path, category, tenant_id, owner_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.Name,
		file.Extension,
		file.MIMEType,
		strings.ToLower(file.Hash),
		file.SizeBytes,
		file.Path,
		file.Category,
		file.TenantID,
		file.OwnerID,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByHash ищет файл тенанта по хешу содержимого. Возвращает nil
// без ошибки, если контента с таким хешем у тенанта нет.
func (r *FileRepository) GetByHash(ctx context.Context, tenantID int64, hash string) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT * FROM files
        WHERE tenant_id = $1 AND hash = $2 AND deleted_at IS NULL
        LIMIT 1`

	err := r.db.GetContext(ctx, &file, query, tenantID, strings.ToLower(hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up file by hash: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT * FROM files
        WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &file, query, tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) ListByTenant(ctx context.Context, tenantID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT * FROM files
        WHERE tenant_id = $1 AND deleted_at IS NULL
        ORDER BY updated_at DESC`

	err := r.db.SelectContext(ctx, &files, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// SoftDelete помечает файл удаленным, байты в хранилище не трогаются
func (r *FileRepository) SoftDelete(ctx context.Context, tenantID, id int64) error {
	query := `
        UPDATE files
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: file %d", domain.ErrNotFound, id)
	}

	return nil
}

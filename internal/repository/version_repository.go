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

// VersionRepository работает с цепочкой версий файла. Вставка новой
// версии всегда идет в одной транзакции со снятием is_last с предыдущих.
type VersionRepository struct {
	db *sqlx.DB
}

func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// demoteAll снимает отметку is_last со всех версий файла
func (r *VersionRepository) demoteAll(ctx context.Context, tx *sqlx.Tx, fileID int64) error {
	query := `
        UPDATE file_versions
        SET is_last = FALSE
        WHERE file_id = $1 AND deleted_at IS NULL`

	if _, err := tx.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("failed to demote versions: %w", err)
	}
	return nil
}

func (r *VersionRepository) insert(ctx context.Context, tx *sqlx.Tx, version *domain.FileVersion) error {
	query := `
        INSERT INTO file_versions (id, file_id, name, hash, size_bytes, is_last)
        VALUES ($1, $2, $3, $4, $5, TRUE)
        RETURNING created_at`

	err := tx.QueryRowContext(ctx, query,
		version.ID,
		version.FileID,
		version.Name,
		strings.ToLower(version.Hash),
		version.SizeBytes,
	).Scan(&version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	version.IsLast = true
	return nil
}

// Append добавляет новую текущую версию файла
func (r *VersionRepository) Append(ctx context.Context, version *domain.FileVersion) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.demoteAll(ctx, tx, version.FileID); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, version); err != nil {
		return err
	}

	return tx.Commit()
}

// Promote фиксирует результат редактирования: вставка новой текущей
// версии и обновление хеша файла идут одной транзакцией
func (r *VersionRepository) Promote(ctx context.Context, fileID int64, version *domain.FileVersion, newHash string, newSize int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.demoteAll(ctx, tx, fileID); err != nil {
		return err
	}
	if err := r.insert(ctx, tx, version); err != nil {
		return err
	}

	// После коммита хеш файла всегда соответствует текущей версии
	updateQuery := `
        UPDATE files
        SET hash = $1, size_bytes = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND deleted_at IS NULL`

	result, err := tx.ExecContext(ctx, updateQuery, strings.ToLower(newHash), newSize, fileID)
	if err != nil {
		return fmt.Errorf("failed to update file hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: file %d", domain.ErrNotFound, fileID)
	}

	return tx.Commit()
}

// GetCurrent возвращает текущую версию файла, nil если версий нет
func (r *VersionRepository) GetCurrent(ctx context.Context, fileID int64) (*domain.FileVersion, error) {
	var version domain.FileVersion
	query := `
        SELECT * FROM file_versions
        WHERE file_id = $1 AND is_last = TRUE AND deleted_at IS NULL
        LIMIT 1`

	err := r.db.GetContext(ctx, &version, query, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	return &version, nil
}

// ListByFile возвращает историю версий, новые первыми
func (r *VersionRepository) ListByFile(ctx context.Context, fileID int64) ([]domain.FileVersion, error) {
	var versions []domain.FileVersion
	query := `
        SELECT * FROM file_versions
        WHERE file_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &versions, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	return versions, nil
}

// SoftDelete помечает версию удаленной, текущую версию удалить нельзя
func (r *VersionRepository) SoftDelete(ctx context.Context, versionID string) error {
	query := `
        UPDATE file_versions
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND is_last = FALSE AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, versionID)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: version %s (missing or currently last)", domain.ErrNotFound, versionID)
	}

	return nil
}

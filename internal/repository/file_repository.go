package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tracekit/harbox-api/internal/models"
)

// FileRepository provides database access for upload bookkeeping rows.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new instance of FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a bookkeeping row for a freshly stored file.
func (r *FileRepository) Create(ctx context.Context, file *models.StoredFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now

	const query = `INSERT INTO files (id, path, author_id, deleted, created_at, updated_at) VALUES (:id, :path, :author_id, :deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// FindByPath returns the file row for a stored path.
func (r *FileRepository) FindByPath(ctx context.Context, path string) (*models.StoredFile, error) {
	const query = `SELECT id, path, author_id, deleted, created_at, updated_at FROM files WHERE path = $1 LIMIT 1`
	var file models.StoredFile
	if err := r.db.GetContext(ctx, &file, query, path); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file by path: %w", err)
	}
	return &file, nil
}

// MarkDeleted soft-deletes the row for a path; the row is kept for history.
func (r *FileRepository) MarkDeleted(ctx context.Context, path string) error {
	const query = `UPDATE files SET deleted = TRUE, updated_at = $2 WHERE path = $1`
	if _, err := r.db.ExecContext(ctx, query, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark file deleted: %w", err)
	}
	return nil
}

// ListByAuthor returns all files for an author filtered by deletion state.
func (r *FileRepository) ListByAuthor(ctx context.Context, authorID string, deleted bool) ([]models.StoredFile, error) {
	const query = `SELECT id, path, author_id, deleted, created_at, updated_at FROM files WHERE author_id = $1 AND deleted = $2 ORDER BY created_at DESC`
	var files []models.StoredFile
	if err := r.db.SelectContext(ctx, &files, query, authorID, deleted); err != nil {
		return nil, fmt.Errorf("list files by author: %w", err)
	}
	return files, nil
}

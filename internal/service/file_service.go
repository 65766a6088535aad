package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tracekit/harbox-api/internal/models"
	"github.com/tracekit/harbox-api/pkg/config"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
)

type fileRepository interface {
	Create(ctx context.Context, file *models.StoredFile) error
	FindByPath(ctx context.Context, path string) (*models.StoredFile, error)
	MarkDeleted(ctx context.Context, path string) error
	ListByAuthor(ctx context.Context, authorID string, deleted bool) ([]models.StoredFile, error)
}

type fileUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type uploadStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

// UploadInput carries a validated multipart upload into the service.
type UploadInput struct {
	Username    string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// FileService implements capture upload bookkeeping: disk storage plus a
// database row per file, soft-deleted rather than dropped.
type FileService struct {
	files  fileRepository
	users  fileUserRepository
	store  uploadStore
	config config.UploadsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFileService constructs a FileService instance.
func NewFileService(files fileRepository, users fileUserRepository, store uploadStore, cfg config.UploadsConfig, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{files: files, users: users, store: store, config: cfg, logger: logger, now: time.Now}
}

// Upload stores the file on disk and records its bookkeeping row. A failing
// row insert removes the just-written file so disk and store stay in sync.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.StoredFile, error) {
	if in.Username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please enter a username")
	}
	if in.Reader == nil || in.Filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no file uploaded")
	}
	if s.config.MaxFileSizeBytes > 0 && in.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	if !s.allowed(in.Filename, in.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please upload a .har or .json file")
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "cannot find user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	storedName := fmt.Sprintf("har-file-%d-%s", s.now().UnixMilli(), filepath.Base(in.Filename))
	path, err := s.store.SaveStream(storedName, in.Reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.StoredFile{Path: path, AuthorID: user.ID, Deleted: false}
	if err := s.files.Create(ctx, file); err != nil {
		if cleanupErr := s.store.Delete(path); cleanupErr != nil {
			s.logger.Warn("orphaned upload cleanup failed", zap.String("path", path), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}

	return file, nil
}

// Delete soft-deletes the bookkeeping row and removes the disk file. The disk
// removal is best effort; the row is the source of truth.
func (s *FileService) Delete(ctx context.Context, path string) error {
	if path == "" {
		return appErrors.Clone(appErrors.ErrValidation, "invalid path provided")
	}

	if _, err := s.files.FindByPath(ctx, path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no file found with the provided path")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}

	if err := s.files.MarkDeleted(ctx, path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}

	if err := s.store.Delete(path); err != nil {
		s.logger.Warn("disk removal failed after soft delete", zap.String("path", path), zap.Error(err))
	}

	return nil
}

// ListActive returns the live files owned by a username.
func (s *FileService) ListActive(ctx context.Context, username string) ([]models.StoredFile, error) {
	return s.listByUsername(ctx, username, false)
}

// ListDeleted returns the soft-deleted files owned by a username.
func (s *FileService) ListDeleted(ctx context.Context, username string) ([]models.StoredFile, error) {
	return s.listByUsername(ctx, username, true)
}

func (s *FileService) listByUsername(ctx context.Context, username string, deleted bool) ([]models.StoredFile, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid username provided")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no user found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	files, err := s.files.ListByAuthor(ctx, user.ID, deleted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

func (s *FileService) allowed(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.config.AllowedExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

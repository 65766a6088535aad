package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
	"github.com/tracekit/harbox-api/pkg/export"
)

type userListRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// UserService provides admin-facing user queries and exports.
type UserService struct {
	users  userListRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(users userListRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, csv: export.NewCSVExporter(), pdf: export.NewPDFExporter(), logger: logger}
}

// List returns users matching the filter with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Profile returns a user's public info by username.
func (s *UserService) Profile(ctx context.Context, username string) (*models.UserInfo, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &models.UserInfo{Email: user.Email, Username: user.Username, Image: user.Image, Role: user.Role}, nil
}

// Export renders the filtered user listing as CSV or PDF bytes along with the
// response content type.
func (s *UserService) Export(ctx context.Context, filter models.UserFilter, format string) ([]byte, string, error) {
	users, _, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	dataset := export.Dataset{Headers: []string{"Email", "Username", "Role", "Created"}}
	for _, u := range users {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Email":    u.Email,
			"Username": u.Username,
			"Role":     string(u.Role),
			"Created":  u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	switch strings.ToLower(format) {
	case "pdf":
		payload, err := s.pdf.Render(dataset, "registered users")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

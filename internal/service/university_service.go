package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type universityRepository interface {
	List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error)
	FindByID(ctx context.Context, id string) (*models.University, error)
	Create(ctx context.Context, university *models.University) error
	Update(ctx context.Context, university *models.University) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

// UniversityRequest describes a university create or update. The mentor
// roster is not part of the payload; it is maintained by the materializer.
type UniversityRequest struct {
	Name string `json:"name" validate:"required"`
}

// UniversityService manages university CRUD.
type UniversityService struct {
	repo      universityRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUniversityService constructs a UniversityService.
func NewUniversityService(repo universityRepository, validate *validator.Validate, logger *zap.Logger) *UniversityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniversityService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns universities with pagination metadata.
func (s *UniversityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, *models.Pagination, error) {
	universities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list universities")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return universities, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one university.
func (s *UniversityService) Get(ctx context.Context, id string) (*models.University, error) {
	university, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "university not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load university")
	}
	return university, nil
}

// Create registers a university with an empty mentor roster.
func (s *UniversityService) Create(ctx context.Context, req UniversityRequest, by string) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	university := &models.University{Name: req.Name, Active: true}
	university.StampCreated(by, s.now().UTC())

	if err := s.repo.Create(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create university")
	}
	return university, nil
}

// Update renames a university. The mentor roster is untouched.
func (s *UniversityService) Update(ctx context.Context, id string, req UniversityRequest, by string) (*models.University, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid university payload")
	}

	university, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	university.Name = req.Name
	university.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, university); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update university")
	}
	return university, nil
}

// Delete soft-deletes a university.
func (s *UniversityService) Delete(ctx context.Context, id, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete university")
	}
	return nil
}

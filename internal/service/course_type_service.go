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

type courseTypeRepository interface {
	List(ctx context.Context) ([]models.CourseType, error)
	FindByID(ctx context.Context, id string) (*models.CourseType, error)
	Create(ctx context.Context, courseType *models.CourseType) error
	Update(ctx context.Context, courseType *models.CourseType) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

// CourseTypeRequest names a program classification, e.g. Masters or PhD.
type CourseTypeRequest struct {
	Name string `json:"name" validate:"required"`
}

// CourseTypeService manages the course type lookup.
type CourseTypeService struct {
	repo      courseTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseTypeService constructs a CourseTypeService.
func NewCourseTypeService(repo courseTypeRepository, validate *validator.Validate, logger *zap.Logger) *CourseTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseTypeService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns all active course types.
func (s *CourseTypeService) List(ctx context.Context) ([]models.CourseType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course types")
	}
	return types, nil
}

// Get fetches one course type.
func (s *CourseTypeService) Get(ctx context.Context, id string) (*models.CourseType, error) {
	courseType, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course type")
	}
	return courseType, nil
}

// Create registers a course type.
func (s *CourseTypeService) Create(ctx context.Context, req CourseTypeRequest, by string) (*models.CourseType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course type payload")
	}

	courseType := &models.CourseType{Name: req.Name, Active: true}
	courseType.StampCreated(by, s.now().UTC())

	if err := s.repo.Create(ctx, courseType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course type")
	}
	return courseType, nil
}

// Update renames a course type.
func (s *CourseTypeService) Update(ctx context.Context, id string, req CourseTypeRequest, by string) (*models.CourseType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course type payload")
	}

	courseType, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	courseType.Name = req.Name
	courseType.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, courseType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course type")
	}
	return courseType, nil
}

// Delete soft-deletes a course type. Students keep their existing reference;
// it simply stops resolving.
func (s *CourseTypeService) Delete(ctx context.Context, id, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course type")
	}
	return nil
}

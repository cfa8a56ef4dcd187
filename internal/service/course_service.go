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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

type courseTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

// CourseRequest describes a course create or update.
type CourseRequest struct {
	Name         string                `json:"name" validate:"required"`
	TermID       string                `json:"term_id" validate:"required"`
	ProfessorID  *string               `json:"professor_id"`
	UniversityID string                `json:"university_id" validate:"required"`
	PeriodType   models.TermPeriodType `json:"period_type" validate:"required,oneof=Full-Term Bi-Term1 Bi-Term2"`
	StartWeek    int                   `json:"start_week" validate:"required,min=1"`
	EndWeek      int                   `json:"end_week" validate:"required,min=1"`
}

// CourseService manages course CRUD.
type CourseService struct {
	repo      courseRepository
	terms     courseTermReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, terms courseTermReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, terms: terms, validator: validate, logger: logger, now: time.Now}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a course within a term.
func (s *CourseService) Create(ctx context.Context, req CourseRequest, by string) (*models.Course, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	course := &models.Course{
		Name:         req.Name,
		TermID:       req.TermID,
		ProfessorID:  req.ProfessorID,
		UniversityID: req.UniversityID,
		TermPeriod: models.TermPeriod{
			Type:      req.PeriodType,
			StartWeek: req.StartWeek,
			EndWeek:   req.EndWeek,
		},
		Active: true,
	}
	course.StampCreated(by, s.now().UTC())

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update rewrites a course. Changing the period does not retroactively touch
// tasks already materialized for it.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest, by string) (*models.Course, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	course.Name = req.Name
	course.TermID = req.TermID
	course.ProfessorID = req.ProfessorID
	course.UniversityID = req.UniversityID
	course.Type = req.PeriodType
	course.StartWeek = req.StartWeek
	course.EndWeek = req.EndWeek
	course.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete soft-deletes a course.
func (s *CourseService) Delete(ctx context.Context, id, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

func (s *CourseService) validateRequest(ctx context.Context, req CourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.StartWeek > req.EndWeek {
		return appErrors.Clone(appErrors.ErrValidation, "start week must not exceed end week")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}

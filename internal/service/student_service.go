package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListCourses(ctx context.Context, studentID string) ([]models.StudentCourse, error)
	ExistsByStudentNumber(ctx context.Context, studentNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpsertCourse(ctx context.Context, course *models.StudentCourse) error
	RemoveCourse(ctx context.Context, studentID, courseID string) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

// StudentCourseInput is one roster entry in a student write request.
type StudentCourseInput struct {
	CourseID        string   `json:"course_id" validate:"required"`
	AssignedMentors []string `json:"assigned_mentors"`
}

// CreateStudentRequest describes student creation.
type CreateStudentRequest struct {
	StudentNumber string               `json:"student_number" validate:"required"`
	FirstName     string               `json:"first_name" validate:"required"`
	LastName      string               `json:"last_name" validate:"required"`
	ContactNumber string               `json:"contact_number"`
	PersonalEmail string               `json:"personal_email" validate:"omitempty,email"`
	EduEmail      string               `json:"edu_email" validate:"omitempty,email"`
	UniversityID  string               `json:"university_id" validate:"required"`
	CourseTypeID  *string              `json:"course_type_id"`
	Courses       []StudentCourseInput `json:"courses" validate:"dive"`
}

// UpdateStudentRequest describes a student update; the roster replaces the
// stored one wholesale.
type UpdateStudentRequest struct {
	StudentNumber string               `json:"student_number" validate:"required"`
	FirstName     string               `json:"first_name" validate:"required"`
	LastName      string               `json:"last_name" validate:"required"`
	ContactNumber string               `json:"contact_number"`
	PersonalEmail string               `json:"personal_email" validate:"omitempty,email"`
	EduEmail      string               `json:"edu_email" validate:"omitempty,email"`
	CourseTypeID  *string              `json:"course_type_id"`
	Courses       []StudentCourseInput `json:"courses" validate:"dive"`
}

// StudentService orchestrates student CRUD and fires the aggregation pipeline
// on every roster write.
type StudentService struct {
	repo      studentRepository
	pipeline  *AggregationPipeline
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, pipeline *AggregationPipeline, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, pipeline: pipeline, validator: validate, logger: logger, now: time.Now}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one student including their course roster.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student and materializes tasks for every mentored course.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest, by string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.repo.ExistsByStudentNumber(ctx, req.StudentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
	}

	student := &models.Student{
		StudentNumber: req.StudentNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ContactNumber: req.ContactNumber,
		PersonalEmail: req.PersonalEmail,
		EduEmail:      req.EduEmail,
		UniversityID:  req.UniversityID,
		CourseTypeID:  req.CourseTypeID,
		Courses:       rosterFromInputs(req.Courses),
		Active:        true,
	}
	student.StampCreated(by, s.now().UTC())

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.fireRosterAggregation(ctx, student, student.Courses, by)
	return student, nil
}

// Update rewrites the student and roster, then re-runs materialization for
// the new roster entries.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest, by string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByStudentNumber(ctx, req.StudentNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student number already registered")
	}

	student.StudentNumber = req.StudentNumber
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.ContactNumber = req.ContactNumber
	student.PersonalEmail = req.PersonalEmail
	student.EduEmail = req.EduEmail
	student.CourseTypeID = req.CourseTypeID
	student.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	newRoster := rosterFromInputs(req.Courses)
	if err := s.replaceRoster(ctx, student, newRoster); err != nil {
		return nil, err
	}
	student.Courses = newRoster

	s.fireRosterAggregation(ctx, student, newRoster, by)
	return student, nil
}

// Delete soft-deletes the student. No aggregation runs: materialized tasks
// keep their history.
func (s *StudentService) Delete(ctx context.Context, id, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) replaceRoster(ctx context.Context, student *models.Student, roster []models.StudentCourse) error {
	current, err := s.repo.ListCourses(ctx, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student roster")
	}

	kept := make(map[string]struct{}, len(roster))
	for i := range roster {
		roster[i].StudentID = student.ID
		kept[roster[i].CourseID] = struct{}{}
		if err := s.repo.UpsertCourse(ctx, &roster[i]); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save roster entry")
		}
	}
	for _, entry := range current {
		if _, ok := kept[entry.CourseID]; ok {
			continue
		}
		if err := s.repo.RemoveCourse(ctx, student.ID, entry.CourseID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove roster entry")
		}
	}
	return nil
}

func (s *StudentService) fireRosterAggregation(ctx context.Context, student *models.Student, roster []models.StudentCourse, by string) {
	if s.pipeline == nil {
		return
	}
	results := s.pipeline.StudentCoursesChanged(ctx, StudentCoursesChangedEvent{
		Student: student,
		Courses: roster,
		By:      by,
	})
	for _, result := range results {
		if result.Failed() {
			s.logger.Sugar().Warnw("student write succeeded with failed aggregation", "key", result.Key)
		}
	}
}

func rosterFromInputs(inputs []StudentCourseInput) []models.StudentCourse {
	roster := make([]models.StudentCourse, 0, len(inputs))
	for _, in := range inputs {
		roster = append(roster, models.StudentCourse{
			CourseID:        in.CourseID,
			AssignedMentors: pq.StringArray(in.AssignedMentors),
		})
	}
	return roster
}

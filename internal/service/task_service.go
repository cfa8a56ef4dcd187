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

type taskRepository interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

// UpdateTaskRequest carries the mentor-editable task fields. Status and the
// statistics block are owned by the rollup aggregator and cannot be set here.
type UpdateTaskRequest struct {
	Title        string     `json:"title" validate:"required"`
	DueDate      *time.Time `json:"due_date"`
	Priority     int        `json:"priority"`
	Grade        string     `json:"grade"`
	ProfComments string     `json:"prof_comments"`
}

// TaskService exposes read and annotation operations over materialized tasks.
// Task creation happens exclusively through the materializer.
type TaskService struct {
	repo      taskRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskService constructs a TaskService.
func NewTaskService(repo taskRepository, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns tasks with pagination metadata.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, *models.Pagination, error) {
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return tasks, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one task.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// Update rewrites the mentor-editable fields of a task.
func (s *TaskService) Update(ctx context.Context, id string, req UpdateTaskRequest, by string) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Title = req.Title
	task.DueDate = req.DueDate
	task.Priority = req.Priority
	task.Grade = req.Grade
	task.ProfComments = req.ProfComments
	task.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Delete soft-deletes a task. Its topics stay untouched but no longer roll
// up anywhere.
func (s *TaskService) Delete(ctx context.Context, id, by string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

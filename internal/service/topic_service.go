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

type topicRepository interface {
	List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, int, error)
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic) error
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
}

type topicTaskReader interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

// CreateTopicRequest describes a new topic under an existing task. Ownership
// fields (student, course, university, week) are inherited from the task.
type CreateTopicRequest struct {
	Title      string     `json:"title" validate:"required"`
	TaskID     string     `json:"task_id" validate:"required"`
	Discussion string     `json:"discussion"`
	Reply      string     `json:"reply"`
	DueDate    *time.Time `json:"due_date"`
	Priority   int        `json:"priority"`
	Tags       []string   `json:"tags"`
	SortOrder  int        `json:"sort_order"`
}

// UpdateTopicRequest describes a topic update.
type UpdateTopicRequest struct {
	Title      string            `json:"title" validate:"required"`
	Discussion string            `json:"discussion"`
	Reply      string            `json:"reply"`
	Status     models.TaskStatus `json:"status" validate:"required,oneof=NOT_STARTED IN_PROGRESS COMPLETED"`
	DueDate    *time.Time        `json:"due_date"`
	PostedDate *time.Time        `json:"posted_date"`
	Priority   int               `json:"priority"`
	Tags       []string          `json:"tags"`
	SortOrder  int               `json:"sort_order"`
}

// TopicService manages topic CRUD. Every write triggers a rollup of the
// owning task's statistics through the aggregation pipeline.
type TopicService struct {
	repo      topicRepository
	tasks     topicTaskReader
	pipeline  *AggregationPipeline
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTopicService constructs a TopicService.
func NewTopicService(repo topicRepository, tasks topicTaskReader, pipeline *AggregationPipeline, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{repo: repo, tasks: tasks, pipeline: pipeline, validator: validate, logger: logger, now: time.Now}
}

// List returns topics with pagination metadata.
func (s *TopicService) List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, *models.Pagination, error) {
	topics, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return topics, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one topic.
func (s *TopicService) Get(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	return topic, nil
}

// Create adds a topic under the task and recomputes the task's rollup.
func (s *TopicService) Create(ctx context.Context, req CreateTopicRequest, by string) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}

	task, err := s.tasks.FindByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}

	topic := &models.Topic{
		Title:          req.Title,
		TaskID:         task.ID,
		StudentID:      task.StudentID,
		CourseID:       task.CourseID,
		UniversityID:   task.UniversityID,
		Week:           task.Week,
		Discussion:     req.Discussion,
		Reply:          req.Reply,
		Status:         models.TaskStatusNotStarted,
		DueDate:        req.DueDate,
		MentorAssigned: task.MentorAssigned,
		Priority:       req.Priority,
		Tags:           pq.StringArray(req.Tags),
		SortOrder:      req.SortOrder,
		Active:         true,
	}
	topic.StampCreated(by, s.now().UTC())

	if err := s.repo.Create(ctx, topic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create topic")
	}

	s.fireRollup(ctx, topic)
	return topic, nil
}

// Update rewrites the topic and recomputes the task's rollup. Completing a
// topic without an explicit posted date stamps it with the current time.
func (s *TopicService) Update(ctx context.Context, id string, req UpdateTopicRequest, by string) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}

	topic, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	topic.Title = req.Title
	topic.Discussion = req.Discussion
	topic.Reply = req.Reply
	topic.Status = req.Status
	topic.DueDate = req.DueDate
	topic.PostedDate = req.PostedDate
	topic.Priority = req.Priority
	topic.Tags = pq.StringArray(req.Tags)
	topic.SortOrder = req.SortOrder
	if topic.Status == models.TaskStatusCompleted && topic.PostedDate == nil {
		posted := s.now().UTC()
		topic.PostedDate = &posted
	}
	topic.StampUpdated(by, s.now().UTC())

	if err := s.repo.Update(ctx, topic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update topic")
	}

	s.fireRollup(ctx, topic)
	return topic, nil
}

// Delete soft-deletes the topic, then runs the same rollup an update would so
// the task's counters drop the removed topic.
func (s *TopicService) Delete(ctx context.Context, id, by string) error {
	topic, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, by, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete topic")
	}
	topic.Active = false
	s.fireRollup(ctx, topic)
	return nil
}

func (s *TopicService) fireRollup(ctx context.Context, topic *models.Topic) {
	if s.pipeline == nil {
		return
	}
	result := s.pipeline.TopicChanged(ctx, TopicChangedEvent{Topic: topic})
	if result.Failed() {
		s.logger.Sugar().Warnw("topic write succeeded with failed rollup", "key", result.Key)
	}
}

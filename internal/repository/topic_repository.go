package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradtrack/mentor-api/internal/models"
)

const topicColumns = `id, title, task_id, student_id, course_id, university_id, week, discussion, reply, status,
    due_date, posted_date, mentor_assigned, priority, tags, sort_order,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// TopicRepository manages persistence for task topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs a TopicRepository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// List returns topics matching the provided filters.
func (r *TopicRepository) List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.TaskID != "" {
		conditions = append(conditions, fmt.Sprintf("task_id = $%d", len(args)+1))
		args = append(args, filter.TaskID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Week != nil {
		conditions = append(conditions, fmt.Sprintf("week = $%d", len(args)+1))
		args = append(args, *filter.Week)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"sort_order":   "sort_order",
		"due_date":     "due_date",
		"posted_date":  "posted_date",
		"priority":     "priority",
		"created_date": "created_date",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "sort_order"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM topics WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		topicColumns, where, column, order, size, offset)

	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM topics WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count topics: %w", err)
	}
	return topics, total, nil
}

// FindByID fetches a topic by ID.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics WHERE id = $1", topicColumns)
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// ListByTask returns all active topics of a task ordered by sort order.
func (r *TopicRepository) ListByTask(ctx context.Context, taskID string) ([]models.Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics WHERE task_id = $1 AND active = TRUE ORDER BY sort_order ASC", topicColumns)
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, taskID); err != nil {
		return nil, fmt.Errorf("list topics by task: %w", err)
	}
	return topics, nil
}

// Create inserts a new topic.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	const query = `INSERT INTO topics (id, title, task_id, student_id, course_id, university_id, week, discussion, reply, status,
        due_date, posted_date, mentor_assigned, priority, tags, sort_order,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :title, :task_id, :student_id, :course_id, :university_id, :week, :discussion, :reply, :status,
        :due_date, :posted_date, :mentor_assigned, :priority, :tags, :sort_order,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// Update modifies an existing topic.
func (r *TopicRepository) Update(ctx context.Context, topic *models.Topic) error {
	const query = `UPDATE topics SET title = :title, discussion = :discussion, reply = :reply, status = :status,
        due_date = :due_date, posted_date = :posted_date, mentor_assigned = :mentor_assigned,
        priority = :priority, tags = :tags, sort_order = :sort_order,
        last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// SoftDelete marks a topic as deleted without removing the row.
func (r *TopicRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE topics SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete topic: %w", err)
	}
	return nil
}

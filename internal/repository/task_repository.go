package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gradtrack/mentor-api/internal/models"
)

const taskColumns = `id, title, student_id, course_id, term_id, university_id, week, mentor_assigned, topic_ids, status,
    stats_in_progress, stats_completed, stats_not_started, stats_total, stats_overdue, stats_closed_today,
    due_date, priority, grade, prof_comments,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// TaskRepository manages persistence for mentoring tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// List returns tasks matching the provided filters.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(mentor_assigned)", len(args)+1))
		args = append(args, filter.MentorID)
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

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"week":         "week",
		"due_date":     "due_date",
		"priority":     "priority",
		"status":       "status",
		"created_date": "created_date",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "week"
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

	query := fmt.Sprintf("SELECT %s FROM tasks WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		taskColumns, where, column, order, size, offset)

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// FindByID fetches a task by ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByStudentAndCourse returns the active tasks for a student/course pair ordered by week.
func (r *TaskRepository) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE student_id = $1 AND course_id = $2 AND active = TRUE ORDER BY week ASC", taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list tasks by student and course: %w", err)
	}
	return tasks, nil
}

// ListActiveByMentor returns every active task the mentor is assigned to
// within one university.
func (r *TaskRepository) ListActiveByMentor(ctx context.Context, mentorID, universityID string) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE $1 = ANY(mentor_assigned) AND university_id = $2 AND active = TRUE", taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, mentorID, universityID); err != nil {
		return nil, fmt.Errorf("list tasks by mentor: %w", err)
	}
	return tasks, nil
}

// CountStatsByCourse tallies the course's active tasks by status.
func (r *TaskRepository) CountStatsByCourse(ctx context.Context, courseID string) (models.CourseTasksStats, error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE status = 'IN_PROGRESS') AS tasks_in_progress,
        COUNT(*) FILTER (WHERE status = 'COMPLETED') AS tasks_completed,
        COUNT(*) FILTER (WHERE status = 'NOT_STARTED') AS tasks_not_started,
        COUNT(*) AS tasks_total
        FROM tasks WHERE course_id = $1 AND active = TRUE`
	var stats models.CourseTasksStats
	if err := r.db.GetContext(ctx, &stats, query, courseID); err != nil {
		return models.CourseTasksStats{}, fmt.Errorf("count course task stats: %w", err)
	}
	return stats, nil
}

// Create inserts a single task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	const query = `INSERT INTO tasks (id, title, student_id, course_id, term_id, university_id, week, mentor_assigned, topic_ids, status,
        stats_in_progress, stats_completed, stats_not_started, stats_total, stats_overdue, stats_closed_today,
        due_date, priority, grade, prof_comments,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :title, :student_id, :course_id, :term_id, :university_id, :week, :mentor_assigned, :topic_ids, :status,
        :stats_in_progress, :stats_completed, :stats_not_started, :stats_total, :stats_overdue, :stats_closed_today,
        :due_date, :priority, :grade, :prof_comments,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// BulkInsert inserts materialized tasks inside a single transaction.
func (r *TaskRepository) BulkInsert(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO tasks (id, title, student_id, course_id, term_id, university_id, week, mentor_assigned, topic_ids, status,
        stats_in_progress, stats_completed, stats_not_started, stats_total, stats_overdue, stats_closed_today,
        due_date, priority, grade, prof_comments,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :title, :student_id, :course_id, :term_id, :university_id, :week, :mentor_assigned, :topic_ids, :status,
        :stats_in_progress, :stats_completed, :stats_not_started, :stats_total, :stats_overdue, :stats_closed_today,
        :due_date, :priority, :grade, :prof_comments,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
			return fmt.Errorf("bulk insert task week %d: %w", task.Week, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of an existing task.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	const query = `UPDATE tasks SET title = :title, mentor_assigned = :mentor_assigned, status = :status,
        due_date = :due_date, priority = :priority, grade = :grade, prof_comments = :prof_comments,
        last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// UpdateMentorsForStudentCourse reassigns the mentor set on every active task
// of the student/course pair, stamping the modification metadata.
func (r *TaskRepository) UpdateMentorsForStudentCourse(ctx context.Context, studentID, courseID string, mentors []string, by string, at time.Time) (int64, error) {
	const query = `UPDATE tasks SET mentor_assigned = $3, last_updated_date = $4, last_updated_by = $5
        WHERE student_id = $1 AND course_id = $2 AND active = TRUE`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, pq.StringArray(mentors), at, by)
	if err != nil {
		return 0, fmt.Errorf("update task mentors: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update task mentors affected: %w", err)
	}
	return affected, nil
}

// AppendTopicID links a topic to a task unless the link already exists.
func (r *TaskRepository) AppendTopicID(ctx context.Context, taskID, topicID string) error {
	const query = `UPDATE tasks SET topic_ids = array_append(topic_ids, $2)
        WHERE id = $1 AND NOT ($2 = ANY(topic_ids))`
	if _, err := r.db.ExecContext(ctx, query, taskID, topicID); err != nil {
		return fmt.Errorf("append topic to task: %w", err)
	}
	return nil
}

// UpdateStats persists a recomputed rollup. A nil status leaves the stored
// task status untouched.
func (r *TaskRepository) UpdateStats(ctx context.Context, taskID string, stats models.TaskStats, status *models.TaskStatus) error {
	args := []interface{}{taskID, stats.InProgress, stats.Completed, stats.NotStarted, stats.Total, stats.Overdue, stats.ClosedToday}
	query := `UPDATE tasks SET stats_in_progress = $2, stats_completed = $3, stats_not_started = $4,
        stats_total = $5, stats_overdue = $6, stats_closed_today = $7`
	if status != nil {
		query += fmt.Sprintf(", status = $%d", len(args)+1)
		args = append(args, *status)
	}
	query += " WHERE id = $1"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update task stats: %w", err)
	}
	return nil
}

// SoftDelete marks a task as deleted without removing the row.
func (r *TaskRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE tasks SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	return nil
}

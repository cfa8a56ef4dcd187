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

const courseColumns = `id, name, term_id, professor_id, university_id, period_type, start_week, end_week,
    tasks_in_progress, tasks_completed, tasks_not_started, tasks_total,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]bool{
		"name":         true,
		"start_week":   true,
		"created_date": true,
	}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", courseColumns, base, sortBy, order, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	const query = `INSERT INTO courses (id, name, term_id, professor_id, university_id, period_type, start_week, end_week,
        tasks_in_progress, tasks_completed, tasks_not_started, tasks_total,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :name, :term_id, :professor_id, :university_id, :period_type, :start_week, :end_week,
        :tasks_in_progress, :tasks_completed, :tasks_not_started, :tasks_total,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET name = :name, term_id = :term_id, professor_id = :professor_id, university_id = :university_id,
        period_type = :period_type, start_week = :start_week, end_week = :end_week,
        last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// UpdateTaskStats refreshes the cached task counters on the course row.
func (r *CourseRepository) UpdateTaskStats(ctx context.Context, id string, stats models.CourseTasksStats) error {
	const query = `UPDATE courses SET tasks_in_progress = $2, tasks_completed = $3, tasks_not_started = $4, tasks_total = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, stats.InProgress, stats.Completed, stats.NotStarted, stats.Total); err != nil {
		return fmt.Errorf("update course task stats: %w", err)
	}
	return nil
}

// SoftDelete marks a course as deleted without removing the row.
func (r *CourseRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE courses SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete course: %w", err)
	}
	return nil
}

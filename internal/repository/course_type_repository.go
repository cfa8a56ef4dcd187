package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradtrack/mentor-api/internal/models"
)

const courseTypeColumns = `id, name,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// CourseTypeRepository handles persistence for the course type lookup.
type CourseTypeRepository struct {
	db *sqlx.DB
}

// NewCourseTypeRepository instantiates a course type repository.
func NewCourseTypeRepository(db *sqlx.DB) *CourseTypeRepository {
	return &CourseTypeRepository{db: db}
}

// List returns all active course types. The lookup is small enough that it
// is never paginated.
func (r *CourseTypeRepository) List(ctx context.Context) ([]models.CourseType, error) {
	query := fmt.Sprintf("SELECT %s FROM course_types WHERE active = TRUE ORDER BY name", courseTypeColumns)
	var types []models.CourseType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list course types: %w", err)
	}
	return types, nil
}

// FindByID loads an active course type by identifier. Soft-deleted entries
// behave as missing.
func (r *CourseTypeRepository) FindByID(ctx context.Context, id string) (*models.CourseType, error) {
	query := fmt.Sprintf("SELECT %s FROM course_types WHERE id = $1 AND active = TRUE", courseTypeColumns)
	var courseType models.CourseType
	if err := r.db.GetContext(ctx, &courseType, query, id); err != nil {
		return nil, err
	}
	return &courseType, nil
}

// Create inserts a new course type.
func (r *CourseTypeRepository) Create(ctx context.Context, courseType *models.CourseType) error {
	if courseType.ID == "" {
		courseType.ID = uuid.NewString()
	}
	const query = `INSERT INTO course_types (id, name,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :name,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, courseType); err != nil {
		return fmt.Errorf("create course type: %w", err)
	}
	return nil
}

// Update modifies an existing course type.
func (r *CourseTypeRepository) Update(ctx context.Context, courseType *models.CourseType) error {
	const query = `UPDATE course_types SET name = :name,
        last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, courseType); err != nil {
		return fmt.Errorf("update course type: %w", err)
	}
	return nil
}

// SoftDelete marks a course type as deleted without removing the row.
func (r *CourseTypeRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE course_types SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete course type: %w", err)
	}
	return nil
}

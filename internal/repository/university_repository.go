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

const universityColumns = `id, name, mentors,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// UniversityRepository manages persistence for universities.
type UniversityRepository struct {
	db *sqlx.DB
}

// NewUniversityRepository constructs a UniversityRepository.
func NewUniversityRepository(db *sqlx.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// List returns universities matching the provided filters.
func (r *UniversityRepository) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, int, error) {
	base := "FROM universities WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(mentors)", len(args)+1))
		args = append(args, filter.MentorID)
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

	allowedSorts := map[string]bool{"name": true, "created_date": true}
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", universityColumns, base, sortBy, order, size, offset)

	var universities []models.University
	if err := r.db.SelectContext(ctx, &universities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list universities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count universities: %w", err)
	}
	return universities, total, nil
}

// FindByID fetches a university by ID.
func (r *UniversityRepository) FindByID(ctx context.Context, id string) (*models.University, error) {
	query := fmt.Sprintf("SELECT %s FROM universities WHERE id = $1", universityColumns)
	var university models.University
	if err := r.db.GetContext(ctx, &university, query, id); err != nil {
		return nil, err
	}
	return &university, nil
}

// Create inserts a new university.
func (r *UniversityRepository) Create(ctx context.Context, university *models.University) error {
	if university.ID == "" {
		university.ID = uuid.NewString()
	}
	if university.Mentors == nil {
		university.Mentors = pq.StringArray{}
	}
	const query = `INSERT INTO universities (id, name, mentors,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :name, :mentors,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("create university: %w", err)
	}
	return nil
}

// Update modifies a university's base fields. The mentor roster is maintained
// separately through UpdateMentors.
func (r *UniversityRepository) Update(ctx context.Context, university *models.University) error {
	const query = `UPDATE universities SET name = :name,
        last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, university); err != nil {
		return fmt.Errorf("update university: %w", err)
	}
	return nil
}

// UpdateMentors replaces the university's mentor roster in a single write.
func (r *UniversityRepository) UpdateMentors(ctx context.Context, id string, mentors []string) error {
	const query = `UPDATE universities SET mentors = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, pq.StringArray(mentors)); err != nil {
		return fmt.Errorf("update university mentors: %w", err)
	}
	return nil
}

// SoftDelete marks a university as deleted without removing the row.
func (r *UniversityRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE universities SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete university: %w", err)
	}
	return nil
}

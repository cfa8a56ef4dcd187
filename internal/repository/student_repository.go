package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gradtrack/mentor-api/internal/models"
)

const studentColumns = `id, student_number, first_name, last_name, contact_number, personal_email, edu_email, university_id, course_type_id,
    created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active`

// StudentRepository manages persistence for student records and their course rosters.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters. Course rosters are not
// loaded here; use FindByID for the full record.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.CourseID != "" || filter.MentorID != "" {
		base += " JOIN student_courses sc ON sc.student_id = s.id"
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("sc.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.MentorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(sc.assigned_mentors)", len(args)+1))
		args = append(args, filter.MentorID)
	}
	if filter.UniversityID != "" {
		conditions = append(conditions, fmt.Sprintf("s.university_id = $%d", len(args)+1))
		args = append(args, filter.UniversityID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		cond := fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.student_number) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1)
		conditions = append(conditions, cond)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":      "s.last_name",
		"student_number": "s.student_number",
		"created_date":   "s.created_date",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	cols := "s." + strings.ReplaceAll(studentColumns, ", ", ", s.")
	query := fmt.Sprintf("SELECT DISTINCT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", cols, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student with their course roster.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}

	courses, err := r.ListCourses(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Courses = courses
	return &student, nil
}

// ListCourses returns the student's course roster entries.
func (r *StudentRepository) ListCourses(ctx context.Context, studentID string) ([]models.StudentCourse, error) {
	const query = `SELECT id, student_id, course_id, assigned_mentors FROM student_courses WHERE student_id = $1 ORDER BY course_id`
	var courses []models.StudentCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// FindCourse returns the roster entry for one student/course pair, or
// sql.ErrNoRows when the student is not enrolled.
func (r *StudentRepository) FindCourse(ctx context.Context, studentID, courseID string) (*models.StudentCourse, error) {
	const query = `SELECT id, student_id, course_id, assigned_mentors FROM student_courses WHERE student_id = $1 AND course_id = $2`
	var course models.StudentCourse
	if err := r.db.GetContext(ctx, &course, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &course, nil
}

// ExistsByStudentNumber checks if a student number is already taken,
// optionally excluding an ID.
func (r *StudentRepository) ExistsByStudentNumber(ctx context.Context, studentNumber, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_number = $1"
	args := []interface{}{studentNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student number: %w", err)
	}
	return true, nil
}

// Create inserts a new student together with their course roster.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO students (id, student_number, first_name, last_name, contact_number, personal_email, edu_email, university_id, course_type_id,
        created_date, created_by, last_updated_date, last_updated_by, deleted_date, deleted_by, active)
        VALUES (:id, :student_number, :first_name, :last_name, :contact_number, :personal_email, :edu_email, :university_id, :course_type_id,
        :created_date, :created_by, :last_updated_date, :last_updated_by, :deleted_date, :deleted_by, :active)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	for i := range student.Courses {
		if err := insertStudentCourse(ctx, tx, student.ID, &student.Courses[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// Update modifies a student's base fields. Roster changes go through
// UpsertCourse and RemoveCourse.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET student_number = :student_number, first_name = :first_name, last_name = :last_name,
        contact_number = :contact_number, personal_email = :personal_email, edu_email = :edu_email, university_id = :university_id,
        course_type_id = :course_type_id, last_updated_date = :last_updated_date, last_updated_by = :last_updated_by, active = :active
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpsertCourse creates or replaces the roster entry for a student/course pair.
func (r *StudentRepository) UpsertCourse(ctx context.Context, course *models.StudentCourse) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	const query = `INSERT INTO student_courses (id, student_id, course_id, assigned_mentors)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (student_id, course_id) DO UPDATE SET assigned_mentors = EXCLUDED.assigned_mentors`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.StudentID, course.CourseID, course.AssignedMentors); err != nil {
		return fmt.Errorf("upsert student course: %w", err)
	}
	return nil
}

// RemoveCourse drops a course from the student's roster.
func (r *StudentRepository) RemoveCourse(ctx context.Context, studentID, courseID string) error {
	const query = `DELETE FROM student_courses WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("remove student course: %w", err)
	}
	return nil
}

// SoftDelete marks a student as deleted without removing the row.
func (r *StudentRepository) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	const query = `UPDATE students SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("soft delete student: %w", err)
	}
	return nil
}

func insertStudentCourse(ctx context.Context, tx *sqlx.Tx, studentID string, course *models.StudentCourse) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.StudentID = studentID
	if course.AssignedMentors == nil {
		course.AssignedMentors = pq.StringArray{}
	}
	const query = `INSERT INTO student_courses (id, student_id, course_id, assigned_mentors) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, course.ID, course.StudentID, course.CourseID, course.AssignedMentors); err != nil {
		return fmt.Errorf("create student course: %w", err)
	}
	return nil
}

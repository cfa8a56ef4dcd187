package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_number", "first_name", "last_name", "contact_number", "personal_email", "edu_email", "university_id", "course_type_id",
		"created_date", "created_by", "last_updated_date", "last_updated_by", "deleted_date", "deleted_by", "active",
	})
}

func TestStudentRepositoryListFiltersByMentor(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().AddRow(
		"stu-1", "S-001", "Ada", "Lovelace", "", "ada@example.com", "ada@uni.edu", "uni-1", nil,
		time.Now(), "system", nil, nil, nil, nil, true,
	)
	mock.ExpectQuery(`(?s)SELECT DISTINCT s\.id, .+ FROM students s JOIN student_courses sc ON sc\.student_id = s\.id WHERE 1=1 AND \$1 = ANY\(sc\.assigned_mentors\) ORDER BY s\.created_date DESC LIMIT 20 OFFSET 0`).
		WithArgs("mentor-1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT s\.id\) FROM students s JOIN student_courses sc`).
		WithArgs("mentor-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{MentorID: "mentor-1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, students, 1)
	require.Equal(t, "S-001", students[0].StudentNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDLoadsRoster(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`(?s)SELECT id, student_number, .+ FROM students WHERE id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(studentRows().AddRow(
			"stu-1", "S-001", "Ada", "Lovelace", "", "", "", "uni-1", "ctype-1",
			time.Now(), "system", nil, nil, nil, nil, true,
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, assigned_mentors FROM student_courses WHERE student_id = $1 ORDER BY course_id")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "course_id", "assigned_mentors"}).
			AddRow("sc-1", "stu-1", "course-1", pq.StringArray{"mentor-1"}))

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, student.Courses, 1)
	require.Equal(t, "course-1", student.Courses[0].CourseID)
	require.NotNil(t, student.CourseTypeID)
	require.Equal(t, "ctype-1", *student.CourseTypeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByStudentNumber(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_number = $1 AND id <> $2 LIMIT 1")).
		WithArgs("S-001", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByStudentNumber(context.Background(), "S-001", "stu-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_number = $1 LIMIT 1")).
		WithArgs("S-999").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByStudentNumber(context.Background(), "S-999", "")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateInsertsRoster(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_courses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_courses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{
		StudentNumber: "S-001",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		UniversityID:  "uni-1",
		Active:        true,
		Courses: []models.StudentCourse{
			{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-1"}},
			{CourseID: "course-2"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), student))
	require.NotEmpty(t, student.ID)
	require.Equal(t, student.ID, student.Courses[0].StudentID)
	require.NotNil(t, student.Courses[1].AssignedMentors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsertCourse(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO student_courses .+ ON CONFLICT \(student_id, course_id\) DO UPDATE SET assigned_mentors = EXCLUDED\.assigned_mentors`).
		WithArgs(sqlmock.AnyArg(), "stu-1", "course-1", pq.StringArray{"mentor-2"}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	course := &models.StudentCourse{StudentID: "stu-1", CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-2"}}
	require.NoError(t, repo.UpsertCourse(context.Background(), course))
	require.NotEmpty(t, course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = FALSE, deleted_date = $2, deleted_by = $3 WHERE id = $1")).
		WithArgs("stu-1", at, "admin@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "stu-1", "admin@example.com", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

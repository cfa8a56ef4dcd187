package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

func newTaskRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func taskRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "student_id", "course_id", "term_id", "university_id", "week", "mentor_assigned", "topic_ids", "status",
		"stats_in_progress", "stats_completed", "stats_not_started", "stats_total", "stats_overdue", "stats_closed_today",
		"due_date", "priority", "grade", "prof_comments",
		"created_date", "created_by", "last_updated_date", "last_updated_by", "deleted_date", "deleted_by", "active",
	})
}

func TestTaskRepositoryListByStudentAndCourse(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := taskRows().AddRow(
		"task-1", "Week 3", "stu-1", "course-1", "term-1", "uni-1", 3,
		pq.StringArray{"mentor-1"}, pq.StringArray{}, models.TaskStatusNotStarted,
		0, 0, 0, 0, 0, 0,
		nil, 0, "", "",
		time.Now(), "system", nil, nil, nil, nil, true,
	)
	mock.ExpectQuery(`(?s)SELECT .+ FROM tasks WHERE student_id = \$1 AND course_id = \$2 AND active = TRUE ORDER BY week ASC`).
		WithArgs("stu-1", "course-1").
		WillReturnRows(rows)

	tasks, err := repo.ListByStudentAndCourse(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, 3, tasks[0].Week)
	require.Equal(t, pq.StringArray{"mentor-1"}, tasks[0].MentorAssigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateMentorsForStudentCourse(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET mentor_assigned = $3, last_updated_date = $4, last_updated_by = $5")).
		WithArgs("stu-1", "course-1", pq.StringArray{"mentor-1", "mentor-2"}, at, "system").
		WillReturnResult(sqlmock.NewResult(0, 4))

	affected, err := repo.UpdateMentorsForStudentCourse(context.Background(), "stu-1", "course-1", []string{"mentor-1", "mentor-2"}, "system", at)
	require.NoError(t, err)
	require.Equal(t, int64(4), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryAppendTopicID(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET topic_ids = array_append(topic_ids, $2)")).
		WithArgs("task-1", "topic-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AppendTopicID(context.Background(), "task-1", "topic-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateStatsWithoutStatus(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	stats := models.TaskStats{InProgress: 2, Completed: 1, NotStarted: 1, Total: 4, Overdue: 1, ClosedToday: 1}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET stats_in_progress = $2, stats_completed = $3, stats_not_started = $4")).
		WithArgs("task-1", 2, 1, 1, 4, 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStats(context.Background(), "task-1", stats, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateStatsWithStatus(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	stats := models.TaskStats{Completed: 3, Total: 3}
	status := models.TaskStatusCompleted
	mock.ExpectExec(`(?s)UPDATE tasks SET stats_in_progress = \$2, .+, status = \$8 WHERE id = \$1`).
		WithArgs("task-1", 0, 3, 0, 3, 0, 0, status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStats(context.Background(), "task-1", stats, &status))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryBulkInsert(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tasks").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tasks := []*models.Task{
		{Title: "Week 1", StudentID: "stu-1", CourseID: "course-1", Week: 1, Status: models.TaskStatusNotStarted},
		{Title: "Week 2", StudentID: "stu-1", CourseID: "course-1", Week: 2, Status: models.TaskStatusNotStarted},
	}
	require.NoError(t, repo.BulkInsert(context.Background(), tasks))
	require.NotEmpty(t, tasks[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCountStatsByCourse(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"tasks_in_progress", "tasks_completed", "tasks_not_started", "tasks_total"}).
		AddRow(2, 1, 3, 6)
	mock.ExpectQuery(`(?s)SELECT.+FROM tasks WHERE course_id = \$1 AND active = TRUE`).
		WithArgs("course-1").
		WillReturnRows(rows)

	stats, err := repo.CountStatsByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Equal(t, 6, stats.Total)
	require.Equal(t, 3, stats.NotStarted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryBulkInsertEmpty(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	require.NoError(t, repo.BulkInsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

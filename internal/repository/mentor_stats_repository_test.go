package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

func newMentorStatsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMentorStatsRepositoryFindByMentor(t *testing.T) {
	db, mock, cleanup := newMentorStatsRepoMock(t)
	defer cleanup()
	repo := NewMentorStatsRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "mentor_id", "tasks_not_started", "tasks_in_progress", "tasks_completed", "tasks_total",
		"topics_not_started", "topics_in_progress", "topics_completed", "topics_total", "topics_overdue", "topics_closed_today", "updated_at",
	}).AddRow("stats-1", "mentor-1", 1, 2, 3, 6, 4, 5, 6, 15, 2, 1, time.Now())

	mock.ExpectQuery(`SELECT .+ FROM mentor_tasks_stats WHERE mentor_id = \$1`).
		WithArgs("mentor-1").
		WillReturnRows(rows)

	stats, err := repo.FindByMentor(context.Background(), "mentor-1")
	require.NoError(t, err)
	require.Equal(t, "mentor-1", stats.MentorID)
	require.Equal(t, 6, stats.TaskStats.Total)
	require.Equal(t, 2, stats.TopicStats.Overdue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMentorStatsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMentorStatsRepoMock(t)
	defer cleanup()
	repo := NewMentorStatsRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO mentor_tasks_stats .+ ON CONFLICT \(mentor_id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stats := &models.MentorTasksStats{
		MentorID:   "mentor-1",
		TaskStats:  models.MentorTaskCounts{Completed: 2, Total: 2},
		TopicStats: models.MentorTopicCounts{Completed: 5, Total: 5},
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Upsert(context.Background(), stats))
	require.NotEmpty(t, stats.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

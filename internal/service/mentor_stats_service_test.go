package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

type mockMentorTaskReader struct {
	tasks []models.Task
}

func (m *mockMentorTaskReader) ListActiveByMentor(ctx context.Context, mentorID, universityID string) ([]models.Task, error) {
	return m.tasks, nil
}

type mockMentorStatsRepo struct {
	stored   *models.MentorTasksStats
	upserted int
}

func (m *mockMentorStatsRepo) FindByMentor(ctx context.Context, mentorID string) (*models.MentorTasksStats, error) {
	if m.stored == nil {
		return nil, sql.ErrNoRows
	}
	return m.stored, nil
}

func (m *mockMentorStatsRepo) Upsert(ctx context.Context, stats *models.MentorTasksStats) error {
	m.stored = stats
	m.upserted++
	return nil
}

func TestGetLoggedInUserStatsSumsTaskRollups(t *testing.T) {
	tasks := []models.Task{
		{
			Status:    models.TaskStatusInProgress,
			TaskStats: models.TaskStats{Completed: 1, Total: 2, InProgress: 1},
		},
		{
			Status:    models.TaskStatusCompleted,
			TaskStats: models.TaskStats{Completed: 2, Total: 2, ClosedToday: 1},
		},
	}
	repo := &mockMentorStatsRepo{}
	svc := NewMentorStatsService(&mockMentorTaskReader{tasks: tasks}, repo, nil, nil)
	svc.now = fixedClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	stats, err := svc.GetLoggedInUserStats(context.Background(), "mentor-1", "uni-1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TaskStats.Total)
	assert.Equal(t, 1, stats.TaskStats.InProgress)
	assert.Equal(t, 1, stats.TaskStats.Completed)
	assert.Equal(t, 0, stats.TaskStats.NotStarted)

	// Topic counters are summed from the task rollups, not recounted.
	assert.Equal(t, 4, stats.TopicStats.Total)
	assert.Equal(t, 3, stats.TopicStats.Completed)
	assert.Equal(t, 1, stats.TopicStats.InProgress)
	assert.Equal(t, 1, stats.TopicStats.ClosedToday)

	assert.Equal(t, 1, repo.upserted)
	assert.Equal(t, "mentor-1", repo.stored.MentorID)
}

func TestGetLoggedInUserStatsRecomputesWholesale(t *testing.T) {
	repo := &mockMentorStatsRepo{stored: &models.MentorTasksStats{
		MentorID:   "mentor-1",
		TaskStats:  models.MentorTaskCounts{Total: 99},
		TopicStats: models.MentorTopicCounts{Total: 99},
	}}
	svc := NewMentorStatsService(&mockMentorTaskReader{}, repo, nil, nil)

	stats, err := svc.GetLoggedInUserStats(context.Background(), "mentor-1", "uni-1")
	require.NoError(t, err)

	// No tasks → everything resets to zero rather than keeping stale counts.
	assert.Equal(t, 0, stats.TaskStats.Total)
	assert.Equal(t, 0, stats.TopicStats.Total)
	assert.Equal(t, 1, repo.upserted)
}

func TestGetLoggedInUserStatsValidatesInput(t *testing.T) {
	svc := NewMentorStatsService(&mockMentorTaskReader{}, &mockMentorStatsRepo{}, nil, nil)

	_, err := svc.GetLoggedInUserStats(context.Background(), "", "uni-1")
	require.Error(t, err)
	_, err = svc.GetLoggedInUserStats(context.Background(), "mentor-1", "")
	require.Error(t, err)
}

func TestGetStoredStatsNotFound(t *testing.T) {
	svc := NewMentorStatsService(&mockMentorTaskReader{}, &mockMentorStatsRepo{}, nil, nil)

	_, err := svc.GetStoredStats(context.Background(), "mentor-1")
	require.Error(t, err)
}

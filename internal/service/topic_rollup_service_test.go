package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

type mockRollupTaskRepo struct {
	appended    [][2]string
	savedStats  *models.TaskStats
	savedStatus *models.TaskStatus
}

func (m *mockRollupTaskRepo) AppendTopicID(ctx context.Context, taskID, topicID string) error {
	m.appended = append(m.appended, [2]string{taskID, topicID})
	return nil
}

func (m *mockRollupTaskRepo) UpdateStats(ctx context.Context, taskID string, stats models.TaskStats, status *models.TaskStatus) error {
	m.savedStats = &stats
	m.savedStatus = status
	return nil
}

type mockRollupTopicReader struct {
	topics []models.Topic
}

func (m *mockRollupTopicReader) ListByTask(ctx context.Context, taskID string) ([]models.Topic, error) {
	return m.topics, nil
}

func rollupNow() time.Time {
	return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
}

func topicAt(status models.TaskStatus, due, posted *time.Time) models.Topic {
	return models.Topic{ID: "topic-x", TaskID: "task-1", Status: status, DueDate: due, PostedDate: posted}
}

func TestRecomputeMixedTopicStates(t *testing.T) {
	now := rollupNow()
	yesterday := now.AddDate(0, 0, -1)
	today := now.Add(-time.Hour)

	topics := []models.Topic{
		topicAt(models.TaskStatusNotStarted, nil, nil),
		topicAt(models.TaskStatusInProgress, &yesterday, nil),
		topicAt(models.TaskStatusCompleted, nil, &today),
		topicAt(models.TaskStatusCompleted, nil, &yesterday),
	}

	tasks := &mockRollupTaskRepo{}
	svc := NewTopicRollupService(tasks, &mockRollupTopicReader{topics: topics}, nil)
	svc.now = fixedClock(now)

	topic := topics[1]
	topic.ID = "topic-2"
	require.NoError(t, svc.Recompute(context.Background(), &topic))

	require.NotNil(t, tasks.savedStats)
	assert.Equal(t, 1, tasks.savedStats.NotStarted)
	// The overdue in-progress topic lands only in overdue.
	assert.Equal(t, 0, tasks.savedStats.InProgress)
	assert.Equal(t, 1, tasks.savedStats.Overdue)
	assert.Equal(t, 2, tasks.savedStats.Completed)
	assert.Equal(t, 1, tasks.savedStats.ClosedToday)
	assert.Equal(t, 4, tasks.savedStats.Total)

	require.NotNil(t, tasks.savedStatus)
	assert.Equal(t, models.TaskStatusInProgress, *tasks.savedStatus)

	require.Len(t, tasks.appended, 1)
	assert.Equal(t, [2]string{"task-1", "topic-2"}, tasks.appended[0])
}

func TestRecomputeAllCompletedMarksTaskCompleted(t *testing.T) {
	now := rollupNow()
	today := now.Add(-2 * time.Hour)

	topics := []models.Topic{
		topicAt(models.TaskStatusCompleted, nil, &today),
		topicAt(models.TaskStatusCompleted, nil, nil),
	}

	tasks := &mockRollupTaskRepo{}
	svc := NewTopicRollupService(tasks, &mockRollupTopicReader{topics: topics}, nil)
	svc.now = fixedClock(now)

	require.NoError(t, svc.Recompute(context.Background(), &topics[0]))

	require.NotNil(t, tasks.savedStatus)
	assert.Equal(t, models.TaskStatusCompleted, *tasks.savedStatus)
	assert.Equal(t, 2, tasks.savedStats.Completed)
	assert.Equal(t, 2, tasks.savedStats.Total)
	assert.Equal(t, 1, tasks.savedStats.ClosedToday)
}

func TestRecomputeNoCompletionsLeavesStatusUnchanged(t *testing.T) {
	topics := []models.Topic{
		topicAt(models.TaskStatusNotStarted, nil, nil),
		topicAt(models.TaskStatusInProgress, nil, nil),
	}

	tasks := &mockRollupTaskRepo{}
	svc := NewTopicRollupService(tasks, &mockRollupTopicReader{topics: topics}, nil)
	svc.now = fixedClock(rollupNow())

	require.NoError(t, svc.Recompute(context.Background(), &topics[0]))

	assert.Nil(t, tasks.savedStatus)
	assert.Equal(t, 1, tasks.savedStats.NotStarted)
	assert.Equal(t, 1, tasks.savedStats.InProgress)
}

func TestComputeTopicStatsOverdueExclusivity(t *testing.T) {
	now := rollupNow()
	pastDue := now.AddDate(0, 0, -3)

	// An in-progress topic past its due date counts only as overdue.
	stats := computeTopicStats([]models.Topic{
		topicAt(models.TaskStatusInProgress, &pastDue, nil),
	}, now)

	assert.Equal(t, 0, stats.InProgress)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.Total)
}

func TestComputeTopicStatsCompletedNeverOverdue(t *testing.T) {
	now := rollupNow()
	pastDue := now.AddDate(0, 0, -3)

	stats := computeTopicStats([]models.Topic{
		topicAt(models.TaskStatusCompleted, &pastDue, nil),
	}, now)

	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.Overdue)
}

func TestRecomputeSkipsOrphanTopic(t *testing.T) {
	tasks := &mockRollupTaskRepo{}
	svc := NewTopicRollupService(tasks, &mockRollupTopicReader{}, nil)

	topic := models.Topic{ID: "topic-1"}
	require.NoError(t, svc.Recompute(context.Background(), &topic))
	assert.Empty(t, tasks.appended)
	assert.Nil(t, tasks.savedStats)
}

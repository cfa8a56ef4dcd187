package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type rollupTaskRepository interface {
	AppendTopicID(ctx context.Context, taskID, topicID string) error
	UpdateStats(ctx context.Context, taskID string, stats models.TaskStats, status *models.TaskStatus) error
}

type rollupTopicReader interface {
	ListByTask(ctx context.Context, taskID string) ([]models.Topic, error)
}

// TopicRollupService recomputes a task's topic counters and derived status
// whenever one of its topics changes.
type TopicRollupService struct {
	tasks  rollupTaskRepository
	topics rollupTopicReader
	logger *zap.Logger
	now    func() time.Time
}

// NewTopicRollupService constructs a TopicRollupService.
func NewTopicRollupService(tasks rollupTaskRepository, topics rollupTopicReader, logger *zap.Logger) *TopicRollupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicRollupService{tasks: tasks, topics: topics, logger: logger, now: time.Now}
}

// Recompute links the topic to its task, re-reads every topic of that task
// and persists the fresh counters plus derived status in one update.
func (s *TopicRollupService) Recompute(ctx context.Context, topic *models.Topic) error {
	if topic.TaskID == "" {
		return nil
	}

	if err := s.tasks.AppendTopicID(ctx, topic.TaskID, topic.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to link topic to task")
	}

	topics, err := s.topics.ListByTask(ctx, topic.TaskID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to load task topics")
	}

	stats := computeTopicStats(topics, s.now())
	status := deriveTaskStatus(stats)

	if err := s.tasks.UpdateStats(ctx, topic.TaskID, stats, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to persist task rollup")
	}

	s.logger.Sugar().Debugw("task rollup recomputed",
		"task_id", topic.TaskID,
		"total", stats.Total,
		"completed", stats.Completed,
		"overdue", stats.Overdue,
	)
	return nil
}

// computeTopicStats counts topics by state. An overdue topic is excluded from
// inProgress and a completed topic is excluded from overdue, so the counters
// intentionally do not sum to total.
func computeTopicStats(topics []models.Topic, now time.Time) models.TaskStats {
	var stats models.TaskStats
	for _, topic := range topics {
		overdue := topic.Overdue(now)
		switch topic.Status {
		case models.TaskStatusNotStarted:
			stats.NotStarted++
		case models.TaskStatusInProgress:
			if !overdue {
				stats.InProgress++
			}
		case models.TaskStatusCompleted:
			stats.Completed++
		}
		if overdue {
			stats.Overdue++
		}
		if topic.ClosedToday(now) {
			stats.ClosedToday++
		}
		stats.Total++
	}
	return stats
}

// deriveTaskStatus maps a rollup to the task status it implies. A nil result
// means the stored status must be left unchanged.
func deriveTaskStatus(stats models.TaskStats) *models.TaskStatus {
	if stats.Completed == 0 {
		return nil
	}
	status := models.TaskStatusInProgress
	if stats.Completed == stats.Total {
		status = models.TaskStatusCompleted
	}
	return &status
}

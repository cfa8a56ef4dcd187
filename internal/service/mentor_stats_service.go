package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type mentorStatsTaskReader interface {
	ListActiveByMentor(ctx context.Context, mentorID, universityID string) ([]models.Task, error)
}

type mentorStatsRepository interface {
	FindByMentor(ctx context.Context, mentorID string) (*models.MentorTasksStats, error)
	Upsert(ctx context.Context, stats *models.MentorTasksStats) error
}

// MentorStatsService recomputes the per-mentor statistics snapshot on demand.
// The topic counters are summed from task rollups, never recounted from
// topics, so stale task rollups carry through until the next topic write.
type MentorStatsService struct {
	tasks  mentorStatsTaskReader
	stats  mentorStatsRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewMentorStatsService constructs a MentorStatsService. The cache is optional.
func NewMentorStatsService(tasks mentorStatsTaskReader, stats mentorStatsRepository, cache *CacheService, logger *zap.Logger) *MentorStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorStatsService{tasks: tasks, stats: stats, cache: cache, logger: logger, now: time.Now}
}

func mentorStatsCacheKey(mentorID string) string {
	return fmt.Sprintf("mentor-stats:%s", mentorID)
}

// GetLoggedInUserStats scans the mentor's active tasks in the university,
// recomputes both counter groups wholesale and upserts the single stats row.
func (s *MentorStatsService) GetLoggedInUserStats(ctx context.Context, mentorID, universityID string) (*models.MentorTasksStats, error) {
	if mentorID == "" || universityID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mentor id and university id are required")
	}

	tasks, err := s.tasks.ListActiveByMentor(ctx, mentorID, universityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to load mentor tasks")
	}

	stats := &models.MentorTasksStats{
		MentorID:  mentorID,
		UpdatedAt: s.now().UTC(),
	}
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusNotStarted:
			stats.TaskStats.NotStarted++
		case models.TaskStatusInProgress:
			stats.TaskStats.InProgress++
		case models.TaskStatusCompleted:
			stats.TaskStats.Completed++
		}
		stats.TaskStats.Total++

		stats.TopicStats.NotStarted += task.TaskStats.NotStarted
		stats.TopicStats.InProgress += task.TaskStats.InProgress
		stats.TopicStats.Completed += task.TaskStats.Completed
		stats.TopicStats.Total += task.TaskStats.Total
		stats.TopicStats.Overdue += task.TaskStats.Overdue
		stats.TopicStats.ClosedToday += task.TaskStats.ClosedToday
	}

	if err := s.stats.Upsert(ctx, stats); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to persist mentor stats")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, mentorStatsCacheKey(mentorID), stats, 0)
	}
	return stats, nil
}

// GetStoredStats returns the last persisted snapshot without recomputing,
// consulting the cache first.
func (s *MentorStatsService) GetStoredStats(ctx context.Context, mentorID string) (*models.MentorTasksStats, error) {
	if s.cache.Enabled() {
		var cached models.MentorTasksStats
		if hit, _ := s.cache.Get(ctx, mentorStatsCacheKey(mentorID), &cached); hit {
			return &cached, nil
		}
	}

	stats, err := s.stats.FindByMentor(ctx, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no statistics recorded for mentor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor stats")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, mentorStatsCacheKey(mentorID), stats, 0)
	}
	return stats, nil
}

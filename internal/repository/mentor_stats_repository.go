package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradtrack/mentor-api/internal/models"
)

// MentorStatsRepository persists the single statistics row kept per mentor.
type MentorStatsRepository struct {
	db *sqlx.DB
}

// NewMentorStatsRepository constructs a MentorStatsRepository.
func NewMentorStatsRepository(db *sqlx.DB) *MentorStatsRepository {
	return &MentorStatsRepository{db: db}
}

// mentorStatsRow flattens the nested counters for sqlx scanning.
type mentorStatsRow struct {
	ID       string `db:"id"`
	MentorID string `db:"mentor_id"`

	TasksNotStarted int `db:"tasks_not_started"`
	TasksInProgress int `db:"tasks_in_progress"`
	TasksCompleted  int `db:"tasks_completed"`
	TasksTotal      int `db:"tasks_total"`

	TopicsNotStarted  int `db:"topics_not_started"`
	TopicsInProgress  int `db:"topics_in_progress"`
	TopicsCompleted   int `db:"topics_completed"`
	TopicsTotal       int `db:"topics_total"`
	TopicsOverdue     int `db:"topics_overdue"`
	TopicsClosedToday int `db:"topics_closed_today"`

	UpdatedAt time.Time `db:"updated_at"`
}

func (row mentorStatsRow) toModel() *models.MentorTasksStats {
	return &models.MentorTasksStats{
		ID:       row.ID,
		MentorID: row.MentorID,
		TaskStats: models.MentorTaskCounts{
			NotStarted: row.TasksNotStarted,
			InProgress: row.TasksInProgress,
			Completed:  row.TasksCompleted,
			Total:      row.TasksTotal,
		},
		TopicStats: models.MentorTopicCounts{
			NotStarted:  row.TopicsNotStarted,
			InProgress:  row.TopicsInProgress,
			Completed:   row.TopicsCompleted,
			Total:       row.TopicsTotal,
			Overdue:     row.TopicsOverdue,
			ClosedToday: row.TopicsClosedToday,
		},
		UpdatedAt: row.UpdatedAt,
	}
}

const mentorStatsColumns = `id, mentor_id, tasks_not_started, tasks_in_progress, tasks_completed, tasks_total,
    topics_not_started, topics_in_progress, topics_completed, topics_total, topics_overdue, topics_closed_today, updated_at`

// FindByMentor fetches the statistics row for a mentor.
func (r *MentorStatsRepository) FindByMentor(ctx context.Context, mentorID string) (*models.MentorTasksStats, error) {
	query := fmt.Sprintf("SELECT %s FROM mentor_tasks_stats WHERE mentor_id = $1", mentorStatsColumns)
	var row mentorStatsRow
	if err := r.db.GetContext(ctx, &row, query, mentorID); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// Upsert replaces the mentor's statistics row, keeping exactly one per mentor.
func (r *MentorStatsRepository) Upsert(ctx context.Context, stats *models.MentorTasksStats) error {
	if stats.ID == "" {
		stats.ID = uuid.NewString()
	}
	const query = `INSERT INTO mentor_tasks_stats (id, mentor_id, tasks_not_started, tasks_in_progress, tasks_completed, tasks_total,
        topics_not_started, topics_in_progress, topics_completed, topics_total, topics_overdue, topics_closed_today, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (mentor_id) DO UPDATE SET
        tasks_not_started = EXCLUDED.tasks_not_started,
        tasks_in_progress = EXCLUDED.tasks_in_progress,
        tasks_completed = EXCLUDED.tasks_completed,
        tasks_total = EXCLUDED.tasks_total,
        topics_not_started = EXCLUDED.topics_not_started,
        topics_in_progress = EXCLUDED.topics_in_progress,
        topics_completed = EXCLUDED.topics_completed,
        topics_total = EXCLUDED.topics_total,
        topics_overdue = EXCLUDED.topics_overdue,
        topics_closed_today = EXCLUDED.topics_closed_today,
        updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		stats.ID, stats.MentorID,
		stats.TaskStats.NotStarted, stats.TaskStats.InProgress, stats.TaskStats.Completed, stats.TaskStats.Total,
		stats.TopicStats.NotStarted, stats.TopicStats.InProgress, stats.TopicStats.Completed, stats.TopicStats.Total,
		stats.TopicStats.Overdue, stats.TopicStats.ClosedToday, stats.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mentor stats: %w", err)
	}
	return nil
}

package models

import "time"

// MentorTaskCounts groups a mentor's tasks by status.
type MentorTaskCounts struct {
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

// MentorTopicCounts is the element-wise sum of the task-level topic rollups
// across a mentor's tasks. It is derived from task stats, never from a topic
// recount, so a stale task rollup propagates here until the next topic write.
type MentorTopicCounts struct {
	NotStarted  int `json:"not_started"`
	InProgress  int `json:"in_progress"`
	Completed   int `json:"completed"`
	Total       int `json:"total"`
	Overdue     int `json:"overdue"`
	ClosedToday int `json:"closed_today"`
}

// MentorTasksStats is the single per-mentor statistics record, recomputed
// wholesale on each stats request.
type MentorTasksStats struct {
	ID         string            `db:"id" json:"id"`
	MentorID   string            `db:"mentor_id" json:"mentor_id"`
	TaskStats  MentorTaskCounts  `db:"-" json:"task_stats"`
	TopicStats MentorTopicCounts `db:"-" json:"topic_stats"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// TaskStatus enumerates the lifecycle states shared by tasks and topics.
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskStats is the per-task rollup of its topics, recomputed on every topic write.
// inProgress excludes overdue topics while overdue excludes completed ones, so
// the counters intentionally do not sum to total.
type TaskStats struct {
	InProgress  int `db:"stats_in_progress" json:"in_progress"`
	Completed   int `db:"stats_completed" json:"completed"`
	NotStarted  int `db:"stats_not_started" json:"not_started"`
	Total       int `db:"stats_total" json:"total"`
	Overdue     int `db:"stats_overdue" json:"overdue"`
	ClosedToday int `db:"stats_closed_today" json:"closed_today"`
}

// Task is the materialized unit of mentoring work for one student, one course, one week.
// At most one task exists per (student, course, week); the materializer enforces this.
type Task struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	StudentID      string         `db:"student_id" json:"student_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	TermID         string         `db:"term_id" json:"term_id"`
	UniversityID   string         `db:"university_id" json:"university_id"`
	Week           int            `db:"week" json:"week"`
	MentorAssigned pq.StringArray `db:"mentor_assigned" json:"mentor_assigned"`
	TopicIDs       pq.StringArray `db:"topic_ids" json:"topic_ids"`
	Status         TaskStatus     `db:"status" json:"status"`
	TaskStats
	DueDate        *time.Time     `db:"due_date" json:"due_date,omitempty"`
	Priority       int            `db:"priority" json:"priority"`
	Grade          string         `db:"grade" json:"grade,omitempty"`
	ProfComments   string         `db:"prof_comments" json:"prof_comments,omitempty"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// TaskFilter defines the filters supported by task list endpoints.
type TaskFilter struct {
	StudentID    string
	CourseID     string
	TermID       string
	MentorID     string
	UniversityID string
	Week         *int
	Status       TaskStatus
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

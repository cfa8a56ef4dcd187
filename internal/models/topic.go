package models

import (
	"time"

	"github.com/lib/pq"
)

// Topic is one discussion/reply item belonging to a task, tracked to
// completion independently of its siblings.
type Topic struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	TaskID         string         `db:"task_id" json:"task_id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	UniversityID   string         `db:"university_id" json:"university_id"`
	Week           int            `db:"week" json:"week"`
	Discussion     string         `db:"discussion" json:"discussion,omitempty"`
	Reply          string         `db:"reply" json:"reply,omitempty"`
	Status         TaskStatus     `db:"status" json:"status"`
	DueDate        *time.Time     `db:"due_date" json:"due_date,omitempty"`
	PostedDate     *time.Time     `db:"posted_date" json:"posted_date,omitempty"`
	MentorAssigned pq.StringArray `db:"mentor_assigned" json:"mentor_assigned"`
	Priority       int            `db:"priority" json:"priority"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	SortOrder      int            `db:"sort_order" json:"sort_order"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// Overdue reports whether the topic's due date has passed relative to the
// start of the given day. Completed topics are never overdue.
func (t Topic) Overdue(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.DueDate == nil {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(midnight)
}

// ClosedToday reports whether the topic was completed and its posted date
// falls on the same calendar day as now.
func (t Topic) ClosedToday(now time.Time) bool {
	if t.Status != TaskStatusCompleted || t.PostedDate == nil {
		return false
	}
	y1, m1, d1 := t.PostedDate.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TopicFilter defines filters supported by topic list endpoints.
type TopicFilter struct {
	TaskID       string
	StudentID    string
	CourseID     string
	UniversityID string
	Week         *int
	Status       TaskStatus
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

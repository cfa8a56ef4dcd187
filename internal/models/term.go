package models

import "time"

// Term models an academic term within a university calendar. The start date
// anchors the current-week computation used by task materialization.
type Term struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	UniversityID string     `db:"university_id" json:"university_id"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// TermFilter defines filters supported by term list endpoints.
type TermFilter struct {
	Search       string
	UniversityID string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

package models

import "github.com/lib/pq"

// University owns students, courses and the roster of mentors ever assigned
// to one of its students' courses. The mentor roster only ever grows.
type University struct {
	ID      string         `db:"id" json:"id"`
	Name    string         `db:"name" json:"name"`
	Mentors pq.StringArray `db:"mentors" json:"mentors"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// UniversityFilter defines filters supported by university list endpoints.
type UniversityFilter struct {
	Search    string
	MentorID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Professor teaches courses at a university.
type Professor struct {
	ID           string `db:"id" json:"id"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Email        string `db:"email" json:"email"`
	UniversityID string `db:"university_id" json:"university_id"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// ProfessorFilter defines filters supported by professor list endpoints.
type ProfessorFilter struct {
	Search       string
	UniversityID string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

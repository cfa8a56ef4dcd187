package models

// TermPeriodType identifies which span of the term a course runs in.
type TermPeriodType string

const (
	TermPeriodFullTerm TermPeriodType = "Full-Term"
	TermPeriodBiTerm1  TermPeriodType = "Bi-Term1"
	TermPeriodBiTerm2  TermPeriodType = "Bi-Term2"
)

// TermPeriod is the week-numbered window a course is active within its term.
// Weeks are 1-indexed and inclusive; StartWeek <= EndWeek.
type TermPeriod struct {
	Type      TermPeriodType `db:"period_type" json:"type"`
	StartWeek int            `db:"start_week" json:"start_week"`
	EndWeek   int            `db:"end_week" json:"end_week"`
}

// CourseTasksStats is a cached rollup of the course's tasks by status,
// refreshed whenever new tasks are materialized for the course.
type CourseTasksStats struct {
	InProgress int `db:"tasks_in_progress" json:"in_progress"`
	Completed  int `db:"tasks_completed" json:"completed"`
	NotStarted int `db:"tasks_not_started" json:"not_started"`
	Total      int `db:"tasks_total" json:"total"`
}

// Course models a university course offered within a term.
type Course struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	TermID       string  `db:"term_id" json:"term_id"`
	ProfessorID  *string `db:"professor_id" json:"professor_id,omitempty"`
	UniversityID string  `db:"university_id" json:"university_id"`
	TermPeriod
	CourseTasksStats
	Tracking
	Active bool `db:"active" json:"active"`
}

// CourseFilter defines filters supported by course list endpoints.
type CourseFilter struct {
	Search       string
	TermID       string
	UniversityID string
	ProfessorID  string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

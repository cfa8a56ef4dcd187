package models

import "github.com/lib/pq"

// Student represents a learner tracked by the mentoring program.
type Student struct {
	ID            string `db:"id" json:"id"`
	StudentNumber string `db:"student_number" json:"student_number"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`
	ContactNumber string `db:"contact_number" json:"contact_number"`
	PersonalEmail string `db:"personal_email" json:"personal_email"`
	EduEmail      string `db:"edu_email" json:"edu_email,omitempty"`
	UniversityID  string `db:"university_id" json:"university_id"`
	// CourseTypeID optionally classifies the student's program (CourseType
	// lookup). Not validated against the lookup on write.
	CourseTypeID *string `db:"course_type_id" json:"course_type_id,omitempty"`
	// Courses is the student's course roster; one entry per course with the
	// mentors currently assigned for it. Loaded from student_courses.
	Courses []StudentCourse `db:"-" json:"courses"`
	Tracking
	Active bool `db:"active" json:"active"`
}

// StudentCourse is one entry of a student's course roster. Each
// (student, course) pair holds exactly one set of currently assigned mentors.
type StudentCourse struct {
	ID              string         `db:"id" json:"id"`
	StudentID       string         `db:"student_id" json:"student_id"`
	CourseID        string         `db:"course_id" json:"course_id"`
	AssignedMentors pq.StringArray `db:"assigned_mentors" json:"assigned_mentors"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	UniversityID string
	CourseID     string
	MentorID     string
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

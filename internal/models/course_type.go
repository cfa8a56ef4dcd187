package models

// CourseType is a small lookup classifying a student's program, e.g.
// Masters or PhD. Students reference it optionally.
type CourseType struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Tracking
	Active bool `db:"active" json:"active"`
}

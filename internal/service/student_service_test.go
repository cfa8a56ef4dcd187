package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	courses  map[string][]models.StudentCourse
	upserts  []models.StudentCourse
	removed  []string
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		students: make(map[string]*models.Student),
		courses:  make(map[string][]models.StudentCourse),
	}
}

func (m *mockStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	s := *student
	s.Courses = m.courses[id]
	return &s, nil
}

func (m *mockStudentRepo) ListCourses(_ context.Context, studentID string) ([]models.StudentCourse, error) {
	return m.courses[studentID], nil
}

func (m *mockStudentRepo) ExistsByStudentNumber(_ context.Context, number, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.StudentNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = "student-1"
	}
	stored := *student
	m.students[student.ID] = &stored
	m.courses[student.ID] = student.Courses
	return nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *models.Student) error {
	stored := *student
	m.students[student.ID] = &stored
	return nil
}

func (m *mockStudentRepo) UpsertCourse(_ context.Context, course *models.StudentCourse) error {
	m.upserts = append(m.upserts, *course)
	entries := m.courses[course.StudentID]
	for i := range entries {
		if entries[i].CourseID == course.CourseID {
			entries[i] = *course
			return nil
		}
	}
	m.courses[course.StudentID] = append(entries, *course)
	return nil
}

func (m *mockStudentRepo) RemoveCourse(_ context.Context, studentID, courseID string) error {
	m.removed = append(m.removed, courseID)
	entries := m.courses[studentID]
	kept := entries[:0]
	for _, e := range entries {
		if e.CourseID != courseID {
			kept = append(kept, e)
		}
	}
	m.courses[studentID] = kept
	return nil
}

func (m *mockStudentRepo) SoftDelete(_ context.Context, id, by string, at time.Time) error {
	student, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Active = false
	return nil
}

func TestStudentServiceCreateFiresMaterialization(t *testing.T) {
	repo := newMockStudentRepo()
	materializer, tasks, _ := newMaterializerFixture(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 1, 4)
	pipeline := NewAggregationPipeline(materializer, nil, nil, nil)
	svc := NewStudentService(repo, pipeline, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) }

	courseType := "ctype-masters"
	student, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNumber: "S-100",
		FirstName:     "Ada",
		LastName:      "Nguyen",
		UniversityID:  "uni-1",
		CourseTypeID:  &courseType,
		Courses: []StudentCourseInput{
			{CourseID: "course-1", AssignedMentors: []string{"mentor-a"}},
		},
	}, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, student.ID)
	require.NotNil(t, student.CourseTypeID)
	require.Equal(t, "ctype-masters", *student.CourseTypeID)
	require.NotEmpty(t, tasks.inserted, "expected tasks materialized for the mentored course")
}

func TestStudentServiceCreateRejectsDuplicateNumber(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["existing"] = &models.Student{ID: "existing", StudentNumber: "S-100"}
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNumber: "S-100",
		FirstName:     "Ada",
		LastName:      "Nguyen",
		UniversityID:  "uni-1",
	}, "admin")
	require.Error(t, err)
}

func TestStudentServiceUpdateReplacesRoster(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["student-1"] = &models.Student{
		ID:            "student-1",
		StudentNumber: "S-100",
		FirstName:     "Ada",
		LastName:      "Nguyen",
		UniversityID:  "uni-1",
		Active:        true,
	}
	repo.courses["student-1"] = []models.StudentCourse{
		{StudentID: "student-1", CourseID: "course-old", AssignedMentors: pq.StringArray{"mentor-a"}},
	}
	svc := NewStudentService(repo, nil, nil, nil)

	student, err := svc.Update(context.Background(), "student-1", UpdateStudentRequest{
		StudentNumber: "S-100",
		FirstName:     "Ada",
		LastName:      "Nguyen",
		Courses: []StudentCourseInput{
			{CourseID: "course-new", AssignedMentors: []string{"mentor-b"}},
		},
	}, "admin")
	require.NoError(t, err)
	require.Len(t, student.Courses, 1)
	require.Equal(t, "course-new", student.Courses[0].CourseID)
	require.Equal(t, []string{"course-old"}, repo.removed)
}

func TestStudentServiceDeleteIsSoft(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["student-1"] = &models.Student{ID: "student-1", StudentNumber: "S-100", Active: true}
	svc := NewStudentService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "student-1", "admin"))
	require.False(t, repo.students["student-1"].Active)
}

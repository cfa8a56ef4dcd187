package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

type mockCourseRepo struct {
	courses      map[string]models.Course
	statsUpdates map[string]models.CourseTasksStats
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, errors.New("course not found")
}

func (m *mockCourseRepo) UpdateTaskStats(ctx context.Context, id string, stats models.CourseTasksStats) error {
	if m.statsUpdates == nil {
		m.statsUpdates = make(map[string]models.CourseTasksStats)
	}
	m.statsUpdates[id] = stats
	return nil
}

type mockTermReader struct {
	terms map[string]models.Term
}

func (m *mockTermReader) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return &t, nil
	}
	return nil, errors.New("term not found")
}

type mockMaterializerTaskRepo struct {
	existing      []models.Task
	inserted      []*models.Task
	mentorUpdates []pq.StringArray
	listErr       error
	insertErr     error
}

func (m *mockMaterializerTaskRepo) ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.Task, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.existing, nil
}

func (m *mockMaterializerTaskRepo) BulkInsert(ctx context.Context, tasks []*models.Task) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, tasks...)
	return nil
}

func (m *mockMaterializerTaskRepo) UpdateMentorsForStudentCourse(ctx context.Context, studentID, courseID string, mentors []string, by string, at time.Time) (int64, error) {
	m.mentorUpdates = append(m.mentorUpdates, pq.StringArray(mentors))
	return int64(len(m.existing)), nil
}

func (m *mockMaterializerTaskRepo) CountStatsByCourse(ctx context.Context, courseID string) (models.CourseTasksStats, error) {
	var stats models.CourseTasksStats
	for _, task := range m.inserted {
		if task.CourseID != courseID {
			continue
		}
		switch task.Status {
		case models.TaskStatusInProgress:
			stats.InProgress++
		case models.TaskStatusCompleted:
			stats.Completed++
		case models.TaskStatusNotStarted:
			stats.NotStarted++
		}
		stats.Total++
	}
	return stats, nil
}

type mockUniversityRosterRepo struct {
	university *models.University
	persisted  [][]string
}

func (m *mockUniversityRosterRepo) FindByID(ctx context.Context, id string) (*models.University, error) {
	if m.university == nil || m.university.ID != id {
		return nil, errors.New("university not found")
	}
	u := *m.university
	return &u, nil
}

func (m *mockUniversityRosterRepo) UpdateMentors(ctx context.Context, id string, mentors []string) error {
	m.persisted = append(m.persisted, mentors)
	m.university.Mentors = pq.StringArray(mentors)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newMaterializerFixture(termStart time.Time, startWeek, endWeek int) (*TaskMaterializerService, *mockMaterializerTaskRepo, *mockUniversityRosterRepo) {
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {
			ID:         "course-1",
			Name:       "Algorithms",
			TermID:     "term-1",
			TermPeriod: models.TermPeriod{Type: models.TermPeriodFullTerm, StartWeek: startWeek, EndWeek: endWeek},
		},
	}}
	terms := &mockTermReader{terms: map[string]models.Term{
		"term-1": {ID: "term-1", StartDate: &termStart},
	}}
	tasks := &mockMaterializerTaskRepo{}
	universities := &mockUniversityRosterRepo{university: &models.University{ID: "uni-1", Mentors: pq.StringArray{}}}

	svc := NewTaskMaterializerService(courses, terms, tasks, universities, nil)
	return svc, tasks, universities
}

func testStudent() *models.Student {
	return &models.Student{
		ID:           "stu-1",
		UniversityID: "uni-1",
		Tracking:     models.Tracking{CreatedDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), CreatedBy: "admin"},
	}
}

func TestMaterializeCourseCreatesOneTaskPerRemainingWeek(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, tasks, _ := newMaterializerFixture(termStart, 1, 8)
	// Two full weeks elapsed puts us in week 3.
	svc.now = fixedClock(termStart.AddDate(0, 0, 15))

	entry := models.StudentCourse{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a"}}
	require.NoError(t, svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin"))

	require.Len(t, tasks.inserted, 6)
	weeks := make(map[int]bool)
	for _, task := range tasks.inserted {
		assert.Equal(t, models.TaskStatusNotStarted, task.Status)
		assert.Equal(t, pq.StringArray{"mentor-a"}, task.MentorAssigned)
		assert.Equal(t, "stu-1", task.StudentID)
		assert.False(t, weeks[task.Week], "duplicate week %d", task.Week)
		weeks[task.Week] = true
	}
	assert.True(t, weeks[3])
	assert.True(t, weeks[8])
}

func TestMaterializeCourseSkipsEmptyMentorSet(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, tasks, universities := newMaterializerFixture(termStart, 1, 8)

	entry := models.StudentCourse{CourseID: "course-1"}
	require.NoError(t, svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin"))

	assert.Empty(t, tasks.inserted)
	assert.Empty(t, universities.persisted)
}

func TestMaterializeCourseIsIdempotentForSameMentors(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, tasks, universities := newMaterializerFixture(termStart, 1, 8)
	tasks.existing = []models.Task{
		{ID: "task-1", Week: 3, MentorAssigned: pq.StringArray{"mentor-b", "mentor-a"}},
		{ID: "task-2", Week: 4, MentorAssigned: pq.StringArray{"mentor-b", "mentor-a"}},
	}
	universities.university.Mentors = pq.StringArray{"mentor-a", "mentor-b"}

	// Same set in a different order must be a no-op.
	entry := models.StudentCourse{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a", "mentor-b"}}
	require.NoError(t, svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin"))

	assert.Empty(t, tasks.inserted)
	assert.Empty(t, tasks.mentorUpdates)
	assert.Empty(t, universities.persisted)
}

func TestMaterializeCoursePropagatesMentorChange(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, tasks, universities := newMaterializerFixture(termStart, 1, 8)
	tasks.existing = []models.Task{
		{ID: "task-1", Week: 3, MentorAssigned: pq.StringArray{"mentor-a", "mentor-b"}},
		{ID: "task-2", Week: 4, MentorAssigned: pq.StringArray{"mentor-a", "mentor-b"}},
	}
	universities.university.Mentors = pq.StringArray{"mentor-a", "mentor-b"}

	entry := models.StudentCourse{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a", "mentor-c"}}
	require.NoError(t, svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin"))

	require.Len(t, tasks.mentorUpdates, 1)
	assert.ElementsMatch(t, []string{"mentor-a", "mentor-c"}, tasks.mentorUpdates[0])
	// Roster gains mentor-c without duplicating mentor-a and is persisted once.
	require.Len(t, universities.persisted, 1)
	assert.ElementsMatch(t, []string{"mentor-a", "mentor-b", "mentor-c"}, universities.persisted[0])
}

func TestMaterializeCourseDetectsDuplicateWeeks(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, tasks, _ := newMaterializerFixture(termStart, 1, 8)
	tasks.existing = []models.Task{
		{ID: "task-1", Week: 3, MentorAssigned: pq.StringArray{"mentor-a"}},
		{ID: "task-2", Week: 3, MentorAssigned: pq.StringArray{"mentor-a"}},
	}

	entry := models.StudentCourse{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a"}}
	err := svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate task")
}

func TestCurrentWeek(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	period := models.TermPeriod{StartWeek: 2, EndWeek: 8}

	// No start date falls back to the period start.
	assert.Equal(t, 2, currentWeek(nil, period, start))
	// Inside the window.
	assert.Equal(t, 3, currentWeek(&start, period, start.AddDate(0, 0, 15)))
	// Before the period's start week.
	assert.Equal(t, 2, currentWeek(&start, period, start.AddDate(0, 0, 2)))
	// Past the end week.
	assert.Equal(t, 2, currentWeek(&start, period, start.AddDate(0, 0, 100)))
	// Clock before the term even starts.
	assert.Equal(t, 2, currentWeek(&start, period, start.AddDate(0, 0, -7)))
}

func TestMaterializeCourseRefreshesCourseStats(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	courses := &mockCourseRepo{courses: map[string]models.Course{
		"course-1": {
			ID:         "course-1",
			Name:       "Algorithms",
			TermID:     "term-1",
			TermPeriod: models.TermPeriod{Type: models.TermPeriodFullTerm, StartWeek: 1, EndWeek: 4},
		},
	}}
	terms := &mockTermReader{terms: map[string]models.Term{
		"term-1": {ID: "term-1", StartDate: &termStart},
	}}
	tasks := &mockMaterializerTaskRepo{}
	universities := &mockUniversityRosterRepo{university: &models.University{ID: "uni-1", Mentors: pq.StringArray{}}}
	svc := NewTaskMaterializerService(courses, terms, tasks, universities, nil)
	svc.now = fixedClock(termStart)

	entry := models.StudentCourse{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a"}}
	require.NoError(t, svc.MaterializeCourse(context.Background(), testStudent(), entry, "admin"))

	stats, ok := courses.statsUpdates["course-1"]
	require.True(t, ok)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.NotStarted)
}

func TestSyncUniversityMentorsPersistsOnce(t *testing.T) {
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	svc, _, universities := newMaterializerFixture(termStart, 1, 8)
	universities.university.Mentors = pq.StringArray{"mentor-a"}

	require.NoError(t, svc.SyncUniversityMentors(context.Background(), "uni-1", []string{"mentor-a", "mentor-b", "mentor-c"}))
	require.Len(t, universities.persisted, 1)
	assert.ElementsMatch(t, []string{"mentor-a", "mentor-b", "mentor-c"}, universities.persisted[0])
}

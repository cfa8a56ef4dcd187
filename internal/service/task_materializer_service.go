package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
)

type materializerCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	UpdateTaskStats(ctx context.Context, id string, stats models.CourseTasksStats) error
}

type materializerTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type materializerTaskRepository interface {
	ListByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]models.Task, error)
	BulkInsert(ctx context.Context, tasks []*models.Task) error
	UpdateMentorsForStudentCourse(ctx context.Context, studentID, courseID string, mentors []string, by string, at time.Time) (int64, error)
	CountStatsByCourse(ctx context.Context, courseID string) (models.CourseTasksStats, error)
}

type universityRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.University, error)
	UpdateMentors(ctx context.Context, id string, mentors []string) error
}

// TaskMaterializerService guarantees exactly one task per (student, course,
// week) for every week remaining in the course's term period, and keeps each
// task's mentor list in sync with the student's current assignment.
type TaskMaterializerService struct {
	courses      materializerCourseRepository
	terms        materializerTermReader
	tasks        materializerTaskRepository
	universities universityRosterRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewTaskMaterializerService constructs a TaskMaterializerService.
func NewTaskMaterializerService(courses materializerCourseRepository, terms materializerTermReader, tasks materializerTaskRepository, universities universityRosterRepository, logger *zap.Logger) *TaskMaterializerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskMaterializerService{
		courses:      courses,
		terms:        terms,
		tasks:        tasks,
		universities: universities,
		logger:       logger,
		now:          time.Now,
	}
}

// MaterializeCourse runs the materialization contract for one roster entry of
// a student. An empty mentor set skips materialization entirely, including the
// university roster sync.
func (s *TaskMaterializerService) MaterializeCourse(ctx context.Context, student *models.Student, entry models.StudentCourse, by string) error {
	if len(entry.AssignedMentors) == 0 {
		return nil
	}

	course, err := s.courses.FindByID(ctx, entry.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "course not found for materialization")
	}

	term, err := s.terms.FindByID(ctx, course.TermID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "term not found for materialization")
	}

	existing, err := s.tasks.ListByStudentAndCourse(ctx, student.ID, entry.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to load existing tasks")
	}

	if len(existing) == 0 {
		if err := s.createWeeklyTasks(ctx, student, course, term, entry, by); err != nil {
			return err
		}
		s.refreshCourseStats(ctx, course.ID)
	} else {
		if err := checkWeekUniqueness(existing); err != nil {
			return err
		}
		if !sameMentorSet(existing[0].MentorAssigned, entry.AssignedMentors) {
			if _, err := s.tasks.UpdateMentorsForStudentCourse(ctx, student.ID, entry.CourseID, entry.AssignedMentors, by, s.now().UTC()); err != nil {
				return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to update task mentors")
			}
		}
	}

	return s.SyncUniversityMentors(ctx, student.UniversityID, entry.AssignedMentors)
}

// SyncUniversityMentors adds any mentors missing from the university roster.
// The roster only grows; the university is persisted at most once per call.
func (s *TaskMaterializerService) SyncUniversityMentors(ctx context.Context, universityID string, mentors []string) error {
	if universityID == "" || len(mentors) == 0 {
		return nil
	}

	university, err := s.universities.FindByID(ctx, universityID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "university not found for roster sync")
	}

	known := make(map[string]struct{}, len(university.Mentors))
	for _, m := range university.Mentors {
		known[m] = struct{}{}
	}

	roster := university.Mentors
	changed := false
	for _, m := range mentors {
		if _, ok := known[m]; ok {
			continue
		}
		known[m] = struct{}{}
		roster = append(roster, m)
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.universities.UpdateMentors(ctx, universityID, roster); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to persist university roster")
	}
	return nil
}

func (s *TaskMaterializerService) createWeeklyTasks(ctx context.Context, student *models.Student, course *models.Course, term *models.Term, entry models.StudentCourse, by string) error {
	now := s.now()
	week := currentWeek(term.StartDate, course.TermPeriod, now)

	var tasks []*models.Task
	for w := week; w <= course.TermPeriod.EndWeek; w++ {
		task := &models.Task{
			Title:          fmt.Sprintf("%s - Week %d", course.Name, w),
			StudentID:      student.ID,
			CourseID:       course.ID,
			TermID:         course.TermID,
			UniversityID:   student.UniversityID,
			Week:           w,
			MentorAssigned: pq.StringArray(entry.AssignedMentors),
			TopicIDs:       pq.StringArray{},
			Status:         models.TaskStatusNotStarted,
			Tracking:       student.Tracking,
			Active:         true,
		}
		if task.Tracking.CreatedDate.IsZero() {
			task.StampCreated(by, now.UTC())
		}
		tasks = append(tasks, task)
	}

	if err := s.tasks.BulkInsert(ctx, tasks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrAggregation.Code, appErrors.ErrAggregation.Status, "failed to materialize weekly tasks")
	}

	s.logger.Sugar().Infow("materialized weekly tasks",
		"student_id", student.ID,
		"course_id", course.ID,
		"from_week", week,
		"to_week", course.TermPeriod.EndWeek,
	)
	return nil
}

// refreshCourseStats recounts the course's task counters after new tasks land.
// A stale counter is tolerable, so failures only log.
func (s *TaskMaterializerService) refreshCourseStats(ctx context.Context, courseID string) {
	stats, err := s.tasks.CountStatsByCourse(ctx, courseID)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recount course task stats", "course_id", courseID, "error", err)
		return
	}
	if err := s.courses.UpdateTaskStats(ctx, courseID, stats); err != nil {
		s.logger.Sugar().Warnw("failed to persist course task stats", "course_id", courseID, "error", err)
	}
}

// currentWeek computes the 1-indexed week number of now relative to the term
// start, defaulting to the period's start week when the term has no start date
// or the computed week falls outside the period bounds.
func currentWeek(startDate *time.Time, period models.TermPeriod, now time.Time) int {
	if startDate == nil {
		return period.StartWeek
	}
	elapsed := now.Sub(*startDate)
	if elapsed < 0 {
		return period.StartWeek
	}
	week := int(elapsed.Hours()/(24*7)) + 1
	if week < period.StartWeek || week > period.EndWeek {
		return period.StartWeek
	}
	return week
}

func sameMentorSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, m := range a {
		set[m] = struct{}{}
	}
	for _, m := range b {
		if _, ok := set[m]; !ok {
			return false
		}
	}
	return true
}

func checkWeekUniqueness(tasks []models.Task) error {
	seen := make(map[int]struct{}, len(tasks))
	for _, task := range tasks {
		if _, dup := seen[task.Week]; dup {
			return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("duplicate task for week %d", task.Week))
		}
		seen[task.Week] = struct{}{}
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradtrack/mentor-api/internal/models"
)

func newPipelineFixture(t *testing.T) (*AggregationPipeline, *mockMaterializerTaskRepo, *mockRollupTaskRepo) {
	t.Helper()
	termStart := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	materializer, taskRepo, _ := newMaterializerFixture(termStart, 1, 4)
	materializer.now = fixedClock(termStart.AddDate(0, 0, 1))

	rollupTasks := &mockRollupTaskRepo{}
	rollup := NewTopicRollupService(rollupTasks, &mockRollupTopicReader{topics: []models.Topic{
		{ID: "topic-1", TaskID: "task-1", Status: models.TaskStatusCompleted},
	}}, nil)

	pipeline := NewAggregationPipeline(materializer, rollup, nil, nil)
	return pipeline, taskRepo, rollupTasks
}

func TestPipelineStudentCoursesChanged(t *testing.T) {
	pipeline, taskRepo, _ := newPipelineFixture(t)

	student := testStudent()
	results := pipeline.StudentCoursesChanged(context.Background(), StudentCoursesChangedEvent{
		Student: student,
		Courses: []models.StudentCourse{
			{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a"}},
		},
		By: "admin",
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())
	assert.Equal(t, ComponentMaterializer, results[0].Component)
	assert.Len(t, taskRepo.inserted, 4)
}

func TestPipelineSwallowsMaterializerFailure(t *testing.T) {
	pipeline, taskRepo, _ := newPipelineFixture(t)
	taskRepo.listErr = errors.New("store unavailable")

	results := pipeline.StudentCoursesChanged(context.Background(), StudentCoursesChangedEvent{
		Student: testStudent(),
		Courses: []models.StudentCourse{
			{CourseID: "course-1", AssignedMentors: pq.StringArray{"mentor-a"}},
		},
		By: "admin",
	})

	// The failure surfaces in the result, never as a returned error.
	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
}

func TestPipelineTopicChanged(t *testing.T) {
	pipeline, _, rollupTasks := newPipelineFixture(t)

	topic := &models.Topic{ID: "topic-1", TaskID: "task-1", Status: models.TaskStatusCompleted}
	result := pipeline.TopicChanged(context.Background(), TopicChangedEvent{Topic: topic})

	assert.False(t, result.Failed())
	require.NotNil(t, rollupTasks.savedStats)
	assert.Equal(t, 1, rollupTasks.savedStats.Completed)
}

func TestPipelineTopicChangedIgnoresOrphan(t *testing.T) {
	pipeline, _, rollupTasks := newPipelineFixture(t)

	result := pipeline.TopicChanged(context.Background(), TopicChangedEvent{Topic: &models.Topic{ID: "topic-1"}})
	assert.False(t, result.Failed())
	assert.Nil(t, rollupTasks.savedStats)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := newKeyedMutex()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("task-1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestKeyedMutexAllowsDistinctKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a distinct key blocked")
	}
	unlockA()
}
